package exam

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the durable record of sessions and their answer ledgers.
//
// Implementations must make each UpsertAnswers batch and each
// FinalizeSession read-then-write atomic per session, so a concurrent
// reader never observes half a batch or a score without a finish
// timestamp. Different sessions need no coordination.
type Store interface {
	// CreateSession persists the session and its question bindings
	// (draw order preserved) in one write.
	CreateSession(ctx context.Context, s Session) error

	// GetSession returns the session with its ordered question ids,
	// or ErrNotFound.
	GetSession(ctx context.Context, id string) (Session, error)

	// ListSessions returns the user's sessions, newest first, without
	// question bindings.
	ListSessions(ctx context.Context, userID string) ([]Session, error)

	// UpsertAnswers writes the batch atomically; last write wins per
	// (session, question). Fails with ErrAlreadyFinished on a terminal
	// session and ErrNotFound on an unknown one.
	UpsertAnswers(ctx context.Context, sessionID string, answers []Answer) error

	GetAnswers(ctx context.Context, sessionID string) ([]Answer, error)

	// FinalizeSession tallies the ledger and sets Score and FinishedAt
	// together, exactly once. Calling it on a finished session is a
	// no-op that returns the frozen state.
	FinalizeSession(ctx context.Context, sessionID string, penalty decimal.Decimal) (Session, error)
}
