package content

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("content not found")

// Store is the read-mostly catalog of subjects, chapters and questions.
// The exam engine consumes the question side of it; the write operations
// exist for admin bulk loading.
type Store interface {
	ListSubjects(ctx context.Context) ([]Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, []Chapter, error)
	GetChapter(ctx context.Context, id string) (Chapter, error)

	// SampleQuestionIDs draws up to n distinct question ids uniformly at
	// random from the whole pool. Fewer than n are returned when the pool
	// is smaller.
	SampleQuestionIDs(ctx context.Context, n int) ([]string, error)
	GetQuestions(ctx context.Context, ids []string) ([]Question, error)
	GetQuestionContexts(ctx context.Context, ids []string) ([]QuestionContext, error)
	CountQuestions(ctx context.Context) (int, error)

	UpsertSubject(ctx context.Context, s Subject) error
	UpsertChapter(ctx context.Context, c Chapter) error
	BulkUpsertQuestions(ctx context.Context, qs []Question) (int, error)
}
