package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memoryStore keeps everything behind one mutex, which trivially gives
// the per-session atomicity the Store contract asks for. Used in tests
// and for dev runs without a database.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	answers  map[string]map[string]Answer // sessionID -> questionID -> Answer
	now      func() time.Time
}

func NewInMemoryStore() Store {
	return &memoryStore{
		sessions: map[string]Session{},
		answers:  map[string]map[string]Answer{},
		now:      time.Now,
	}
}

func (m *memoryStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	m.sessions[s.ID] = s
	m.answers[s.ID] = map[string]Answer{}
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	return s, nil
}

func (m *memoryStore) ListSessions(_ context.Context, userID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.QuestionIDs = nil
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) UpsertAnswers(_ context.Context, sessionID string, answers []Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.Finished() {
		return ErrAlreadyFinished
	}
	for _, a := range answers {
		a.SessionID = sessionID
		m.answers[sessionID][a.QuestionID] = a
	}
	return nil
}

func (m *memoryStore) GetAnswers(_ context.Context, sessionID string) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	recs := m.answers[sessionID]
	out := make([]Answer, 0, len(recs))
	for _, a := range recs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (m *memoryStore) FinalizeSession(_ context.Context, sessionID string, penalty decimal.Decimal) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Finished() {
		return s, nil
	}
	recs := m.answers[sessionID]
	answers := make([]Answer, 0, len(recs))
	for _, a := range recs {
		answers = append(answers, a)
	}
	score := computeScore(tallyAnswers(len(s.QuestionIDs), answers), penalty)
	at := m.now().UTC().Truncate(time.Second)
	s.Score = &score
	s.FinishedAt = &at
	m.sessions[sessionID] = s
	return s, nil
}
