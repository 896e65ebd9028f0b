package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opotest/opotest/internal/config"
	"github.com/opotest/opotest/internal/content"
)

// QuestionSource is the slice of the content catalog the exam engine
// needs: draw a random set, resolve questions, resolve review context.
type QuestionSource interface {
	SampleQuestionIDs(ctx context.Context, n int) ([]string, error)
	GetQuestions(ctx context.Context, ids []string) ([]content.Question, error)
	GetQuestionContexts(ctx context.Context, ids []string) ([]content.QuestionContext, error)
}

// Service runs the exam simulation lifecycle: create a session with a
// random question set, serve and record pages, and freeze the score when
// the last page is submitted (or results are requested early).
type Service struct {
	store   Store
	catalog QuestionSource
	cfg     config.ExamConfig

	now   func() time.Time
	newID func() string
}

func NewService(store Store, catalog QuestionSource, cfg config.ExamConfig) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// CreateSession draws the question set and persists the new session.
// When the pool holds fewer questions than configured, all of them are
// used; an empty pool is ErrNoQuestionsAvailable.
func (s *Service) CreateSession(ctx context.Context, ownerID string) (Session, error) {
	ids, err := s.catalog.SampleQuestionIDs(ctx, s.cfg.QuestionsPerExam)
	if err != nil {
		return Session{}, fmt.Errorf("sample questions: %w", err)
	}
	if len(ids) == 0 {
		return Session{}, ErrNoQuestionsAvailable
	}
	sess := Session{
		ID:          s.newID(),
		UserID:      ownerID,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
		QuestionIDs: ids,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ListSessions returns the caller's own sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, callerID string) ([]Session, error) {
	return s.store.ListSessions(ctx, callerID)
}

// GetPage serves one page of the session's question set. The requested
// page number is clamped into the valid range rather than rejected.
func (s *Service) GetPage(ctx context.Context, sessionID, callerID string, page int) (Page, error) {
	sess, err := s.getOwned(ctx, sessionID, callerID)
	if err != nil {
		return Page{}, err
	}
	if sess.Finished() {
		return Page{}, ErrAlreadyFinished
	}
	p := newPager(len(sess.QuestionIDs), s.cfg.PageSize)
	n := p.clamp(page)
	lo, hi := p.bounds(n)
	qs, err := s.catalog.GetQuestions(ctx, sess.QuestionIDs[lo:hi])
	if err != nil {
		return Page{}, err
	}
	out := Page{
		Number:         n,
		TotalPages:     p.totalPages(),
		TotalQuestions: len(sess.QuestionIDs),
		HasNext:        p.hasNext(n),
		Questions:      make([]PageQuestion, 0, len(qs)),
	}
	for _, q := range qs {
		out.Questions = append(out.Questions, PageQuestion{
			ID:        q.ID,
			Statement: q.Statement,
			OptionA:   q.OptionA,
			OptionB:   q.OptionB,
			OptionC:   q.OptionC,
			OptionD:   q.OptionD,
		})
	}
	return out, nil
}

// SubmitPage records the page's answers (upsert, last write wins) and
// decides where the caller goes next. Questions left blank stay
// unrecorded; they are neither correct nor incorrect. Submitting the
// last page finalizes the session synchronously.
func (s *Service) SubmitPage(ctx context.Context, sessionID, callerID string, page int, selections map[string]content.Option) (NextAction, error) {
	sess, err := s.getOwned(ctx, sessionID, callerID)
	if err != nil {
		return NextAction{}, err
	}
	if sess.Finished() {
		return NextAction{}, ErrAlreadyFinished
	}

	bound := make(map[string]struct{}, len(sess.QuestionIDs))
	for _, id := range sess.QuestionIDs {
		bound[id] = struct{}{}
	}
	answered := make([]string, 0, len(selections))
	for qid, opt := range selections {
		if _, ok := bound[qid]; !ok {
			return NextAction{}, fmt.Errorf("%w: %s", ErrInvalidQuestion, qid)
		}
		if _, err := content.ParseOption(string(opt)); err != nil {
			return NextAction{}, fmt.Errorf("%w: %s", ErrInvalidOption, opt)
		}
		answered = append(answered, qid)
	}

	if len(answered) > 0 {
		qs, err := s.catalog.GetQuestions(ctx, answered)
		if err != nil {
			return NextAction{}, err
		}
		records := make([]Answer, 0, len(qs))
		for _, q := range qs {
			sel := selections[q.ID]
			records = append(records, Answer{
				SessionID:  sess.ID,
				QuestionID: q.ID,
				Selected:   sel,
				IsCorrect:  sel == q.CorrectOption,
			})
		}
		if err := s.store.UpsertAnswers(ctx, sess.ID, records); err != nil {
			return NextAction{}, err
		}
	}

	p := newPager(len(sess.QuestionIDs), s.cfg.PageSize)
	n := p.clamp(page)
	if p.hasNext(n) {
		return NextAction{NextPage: n + 1}, nil
	}
	if _, err := s.store.FinalizeSession(ctx, sess.ID, s.cfg.ErrorPenalty); err != nil {
		return NextAction{}, err
	}
	return NextAction{Finished: true}, nil
}

// Results finalizes the session if it is still open (a session abandoned
// mid-page gets scored here) and returns the frozen outcome with the
// failed questions for review. Safe to call repeatedly.
func (s *Service) Results(ctx context.Context, sessionID, callerID string) (Results, error) {
	if _, err := s.getOwned(ctx, sessionID, callerID); err != nil {
		return Results{}, err
	}
	sess, err := s.store.FinalizeSession(ctx, sessionID, s.cfg.ErrorPenalty)
	if err != nil {
		return Results{}, err
	}
	answers, err := s.store.GetAnswers(ctx, sessionID)
	if err != nil {
		return Results{}, err
	}
	t := tallyAnswers(len(sess.QuestionIDs), answers)

	selected := make(map[string]content.Option)
	var failedIDs []string
	for _, a := range answers {
		if !a.IsCorrect {
			failedIDs = append(failedIDs, a.QuestionID)
			selected[a.QuestionID] = a.Selected
		}
	}
	var failed []FailedQuestion
	if len(failedIDs) > 0 {
		ctxs, err := s.catalog.GetQuestionContexts(ctx, failedIDs)
		if err != nil {
			return Results{}, err
		}
		failed = make([]FailedQuestion, 0, len(ctxs))
		for _, qc := range ctxs {
			sel := selected[qc.ID]
			failed = append(failed, FailedQuestion{
				QuestionContext: qc,
				Selected:        sel,
				SelectedText:    qc.OptionText(sel),
			})
		}
	}
	return Results{
		SessionID:  sess.ID,
		Correct:    t.Correct,
		Incorrect:  t.Incorrect,
		Unanswered: t.Unanswered,
		Total:      len(sess.QuestionIDs),
		Score:      *sess.Score,
		FinishedAt: *sess.FinishedAt,
		Failed:     failed,
	}, nil
}

func (s *Service) getOwned(ctx context.Context, sessionID, callerID string) (Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != callerID {
		return Session{}, ErrForbidden
	}
	return sess, nil
}
