package exam

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/opotest/opotest/internal/config"
	"github.com/opotest/opotest/internal/content"
)

/* ---------------- in-memory fake that satisfies exam.QuestionSource ---------------- */

type fakeCatalog struct {
	order     []string
	questions map[string]content.Question
}

// newFakeCatalog builds n questions q001..qNNN whose correct option is A.
func newFakeCatalog(n int) *fakeCatalog {
	f := &fakeCatalog{questions: map[string]content.Question{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("q%03d", i)
		f.order = append(f.order, id)
		f.questions[id] = content.Question{
			ID:            id,
			ChapterID:     "ch1",
			Statement:     "statement " + id,
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: content.OptionA,
		}
	}
	return f
}

func (f *fakeCatalog) SampleQuestionIDs(_ context.Context, n int) ([]string, error) {
	ids := append([]string(nil), f.order...)
	if n < len(ids) {
		ids = ids[:n]
	}
	return ids, nil
}

func (f *fakeCatalog) GetQuestions(_ context.Context, ids []string) ([]content.Question, error) {
	out := make([]content.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := f.questions[id]
		if !ok {
			return nil, fmt.Errorf("question %s: %w", id, content.ErrNotFound)
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeCatalog) GetQuestionContexts(_ context.Context, ids []string) ([]content.QuestionContext, error) {
	qs, err := f.GetQuestions(context.Background(), ids)
	if err != nil {
		return nil, err
	}
	out := make([]content.QuestionContext, 0, len(qs))
	for _, q := range qs {
		out = append(out, content.QuestionContext{
			Question:     q,
			ChapterTitle: "Chapter One",
			SubjectTitle: "Subject One",
		})
	}
	return out, nil
}

func newTestService(t *testing.T, poolSize, perExam, pageSize int) (*Service, Store) {
	t.Helper()
	store := NewInMemoryStore()
	svc := NewService(store, newFakeCatalog(poolSize), config.ExamConfig{
		QuestionsPerExam: perExam,
		PageSize:         pageSize,
		ErrorPenalty:     decimal.RequireFromString("0.33"),
	})
	return svc, store
}

// checkTerminalInvariant asserts FinishedAt is set iff Score is set.
func checkTerminalInvariant(t *testing.T, store Store, id string) {
	t.Helper()
	s, err := store.GetSession(context.Background(), id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if (s.FinishedAt != nil) != (s.Score != nil) {
		t.Fatalf("mixed terminal state: finished_at=%v score=%v", s.FinishedAt, s.Score)
	}
}

/* ---------------- session creation ---------------- */

func TestCreateSessionDrawsConfiguredCount(t *testing.T) {
	svc, store := newTestService(t, 150, 100, 10)
	sess, err := svc.CreateSession(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.QuestionIDs) != 100 {
		t.Fatalf("bound %d questions, want 100", len(sess.QuestionIDs))
	}
	got, err := store.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Finished() || got.Score != nil {
		t.Fatalf("new session must not be terminal: %+v", got)
	}
	checkTerminalInvariant(t, store, sess.ID)
}

func TestCreateSessionSmallPoolUsesAll(t *testing.T) {
	svc, _ := newTestService(t, 5, 100, 10)
	sess, err := svc.CreateSession(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.QuestionIDs) != 5 {
		t.Fatalf("bound %d questions, want all 5", len(sess.QuestionIDs))
	}
}

func TestCreateSessionEmptyPool(t *testing.T) {
	svc, _ := newTestService(t, 0, 100, 10)
	_, err := svc.CreateSession(context.Background(), "u1")
	if !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Fatalf("err = %v, want ErrNoQuestionsAvailable", err)
	}
}

/* ---------------- paging ---------------- */

func TestGetPagePartitionAndClamp(t *testing.T) {
	svc, _ := newTestService(t, 23, 23, 10)
	sess, err := svc.CreateSession(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}

	p1, err := svc.GetPage(context.Background(), sess.ID, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if p1.Number != 1 || len(p1.Questions) != 10 || !p1.HasNext || p1.TotalPages != 3 || p1.TotalQuestions != 23 {
		t.Fatalf("unexpected first page: %+v", p1)
	}

	// repeated calls serve the same questions in the same order
	again, err := svc.GetPage(context.Background(), sess.ID, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range p1.Questions {
		if p1.Questions[i].ID != again.Questions[i].ID {
			t.Fatalf("page order not deterministic at %d: %s vs %s", i, p1.Questions[i].ID, again.Questions[i].ID)
		}
	}

	last, err := svc.GetPage(context.Background(), sess.ID, "u1", 99)
	if err != nil {
		t.Fatal(err)
	}
	if last.Number != 3 || len(last.Questions) != 3 || last.HasNext {
		t.Fatalf("out-of-range page did not clamp to last: %+v", last)
	}

	first, err := svc.GetPage(context.Background(), sess.ID, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if first.Number != 1 {
		t.Fatalf("page 0 did not clamp to first: %+v", first)
	}
}

func TestGetPageHidesAnswers(t *testing.T) {
	svc, _ := newTestService(t, 5, 5, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")
	p, err := svc.GetPage(context.Background(), sess.ID, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range p.Questions {
		if q.Statement == "" || q.OptionA == "" {
			t.Fatalf("page question missing texts: %+v", q)
		}
	}
}

func TestSessionIsPrivateToOwner(t *testing.T) {
	svc, _ := newTestService(t, 5, 5, 10)
	sess, _ := svc.CreateSession(context.Background(), "userA")

	if _, err := svc.GetPage(context.Background(), sess.ID, "userB", 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("GetPage err = %v, want ErrForbidden", err)
	}
	if _, err := svc.SubmitPage(context.Background(), sess.ID, "userB", 1, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("SubmitPage err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Results(context.Background(), sess.ID, "userB"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Results err = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetPage(context.Background(), "no-such-session", "userB", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown session err = %v, want ErrNotFound", err)
	}
}

/* ---------------- answer submission ---------------- */

func TestSubmitPageUpsertLastWriteWins(t *testing.T) {
	svc, store := newTestService(t, 23, 23, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")
	qid := sess.QuestionIDs[0]

	// wrong first, then revised to the correct letter
	if _, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1,
		map[string]content.Option{qid: content.OptionB}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1,
		map[string]content.Option{qid: content.OptionA}); err != nil {
		t.Fatal(err)
	}
	answers, err := store.GetAnswers(context.Background(), sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(answers) != 1 {
		t.Fatalf("answer records = %d, want exactly 1 (upsert)", len(answers))
	}
	if answers[0].Selected != content.OptionA || !answers[0].IsCorrect {
		t.Fatalf("record did not follow latest write: %+v", answers[0])
	}
}

func TestSubmitPageRejectsForeignQuestion(t *testing.T) {
	svc, _ := newTestService(t, 23, 10, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")
	_, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1,
		map[string]content.Option{"q999": content.OptionA})
	if !errors.Is(err, ErrInvalidQuestion) {
		t.Fatalf("err = %v, want ErrInvalidQuestion", err)
	}
}

func TestSubmitPageRejectsBadLetter(t *testing.T) {
	svc, _ := newTestService(t, 5, 5, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")
	_, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1,
		map[string]content.Option{sess.QuestionIDs[0]: content.Option("E")})
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
}

func TestSubmitPageAdvancesThenFinishes(t *testing.T) {
	svc, store := newTestService(t, 23, 23, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")

	next, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if next.Finished || next.NextPage != 2 {
		t.Fatalf("after page 1: %+v, want continue to page 2", next)
	}
	checkTerminalInvariant(t, store, sess.ID)

	next, err = svc.SubmitPage(context.Background(), sess.ID, "u1", 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !next.Finished {
		t.Fatalf("after last page: %+v, want finished", next)
	}
	got, _ := store.GetSession(context.Background(), sess.ID)
	if !got.Finished() || got.Score == nil {
		t.Fatalf("session not terminal after last page: %+v", got)
	}
	checkTerminalInvariant(t, store, sess.ID)

	// terminal session rejects further pages and submissions
	if _, err := svc.GetPage(context.Background(), sess.ID, "u1", 1); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("GetPage on finished err = %v, want ErrAlreadyFinished", err)
	}
	if _, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1, nil); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("SubmitPage on finished err = %v, want ErrAlreadyFinished", err)
	}
}

/* ---------------- results & scoring ---------------- */

func TestResultsCountsAndScore(t *testing.T) {
	svc, store := newTestService(t, 5, 5, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")

	// two correct, one wrong, two blank
	next, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1, map[string]content.Option{
		sess.QuestionIDs[0]: content.OptionA,
		sess.QuestionIDs[1]: content.OptionA,
		sess.QuestionIDs[2]: content.OptionC,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !next.Finished {
		t.Fatalf("single page session should finish on submit: %+v", next)
	}

	res, err := svc.Results(context.Background(), sess.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Correct != 2 || res.Incorrect != 1 || res.Unanswered != 2 || res.Total != 5 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Correct+res.Incorrect+res.Unanswered != res.Total {
		t.Fatalf("counts do not sum to total: %+v", res)
	}
	if res.Score.StringFixed(2) != "1.67" { // 2 - 1*0.33
		t.Fatalf("score = %s, want 1.67", res.Score)
	}
	if len(res.Failed) != 1 || res.Failed[0].ID != sess.QuestionIDs[2] {
		t.Fatalf("unexpected failed list: %+v", res.Failed)
	}
	if res.Failed[0].Selected != content.OptionC || res.Failed[0].SelectedText != "c" || res.Failed[0].ChapterTitle == "" {
		t.Fatalf("failed question missing review context: %+v", res.Failed[0])
	}
	checkTerminalInvariant(t, store, sess.ID)
}

func TestResultsFinalizesAbandonedSession(t *testing.T) {
	svc, store := newTestService(t, 23, 23, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")

	// answer one question on page 1 and walk away
	if _, err := svc.SubmitPage(context.Background(), sess.ID, "u1", 1,
		map[string]content.Option{sess.QuestionIDs[0]: content.OptionA}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Results(context.Background(), sess.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Correct != 1 || res.Incorrect != 0 || res.Unanswered != 22 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Score.StringFixed(2) != "1.00" {
		t.Fatalf("score = %s, want 1.00", res.Score)
	}
	checkTerminalInvariant(t, store, sess.ID)
}

func TestResultsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, 5, 5, 10)
	sess, _ := svc.CreateSession(context.Background(), "u1")

	first, err := svc.Results(context.Background(), sess.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Results(context.Background(), sess.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !first.Score.Equal(second.Score) {
		t.Fatalf("score changed across calls: %s vs %s", first.Score, second.Score)
	}
	if !first.FinishedAt.Equal(second.FinishedAt) {
		t.Fatalf("finished_at changed across calls: %s vs %s", first.FinishedAt, second.FinishedAt)
	}
}
