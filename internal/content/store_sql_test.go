package content_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/opotest/opotest/internal/content"
	"github.com/opotest/opotest/internal/db"
)

func openCatalog(t *testing.T, name string) *content.SQLStore {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return content.NewSQLStore(dbh)
}

func seedSyllabus(t *testing.T, s *content.SQLStore, nq int) {
	t.Helper()
	ctx := context.Background()
	if err := s.UpsertSubject(ctx, content.Subject{ID: "s2", Title: "Derecho Administrativo", Order: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertSubject(ctx, content.Subject{ID: "s1", Title: "Derecho Constitucional", Order: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertChapter(ctx, content.Chapter{ID: "c2", SubjectID: "s1", Title: "Derechos fundamentales", Order: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertChapter(ctx, content.Chapter{ID: "c1", SubjectID: "s1", Title: "La Constitución de 1978", Order: 1, DocumentKey: "chapters/c1/tema1.pdf"}); err != nil {
		t.Fatal(err)
	}
	qs := make([]content.Question, 0, nq)
	for i := 1; i <= nq; i++ {
		qs = append(qs, content.Question{
			ID:            fmt.Sprintf("q%03d", i),
			ChapterID:     "c1",
			Statement:     fmt.Sprintf("statement %d", i),
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: content.OptionB,
			Explanation:   "because",
		})
	}
	if len(qs) > 0 {
		if n, err := s.BulkUpsertQuestions(ctx, qs); err != nil || n != nq {
			t.Fatalf("bulk upsert: n=%d err=%v", n, err)
		}
	}
}

func TestSubjectsAndChaptersOrdered(t *testing.T) {
	s := openCatalog(t, "syllabus")
	seedSyllabus(t, s, 0)
	ctx := context.Background()

	subjects, err := s.ListSubjects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(subjects) != 2 || subjects[0].ID != "s1" || subjects[1].ID != "s2" {
		t.Fatalf("subjects not ordered by ord: %+v", subjects)
	}
	sub, chapters, err := s.GetSubject(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Title != "Derecho Constitucional" {
		t.Fatalf("unexpected subject: %+v", sub)
	}
	if len(chapters) != 2 || chapters[0].ID != "c1" || chapters[1].ID != "c2" {
		t.Fatalf("chapters not ordered by ord: %+v", chapters)
	}
	if chapters[0].DocumentKey != "chapters/c1/tema1.pdf" {
		t.Fatalf("document key lost: %+v", chapters[0])
	}
	if _, _, err := s.GetSubject(ctx, "missing"); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetChapter(ctx, "missing"); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSampleQuestionIDs(t *testing.T) {
	s := openCatalog(t, "sample")
	seedSyllabus(t, s, 30)
	ctx := context.Background()

	ids, err := s.SampleQuestionIDs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 10 {
		t.Fatalf("sampled %d, want 10", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id in sample: %s", id)
		}
		seen[id] = true
	}

	// asking for more than the pool returns the whole pool
	all, err := s.SampleQuestionIDs(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 30 {
		t.Fatalf("sampled %d, want the whole pool of 30", len(all))
	}

	n, err := s.CountQuestions(ctx)
	if err != nil || n != 30 {
		t.Fatalf("count = %d err=%v, want 30", n, err)
	}
}

func TestGetQuestionsPreservesRequestedOrder(t *testing.T) {
	s := openCatalog(t, "getq")
	seedSyllabus(t, s, 5)
	ctx := context.Background()

	want := []string{"q004", "q001", "q003"}
	qs, err := s.GetQuestions(ctx, want)
	if err != nil {
		t.Fatal(err)
	}
	for i, q := range qs {
		if q.ID != want[i] {
			t.Fatalf("order lost at %d: %s vs %s", i, q.ID, want[i])
		}
	}
	if qs[0].CorrectOption != content.OptionB || qs[0].Explanation != "because" {
		t.Fatalf("question fields lost: %+v", qs[0])
	}
	if _, err := s.GetQuestions(ctx, []string{"q999"}); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetQuestionContexts(t *testing.T) {
	s := openCatalog(t, "ctx")
	seedSyllabus(t, s, 3)

	ctxs, err := s.GetQuestionContexts(context.Background(), []string{"q002"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ctxs) != 1 {
		t.Fatalf("contexts = %d, want 1", len(ctxs))
	}
	qc := ctxs[0]
	if qc.ChapterTitle != "La Constitución de 1978" || qc.SubjectTitle != "Derecho Constitucional" {
		t.Fatalf("missing syllabus context: %+v", qc)
	}
}

func TestBulkUpsertRejectsBadLetter(t *testing.T) {
	s := openCatalog(t, "badletter")
	_, err := s.BulkUpsertQuestions(context.Background(), []content.Question{
		{ID: "qx", Statement: "s", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "Z"},
	})
	if err == nil {
		t.Fatal("expected error for correct option Z")
	}
}
