package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,ord FROM subjects ORDER BY ord,title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Title, &sub.Order); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetSubject(ctx context.Context, id string) (Subject, []Chapter, error) {
	var sub Subject
	err := s.db.QueryRowContext(ctx, `SELECT id,title,ord FROM subjects WHERE id=$1`, id).
		Scan(&sub.ID, &sub.Title, &sub.Order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, nil, ErrNotFound
		}
		return Subject{}, nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,subject_id,title,ord,document_key FROM chapters WHERE subject_id=$1 ORDER BY ord,title`, id)
	if err != nil {
		return Subject{}, nil, err
	}
	defer rows.Close()
	var chs []Chapter
	for rows.Next() {
		var c Chapter
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.Title, &c.Order, &c.DocumentKey); err != nil {
			return Subject{}, nil, err
		}
		chs = append(chs, c)
	}
	return sub, chs, rows.Err()
}

func (s *SQLStore) GetChapter(ctx context.Context, id string) (Chapter, error) {
	var c Chapter
	err := s.db.QueryRowContext(ctx,
		`SELECT id,subject_id,title,ord,document_key FROM chapters WHERE id=$1`, id).
		Scan(&c.ID, &c.SubjectID, &c.Title, &c.Order, &c.DocumentKey)
	if errors.Is(err, sql.ErrNoRows) {
		return Chapter{}, ErrNotFound
	}
	return c, err
}

// SampleQuestionIDs loads the id pool and shuffles it in process rather
// than relying on a storage-specific ORDER BY random().
func (s *SQLStore) SampleQuestionIDs(ctx context.Context, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM questions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if n < len(ids) {
		ids = ids[:n]
	}
	return ids, nil
}

func (s *SQLStore) CountQuestions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}

// GetQuestions returns questions in the order of ids. Every id must exist.
func (s *SQLStore) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id,chapter_id,statement,option_a,option_b,option_c,option_d,correct_option,explanation
		FROM questions WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, toAny(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLStore) GetQuestionContexts(ctx context.Context, ids []string) ([]QuestionContext, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT q.id,q.chapter_id,q.statement,q.option_a,q.option_b,q.option_c,q.option_d,
			q.correct_option,q.explanation,
			COALESCE(c.title,''),COALESCE(t.title,'')
		FROM questions q
		LEFT JOIN chapters c ON c.id=q.chapter_id
		LEFT JOIN subjects t ON t.id=c.subject_id
		WHERE q.id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, toAny(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]QuestionContext, len(ids))
	for rows.Next() {
		var qc QuestionContext
		var chapterID sql.NullString
		if err := rows.Scan(&qc.ID, &chapterID, &qc.Statement,
			&qc.OptionA, &qc.OptionB, &qc.OptionC, &qc.OptionD,
			&qc.CorrectOption, &qc.Explanation,
			&qc.ChapterTitle, &qc.SubjectTitle); err != nil {
			return nil, err
		}
		qc.ChapterID = chapterID.String
		byID[qc.ID] = qc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]QuestionContext, 0, len(ids))
	for _, id := range ids {
		qc, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
		}
		out = append(out, qc)
	}
	return out, nil
}

func (s *SQLStore) UpsertSubject(ctx context.Context, sub Subject) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO subjects (id,title,ord) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, ord=EXCLUDED.ord`,
		sub.ID, sub.Title, sub.Order)
	return err
}

func (s *SQLStore) UpsertChapter(ctx context.Context, c Chapter) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO chapters (id,subject_id,title,ord,document_key)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET subject_id=EXCLUDED.subject_id, title=EXCLUDED.title,
			ord=EXCLUDED.ord, document_key=EXCLUDED.document_key`,
		c.ID, c.SubjectID, c.Title, c.Order, c.DocumentKey)
	return err
}

// BulkUpsertQuestions writes the batch in a single transaction and
// returns how many rows were written.
func (s *SQLStore) BulkUpsertQuestions(ctx context.Context, qs []Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	n := 0
	for _, q := range qs {
		if _, err := ParseOption(string(q.CorrectOption)); err != nil {
			return 0, fmt.Errorf("question %s: %w", q.ID, err)
		}
		var chapterID any
		if q.ChapterID != "" {
			chapterID = q.ChapterID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id,chapter_id,statement,option_a,option_b,option_c,option_d,correct_option,explanation)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO UPDATE SET chapter_id=EXCLUDED.chapter_id, statement=EXCLUDED.statement,
				option_a=EXCLUDED.option_a, option_b=EXCLUDED.option_b, option_c=EXCLUDED.option_c,
				option_d=EXCLUDED.option_d, correct_option=EXCLUDED.correct_option, explanation=EXCLUDED.explanation`,
			q.ID, chapterID, q.Statement, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			string(q.CorrectOption), q.Explanation)
		if err != nil {
			return 0, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func scanQuestion(rows *sql.Rows) (Question, error) {
	var q Question
	var chapterID sql.NullString
	err := rows.Scan(&q.ID, &chapterID, &q.Statement,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption, &q.Explanation)
	q.ChapterID = chapterID.String
	return q, err
}

func placeholders(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", i)
	}
	return b.String()
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
