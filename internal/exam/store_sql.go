package exam

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opotest/opotest/internal/content"
)

// SQLStore persists sessions over database/sql (sqlite or postgres,
// same statements for both).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) CreateSession(ctx context.Context, sess Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO exams (id,user_id,created_at) VALUES ($1,$2,$3)`,
		sess.ID, sess.UserID, sess.CreatedAt.Unix())
	if err != nil {
		return err
	}
	for i, qid := range sess.QuestionIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exam_questions (exam_id,question_id,position) VALUES ($1,$2,$3)`,
			sess.ID, qid, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT id,user_id,created_at,finished_at,score FROM exams WHERE id=$1`, id))
	if err != nil {
		return Session{}, err
	}
	sess.QuestionIDs, err = loadQuestionIDs(ctx, s.db, id)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,user_id,created_at,finished_at,score FROM exams
		 WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertAnswers(ctx context.Context, sessionID string, answers []Answer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var finished sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT finished_at FROM exams WHERE id=$1`, sessionID).Scan(&finished)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if finished.Valid {
		return ErrAlreadyFinished
	}

	for _, a := range answers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (exam_id,question_id,selected_option,is_correct)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (exam_id,question_id) DO UPDATE
			 SET selected_option=EXCLUDED.selected_option, is_correct=EXCLUDED.is_correct`,
			sessionID, a.QuestionID, string(a.Selected), a.IsCorrect); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetAnswers(ctx context.Context, sessionID string) ([]Answer, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id,selected_option,is_correct FROM answers
		 WHERE exam_id=$1 ORDER BY question_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Answer
	for rows.Next() {
		a := Answer{SessionID: sessionID}
		var sel string
		if err := rows.Scan(&a.QuestionID, &sel, &a.IsCorrect); err != nil {
			return nil, err
		}
		a.Selected = content.Option(sel)
		out = append(out, a)
	}
	return out, rows.Err()
}

// FinalizeSession reads the ledger and freezes score and finish time in
// one transaction, guarded by finished_at IS NULL so a retry or a racing
// results request performs no second mutation.
func (s *SQLStore) FinalizeSession(ctx context.Context, sessionID string, penalty decimal.Decimal) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	sess, err := scanSession(tx.QueryRowContext(ctx,
		`SELECT id,user_id,created_at,finished_at,score FROM exams WHERE id=$1`, sessionID))
	if err != nil {
		return Session{}, err
	}
	sess.QuestionIDs, err = loadQuestionIDs(ctx, tx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Finished() {
		return sess, nil
	}

	var t Tally
	rows, err := tx.QueryContext(ctx,
		`SELECT is_correct, COUNT(*) FROM answers WHERE exam_id=$1 GROUP BY is_correct`, sessionID)
	if err != nil {
		return Session{}, err
	}
	for rows.Next() {
		var correct bool
		var n int
		if err := rows.Scan(&correct, &n); err != nil {
			rows.Close()
			return Session{}, err
		}
		if correct {
			t.Correct = n
		} else {
			t.Incorrect = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Session{}, err
	}
	t.Unanswered = len(sess.QuestionIDs) - t.Correct - t.Incorrect

	score := computeScore(t, penalty)
	at := time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`UPDATE exams SET score=$1, finished_at=$2 WHERE id=$3 AND finished_at IS NULL`,
		score.StringFixed(2), at.Unix(), sessionID)
	if err != nil {
		return Session{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// lost a race inside the storage engine; the other writer's
		// state is authoritative
		if err := tx.Commit(); err != nil {
			return Session{}, err
		}
		return s.GetSession(ctx, sessionID)
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	sess.Score = &score
	sess.FinishedAt = &at
	return sess, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// loadQuestionIDs returns the session's bound question ids in draw
// order; works over the pool or an open transaction.
func loadQuestionIDs(ctx context.Context, q queryer, sessionID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT question_id FROM exam_questions WHERE exam_id=$1 ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var qid string
		if err := rows.Scan(&qid); err != nil {
			return nil, err
		}
		ids = append(ids, qid)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var created int64
	var finished sql.NullInt64
	var score sql.NullString
	err := row.Scan(&sess.ID, &sess.UserID, &created, &finished, &score)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	sess.CreatedAt = time.Unix(created, 0).UTC()
	if finished.Valid {
		at := time.Unix(finished.Int64, 0).UTC()
		sess.FinishedAt = &at
	}
	if score.Valid {
		d, err := decimal.NewFromString(score.String)
		if err != nil {
			return Session{}, err
		}
		sess.Score = &d
	}
	return sess, nil
}
