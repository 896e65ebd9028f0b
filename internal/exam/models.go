package exam

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opotest/opotest/internal/content"
)

// Session is one exam simulation run by a single user. The question set
// is bound at creation and never changes. FinishedAt and Score are set
// together, once, by the scoring engine; either both are nil or neither is.
type Session struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	CreatedAt   time.Time        `json:"created_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
	Score       *decimal.Decimal `json:"score,omitempty"`
	QuestionIDs []string         `json:"-"` // draw order, drives pagination
}

// Finished reports whether the session is terminal.
func (s Session) Finished() bool { return s.FinishedAt != nil }

// Answer is the last recorded choice for one question of one session.
// At most one exists per (session, question); re-submitting overwrites it
// and recomputes IsCorrect against the question's correct letter.
type Answer struct {
	SessionID  string         `json:"-"`
	QuestionID string         `json:"question_id"`
	Selected   content.Option `json:"selected"`
	IsCorrect  bool           `json:"is_correct"`
}

// PageQuestion is a question as served to the exam taker: no correct
// letter, no explanation.
type PageQuestion struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
	OptionA   string `json:"option_a"`
	OptionB   string `json:"option_b"`
	OptionC   string `json:"option_c"`
	OptionD   string `json:"option_d"`
}

// Page is one screen of questions.
type Page struct {
	Number         int            `json:"number"`
	TotalPages     int            `json:"total_pages"`
	TotalQuestions int            `json:"total_questions"`
	HasNext        bool           `json:"has_next"`
	Questions      []PageQuestion `json:"questions"`
}

// NextAction tells the caller where to go after a page submission.
type NextAction struct {
	Finished bool `json:"finished"`
	NextPage int  `json:"next_page,omitempty"`
}

// FailedQuestion is a wrongly answered question with syllabus context
// for the review screen.
type FailedQuestion struct {
	content.QuestionContext
	Selected     content.Option `json:"selected"`
	SelectedText string         `json:"selected_text"`
}

// Results is the frozen outcome of a finished session.
type Results struct {
	SessionID  string           `json:"session_id"`
	Correct    int              `json:"correct"`
	Incorrect  int              `json:"incorrect"`
	Unanswered int              `json:"unanswered"`
	Total      int              `json:"total"`
	Score      decimal.Decimal  `json:"score"`
	FinishedAt time.Time        `json:"finished_at"`
	Failed     []FailedQuestion `json:"failed_questions"`
}
