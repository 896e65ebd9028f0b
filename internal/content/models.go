package content

import "fmt"

// Option is one of the four answer letters of a test question.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// ParseOption normalizes and validates an answer letter.
func ParseOption(s string) (Option, error) {
	switch Option(s) {
	case OptionA, OptionB, OptionC, OptionD:
		return Option(s), nil
	}
	return "", fmt.Errorf("invalid option letter %q", s)
}

// Subject is a top-level block of the syllabus ("Bloque I: ...").
type Subject struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Chapter is a section within a Subject. Questions hang off chapters,
// and a chapter may carry a downloadable document (PDF).
type Chapter struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subject_id"`
	Title       string `json:"title"`
	Order       int    `json:"order"`
	DocumentKey string `json:"document_key,omitempty"` // blob store key, empty if none
}

// Question is an immutable multiple-choice question. Statement and option
// texts may contain Markdown.
type Question struct {
	ID            string `json:"id"`
	ChapterID     string `json:"chapter_id,omitempty"`
	Statement     string `json:"statement"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption Option `json:"correct_option,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// OptionText returns the text of the given answer letter.
func (q Question) OptionText(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// QuestionContext is a question together with where it sits in the
// syllabus, used on the results review screen.
type QuestionContext struct {
	Question
	ChapterTitle string `json:"chapter_title,omitempty"`
	SubjectTitle string `json:"subject_title,omitempty"`
}
