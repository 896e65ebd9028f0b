package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	auth "github.com/opotest/opotest/internal/auth/middleware"
	"github.com/opotest/opotest/internal/content"
	"github.com/opotest/opotest/internal/exam"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// renderExamError maps the exam error taxonomy onto HTTP. Forbidden is
// deliberately rendered as the not-found response so callers cannot
// probe for other users' exam ids; the distinction is kept in the log.
func renderExamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, exam.ErrForbidden):
		log.Printf("exam access denied: sub=%s %s %s", auth.SubjectFromContext(r.Context()), r.Method, r.URL.Path)
		http.Error(w, exam.ErrNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrNotFound):
		http.Error(w, exam.ErrNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrAlreadyFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, exam.ErrInvalidQuestion), errors.Is(err, exam.ErrInvalidOption):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, exam.ErrNoQuestionsAvailable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, content.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
		log.Printf("exam handler error: %v", err)
	}
}
