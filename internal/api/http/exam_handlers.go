package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auth "github.com/opotest/opotest/internal/auth/middleware"
	"github.com/opotest/opotest/internal/content"
	"github.com/opotest/opotest/internal/exam"
)

// POST /exams -> new session for the authenticated user
func CreateExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		sess, err := svc.CreateSession(r.Context(), sub)
		if err != nil {
			renderExamError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{
			"id":              sess.ID,
			"created_at":      sess.CreatedAt,
			"total_questions": len(sess.QuestionIDs),
			"first_page":      1,
		})
	}
}

// GET /exams -> the caller's sessions, newest first
func ListExamsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		list, err := svc.ListSessions(r.Context(), sub)
		if err != nil {
			renderExamError(w, r, err)
			return
		}
		if list == nil {
			list = []exam.Session{}
		}
		writeJSON(w, list)
	}
}

// GET /exams/{examID}/pages/{page}
func GetExamPageHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		page := parsePage(chi.URLParam(r, "page"))
		p, err := svc.GetPage(r.Context(), chi.URLParam(r, "examID"), sub, page)
		if err != nil {
			renderExamError(w, r, err)
			return
		}
		writeJSON(w, p)
	}
}

type submitPageRequest struct {
	Answers map[string]string `json:"answers" validate:"dive,oneof=A B C D"`
}

// POST /exams/{examID}/pages/{page}
func SubmitExamPageHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitPageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "answers must use letters A-D", http.StatusBadRequest)
			return
		}
		selections := make(map[string]content.Option, len(req.Answers))
		for qid, letter := range req.Answers {
			selections[qid] = content.Option(letter)
		}
		sub := auth.SubjectFromContext(r.Context())
		page := parsePage(chi.URLParam(r, "page"))
		next, err := svc.SubmitPage(r.Context(), chi.URLParam(r, "examID"), sub, page, selections)
		if err != nil {
			renderExamError(w, r, err)
			return
		}
		writeJSON(w, next)
	}
}

// GET /exams/{examID}/results
func GetExamResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		res, err := svc.Results(r.Context(), chi.URLParam(r, "examID"), sub)
		if err != nil {
			renderExamError(w, r, err)
			return
		}
		writeJSON(w, res)
	}
}

// parsePage is forgiving: garbage becomes page 1, the service clamps
// whatever is out of range.
func parsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
