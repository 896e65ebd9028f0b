package http

import (
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/opotest/opotest/internal/content"
	"github.com/opotest/opotest/internal/storage"
)

// GET /subjects
func ListSubjectsHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjects, err := store.ListSubjects(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if subjects == nil {
			subjects = []content.Subject{}
		}
		writeJSON(w, subjects)
	}
}

// GET /subjects/{subjectID} -> subject plus its ordered chapters
func GetSubjectHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, chapters, err := store.GetSubject(r.Context(), chi.URLParam(r, "subjectID"))
		if errors.Is(err, content.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if chapters == nil {
			chapters = []content.Chapter{}
		}
		writeJSON(w, map[string]any{"subject": sub, "chapters": chapters})
	}
}

// GET /chapters/{chapterID}/document -> stream the chapter's PDF
func DownloadChapterHandler(store content.Store, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, err := store.GetChapter(r.Context(), chi.URLParam(r, "chapterID"))
		if errors.Is(err, content.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if ch.DocumentKey == "" {
			http.Error(w, "chapter has no document", http.StatusNotFound)
			return
		}
		rc, err := bs.Get(ch.DocumentKey)
		if err != nil {
			http.Error(w, "chapter has no document", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(ch.DocumentKey)+`"`)
		_, _ = io.Copy(w, rc)
	}
}
