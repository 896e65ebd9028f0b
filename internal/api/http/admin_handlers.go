package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opotest/opotest/internal/content"
	"github.com/opotest/opotest/internal/storage"
)

// POST /admin/questions/bulk
// Accepts either multipart file= (CSV or JSON) or a raw JSON array.
func BulkUpsertQuestionsHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var qs []content.Question
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			// sniff CSV vs JSON by first byte
			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				http.Error(w, "empty file", http.StatusBadRequest)
				return
			}
			if _, err := f.(io.Seeker).Seek(0, io.SeekStart); err != nil {
				http.Error(w, "unseekable upload", http.StatusBadRequest)
				return
			}
			if buf[0] == '[' || buf[0] == '{' {
				if err := json.NewDecoder(f).Decode(&qs); err != nil {
					http.Error(w, "bad json", http.StatusBadRequest)
					return
				}
			} else {
				rows, err := parseQuestionsCSV(f)
				if err != nil {
					http.Error(w, "bad csv: "+err.Error(), http.StatusBadRequest)
					return
				}
				qs = rows
			}
		} else {
			if err := json.NewDecoder(r.Body).Decode(&qs); err != nil {
				http.Error(w, "expected JSON array or multipart file", http.StatusBadRequest)
				return
			}
		}
		n, err := store.BulkUpsertQuestions(r.Context(), qs)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]int{"upserted": n})
	}
}

// PUT /admin/subjects/{subjectID}
func UpsertSubjectHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s content.Subject
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s.ID = chi.URLParam(r, "subjectID")
		if s.Title == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		if err := store.UpsertSubject(r.Context(), s); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, s)
	}
}

// PUT /admin/chapters/{chapterID}
func UpsertChapterHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c content.Chapter
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c.ID = chi.URLParam(r, "chapterID")
		if c.SubjectID == "" || c.Title == "" {
			http.Error(w, "subject_id and title required", http.StatusBadRequest)
			return
		}
		if err := store.UpsertChapter(r.Context(), c); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, c)
	}
}

// POST /admin/chapters/{chapterID}/document (multipart file=)
func UploadChapterDocumentHandler(store content.Store, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chapterID := chi.URLParam(r, "chapterID")
		ch, err := store.GetChapter(r.Context(), chapterID)
		if errors.Is(err, content.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		key := "chapters/" + chapterID + "/" + hdr.Filename
		if _, err := bs.Put(key, f); err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		ch.DocumentKey = key
		if err := store.UpsertChapter(r.Context(), ch); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"key": key})
	}
}

// CSV columns: id,chapter_id,statement,option_a,option_b,option_c,option_d,correct_option,explanation
func parseQuestionsCSV(f multipart.File) ([]content.Question, error) {
	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	records, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []content.Question
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && strings.EqualFold(rec[0], "id") {
			continue // header
		}
		if len(rec) < 8 {
			return nil, errors.New("row " + strconv.Itoa(i+1) + ": need at least 8 columns")
		}
		q := content.Question{
			ID:            strings.TrimSpace(rec[0]),
			ChapterID:     strings.TrimSpace(rec[1]),
			Statement:     rec[2],
			OptionA:       rec[3],
			OptionB:       rec[4],
			OptionC:       rec[5],
			OptionD:       rec[6],
			CorrectOption: content.Option(strings.ToUpper(strings.TrimSpace(rec[7]))),
		}
		if len(rec) > 8 {
			q.Explanation = rec[8]
		}
		out = append(out, q)
	}
	return out, nil
}
