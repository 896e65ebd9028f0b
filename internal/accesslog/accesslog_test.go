package accesslog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	auth "github.com/opotest/opotest/internal/auth/middleware"
)

type captureAppender struct{ entries []Entry }

func (c *captureAppender) Append(_ context.Context, e Entry) error {
	c.entries = append(c.entries, e)
	return nil
}

func TestMiddlewareRecordsAnonymousRequest(t *testing.T) {
	rec := &captureAppender{}
	h := Middleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "10.1.2.3:4567"
	h.ServeHTTP(httptest.NewRecorder(), r)

	if len(rec.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Subject != "" {
		t.Fatalf("subject = %q, want empty for anonymous", e.Subject)
	}
	if e.Method != "POST" || e.Path != "/auth/login" || e.Status != http.StatusUnauthorized || e.IP != "10.1.2.3" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestMiddlewareRecordsSubject(t *testing.T) {
	rec := &captureAppender{}
	h := Middleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/exams", nil)
	r = r.WithContext(auth.WithSubject(r.Context(), "u1"))
	h.ServeHTTP(httptest.NewRecorder(), r)

	if len(rec.entries) != 1 || rec.entries[0].Subject != "u1" {
		t.Fatalf("unexpected entries: %+v", rec.entries)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/exams", nil)
	r.RemoteAddr = "10.1.2.3:4567"
	if got := clientIP(r); got != "10.1.2.3" {
		t.Fatalf("clientIP = %q, want 10.1.2.3", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("clientIP = %q, want first forwarded hop", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("clientIP = %q, want forwarded ip", got)
	}
}
