package accesslog

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	auth "github.com/opotest/opotest/internal/auth/middleware"
)

// Entry is one recorded request: who hit what, from where, with what
// outcome.
type Entry struct {
	IP        string
	Subject   string // user id, empty for anonymous
	Method    string
	Path      string
	Status    int
	CreatedAt int64
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_log (ip, subject, method, path, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.IP, e.Subject, e.Method, e.Path, e.Status, time.Now().Unix())
	return err
}

// Appender records one access entry; *Repo is the SQL implementation.
type Appender interface {
	Append(ctx context.Context, e Entry) error
}

// Middleware appends one entry per request after the handler runs.
// Subject is empty on unauthenticated routes. Logging failures never
// fail the request.
func Middleware(repo Appender) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			_ = repo.Append(r.Context(), Entry{
				IP:      clientIP(r),
				Subject: auth.SubjectFromContext(r.Context()),
				Method:  r.Method,
				Path:    r.URL.Path,
				Status:  ww.Status(),
			})
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
