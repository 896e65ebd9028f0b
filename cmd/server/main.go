package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/opotest/opotest/internal/accesslog"
	api "github.com/opotest/opotest/internal/api/http"
	auth "github.com/opotest/opotest/internal/auth/middleware"
	"github.com/opotest/opotest/internal/config"
	"github.com/opotest/opotest/internal/content"
	"github.com/opotest/opotest/internal/db"
	"github.com/opotest/opotest/internal/exam"
	"github.com/opotest/opotest/internal/rbac"
	"github.com/opotest/opotest/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	catalog := content.NewSQLStore(dbh)
	examStore := exam.NewSQLStore(dbh)
	examSvc := exam.NewService(examStore, catalog, cfg.Exam)
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	logRepo := accesslog.NewRepo(dbh)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes still hit the access log, with an empty subject.
	r.Group(func(pub chi.Router) {
		pub.Use(accesslog.Middleware(logRepo))
		pub.Post("/auth/login", api.LoginHandler(authSvc, dbh))
		pub.Post("/auth/reset-password", api.ResetPasswordHandler())
	})

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(accesslog.Middleware(logRepo))

		pr.With(rbac.Require("user:change_password")).
			Post("/auth/change-password", api.ChangePasswordHandler(dbh))

		// Syllabus
		pr.With(rbac.Require("content:view")).
			Get("/subjects", api.ListSubjectsHandler(catalog))
		pr.With(rbac.Require("content:view")).
			Get("/subjects/{subjectID}", api.GetSubjectHandler(catalog))
		pr.With(rbac.Require("content:download")).
			Get("/chapters/{chapterID}/document", api.DownloadChapterHandler(catalog, bs))

		// Exam simulation flow
		pr.With(rbac.Require("exam:take")).
			Post("/exams", api.CreateExamHandler(examSvc))
		pr.With(rbac.Require("exam:take")).
			Get("/exams", api.ListExamsHandler(examSvc))
		pr.With(rbac.Require("exam:take")).
			Get("/exams/{examID}/pages/{page}", api.GetExamPageHandler(examSvc))
		pr.With(rbac.Require("exam:take")).
			Post("/exams/{examID}/pages/{page}", api.SubmitExamPageHandler(examSvc))
		pr.With(rbac.Require("exam:results")).
			Get("/exams/{examID}/results", api.GetExamResultsHandler(examSvc))

		// Content administration
		pr.With(rbac.Require("content:manage")).
			Post("/admin/questions/bulk", api.BulkUpsertQuestionsHandler(catalog))
		pr.With(rbac.Require("content:manage")).
			Put("/admin/subjects/{subjectID}", api.UpsertSubjectHandler(catalog))
		pr.With(rbac.Require("content:manage")).
			Put("/admin/chapters/{chapterID}", api.UpsertChapterHandler(catalog))
		pr.With(rbac.Require("content:manage")).
			Post("/admin/chapters/{chapterID}/document", api.UploadChapterDocumentHandler(catalog, bs))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, questions_per_exam=%d, page_size=%d)",
		cfg.HTTPAddr, cfg.DBDriver, cfg.Exam.QuestionsPerExam, cfg.Exam.PageSize)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
