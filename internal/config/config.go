package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ExamConfig holds the tuning knobs of the exam engine. It is passed
// explicitly into the session service so tests can run with small values.
type ExamConfig struct {
	QuestionsPerExam int             // size of the random draw (default 100)
	PageSize         int             // questions served per page (default 10)
	ErrorPenalty     decimal.Decimal // points subtracted per wrong answer
}

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string // chapter documents live here

	AuthHMACSecret string

	CORSOrigins []string

	Exam ExamConfig
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:       addr,
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data"),
		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
		Exam: ExamConfig{
			QuestionsPerExam: envInt("QUESTIONS_PER_EXAM", 100),
			PageSize:         envInt("PAGE_SIZE", 10),
			ErrorPenalty:     envDecimal("ERROR_PENALTY", "0.33"),
		},
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDecimal(k, def string) decimal.Decimal {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		d, _ = decimal.NewFromString(def)
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
