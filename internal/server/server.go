// Package server exposes the assistant over HTTP.
//
// Routes:
//
//	POST /api/query            ask a question
//	POST /api/feedback         rate a previous answer
//	GET  /api/status           datasets and learning counters
//	GET  /api/learning/report  performance report
//	GET  /api/learning/export  learning state as a JSON download
//	GET  /metrics              Prometheus metrics
//
// The caller is identified by the X-User-ID header; the role comes from the
// configuration.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/assistant"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/config"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/metrics"
)

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

// AnonymousUser is used when no user header is sent.
const AnonymousUser = "anonymous"

// Server holds the handlers' dependencies.
type Server struct {
	assistant *assistant.Assistant
	cfg       *config.Config
	metrics   *metrics.Exporter
	started   time.Time
}

// New creates a server. m may be nil, which disables /metrics.
func New(a *assistant.Assistant, cfg *config.Config, m *metrics.Exporter) *Server {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Server{assistant: a, cfg: cfg, metrics: m, started: time.Now()}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	if s.metrics != nil {
		r.Use(s.metricsMiddleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.query)
		r.Post("/feedback", s.feedback)
		r.Get("/status", s.status)
		r.Route("/learning", func(r chi.Router) {
			r.Get("/report", s.learningReport)
			r.Get("/export", s.learningExport)
		})
	})
	return r
}
