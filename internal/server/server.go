// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes sessions over HTTP: a JSON API for uploads,
// processing, events, and exports, plus the HTML pages of the UI.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/flavia/internal/logging"
	"github.com/pdiddy/flavia/internal/metrics"
	"github.com/pdiddy/flavia/internal/render"
	"github.com/pdiddy/flavia/internal/session"
)

// DefaultMaxUploadBytes bounds an upload when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// maxEventBytes bounds the body of one event envelope.
const maxEventBytes = 64 << 10

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	manager   *session.Manager
	renderer  *render.Renderer
	metrics   *metrics.Collector
	logger    *slog.Logger
	maxUpload int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for requests and handler errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics mounts /metrics and counts exports on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithMaxUploadBytes limits the size of an uploaded file. Non-positive
// values keep the default.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New creates a Server over manager.
func New(manager *session.Manager, opts ...Option) (*Server, error) {
	r, err := render.New()
	if err != nil {
		return nil, err
	}
	s := &Server{
		manager:   manager,
		renderer:  r,
		logger:    logging.NewNop(),
		maxUpload: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Requests(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/", s.handleIndex)
	r.Post("/sessions", s.handleNewPage)
	r.Get("/sessions/{id}", s.handlePage)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/upload", s.handleUpload)
			r.Post("/process", s.handleProcess)
			r.Put("/query", s.handleQuery)
			r.Post("/events", s.handleEvent)
			r.Get("/sentences", s.handleSentences)
			r.Get("/entries", s.handleEntries)
			r.Get("/export/{format}", s.handleExport)
		})
	})
	return r
}
