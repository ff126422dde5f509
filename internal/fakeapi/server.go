// Package fakeapi is a local stand-in for the notes REST API: notes live in
// memory and image blobs on disk.
package fakeapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the notes API.
type Server struct {
	store     *Store
	blobs     *Blobs
	metrics   *Metrics
	registry  *prometheus.Registry
	logger    *slog.Logger
	publicURL string
}

// Option configures a Server.
type Option func(*Server)

// WithPublicURL roots image URLs at base instead of the request host.
func WithPublicURL(base string) Option {
	return func(s *Server) {
		s.publicURL = strings.TrimSuffix(base, "/")
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New returns a server keeping blobs under dataDir.
func New(dataDir string, opts ...Option) (*Server, error) {
	blobs, err := NewBlobs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("init blobs: %w", err)
	}
	s := &Server{
		store: NewStore(),
		blobs: blobs,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics("lumen", "fake_api", s.registry)
	return s, nil
}

// Metrics exposes the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestObserver(s.logger, s.metrics))
	r.Use(panicRecovery(s.logger, s.metrics))
	r.Use(cors)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Get("/notes", s.listNotes)
	r.Post("/notes", s.createNote)
	r.Get("/notes/{id}", s.getNote)
	r.Put("/notes/{id}", s.updateNote)
	r.Delete("/notes/{id}", s.deleteNote)
	r.Post("/notes/{id}/images", s.uploadImage)
	r.Delete("/notes/{id}/images/*", s.deleteImage)

	r.Get("/files/*", s.serveFile)

	return r
}
