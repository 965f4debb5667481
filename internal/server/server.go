// Package server provides the HTTP API for Shirabe.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/karakuri/shirabe/internal/config"
	"github.com/karakuri/shirabe/internal/retrieval"
	"github.com/karakuri/shirabe/internal/watcher"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Shirabe API. The retrieval service does
// no locking of its own, so every handler takes mu before touching it.
type Server struct {
	svc        *retrieval.Service
	cfg        *config.Config
	configPath string
	watch      *watcher.Watcher
	logger     *zap.Logger
	server     *http.Server
	mu         sync.Mutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWatcher attaches a directory watcher and enables the watch endpoints.
// configPath, when non-empty, is where directory add/remove is persisted.
func WithWatcher(w *watcher.Watcher, configPath string) ServerOption {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(svc *retrieval.Service, cfg *config.Config, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/documents", s.handleIndexDocument)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/index/save", s.handleSaveIndex)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
