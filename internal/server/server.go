// Package server provides the HTTP API for uploaded surveys.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/crosstab/internal/config"
	"github.com/hyperjump/crosstab/internal/survey"
	"go.uber.org/zap"
)

const defaultMaxUpload = 16 << 20

// InboxManager manages watched inbox directories; *watcher.Watcher implements it.
type InboxManager interface {
	Inboxes() []string
	AddInbox(dir string, ingestExisting bool) error
	RemoveInbox(dir string) error
}

// Server is the HTTP server for the survey API.
type Server struct {
	surveys *survey.Service
	cfg     *config.Config
	logger  *zap.Logger
	server  *http.Server

	watch      InboxManager
	configPath string
	cfgMu      sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithWatcher enables the inbox endpoints. When configPath is set, inbox
// changes are saved back to that file.
func WithWatcher(w InboxManager, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(surveys *survey.Service, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{surveys: surveys, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router serving every endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if s.cfg != nil && s.cfg.Debug {
		r.Use(middleware.Logger)
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/search", s.handleSearch)

		r.Route("/surveys", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleListSurveys)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSurvey)
				r.Delete("/", s.handleDeleteSurvey)
				r.Get("/data", s.handleSurveyData)
				r.Get("/questions", s.handleQuestionIDs)
				r.Get("/questions/search", s.handleSearchQuestions)
				r.Get("/questions/{qid}", s.handleGetQuestion)
				r.Post("/crosstab", s.handleCrossTab)
			})
		})

		r.Route("/watch/directories", func(r chi.Router) {
			r.Get("/", s.handleWatchList)
			r.Post("/", s.handleWatchAdd)
			r.Delete("/", s.handleWatchRemove)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
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

func (s *Server) maxUpload() int64 {
	if s.cfg != nil && s.cfg.Server.MaxUploadBytes > 0 {
		return s.cfg.Server.MaxUploadBytes
	}
	return defaultMaxUpload
}
