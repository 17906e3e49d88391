// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/newthinker/optlab/internal/api/handler/api"
	"github.com/newthinker/optlab/internal/api/handler/web"
	"github.com/newthinker/optlab/internal/api/job"
	"github.com/newthinker/optlab/internal/api/middleware"
	"github.com/newthinker/optlab/internal/metrics"
	"github.com/newthinker/optlab/internal/service"
	"github.com/newthinker/optlab/internal/storage/archive"
)

// Server represents the HTTP server for optlab
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     *mux.Router
	jobs       *apihandler.JobsHandler
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	CORSOrigin  string
	MetricsPath string
	JobTimeout  time.Duration
}

// Dependencies are the components the routes call into.
type Dependencies struct {
	// Backend runs GET /backtest and the job API.
	Backend service.Runner
	// UI runs backtests for the web form; defaults to Backend.
	UI       service.Runner
	Jobs     *job.Store
	Archiver *archive.Archiver
	Reviewer apihandler.Reviewer
	Notifier apihandler.JobNotifier
	Metrics  *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("creating server: no backtest runner")
	}
	if deps.UI == nil {
		deps.UI = deps.Backend
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(100, time.Hour)
	}

	router := mux.NewRouter()
	s := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			// Backtests fetch a chain per week, so writes get a long deadline
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		router: router,
	}

	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	s.router.Use(middleware.Recover(s.logger))
	s.router.Use(metrics.LoggingMiddleware(s.logger.Named("http")))
	if deps.Metrics != nil {
		s.router.Use(metrics.HTTPMiddleware(deps.Metrics))
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.Handle(path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	// Flat backend endpoint consumed by the form and the CLI client
	backtest := apihandler.NewBacktestHandler(deps.Backend, s.logger.Named("backtest"))
	s.router.Handle("/backtest",
		middleware.CORS(cfg.CORSOrigin)(http.HandlerFunc(backtest.Run))).
		Methods(http.MethodGet, http.MethodOptions)

	// Versioned API
	opts := []apihandler.JobsOption{
		apihandler.WithJobTimeout(cfg.JobTimeout),
		apihandler.WithJobLogger(s.logger.Named("jobs")),
	}
	if deps.Archiver != nil {
		opts = append(opts, apihandler.WithArchiver(deps.Archiver))
	}
	if deps.Reviewer != nil {
		opts = append(opts, apihandler.WithReviewer(deps.Reviewer))
	}
	if deps.Notifier != nil {
		opts = append(opts, apihandler.WithNotifier(deps.Notifier))
	}
	if deps.Metrics != nil {
		opts = append(opts, apihandler.WithJobMetrics(deps.Metrics))
	}
	s.jobs = apihandler.NewJobsHandler(deps.Jobs, deps.Backend, opts...)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(middleware.APIKeyAuth(cfg.APIKey))
	v1.HandleFunc("/backtests", s.jobs.Create).Methods(http.MethodPost)
	v1.HandleFunc("/backtests", s.jobs.List).Methods(http.MethodGet)
	v1.HandleFunc("/backtests/{id}", s.jobs.Get).Methods(http.MethodGet)
	v1.HandleFunc("/backtests/{id}/review", s.jobs.Review).Methods(http.MethodGet)
	if deps.Archiver != nil {
		archived := apihandler.NewArchiveHandler(deps.Archiver, s.logger.Named("archive"))
		v1.HandleFunc("/archive", archived.List).Methods(http.MethodGet)
		v1.HandleFunc("/archive/{key:.+}", archived.Get).Methods(http.MethodGet)
	}

	// Web UI routes
	webHandler, err := web.NewHandler(deps.UI, s.logger.Named("web"))
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}
	s.router.HandleFunc("/", webHandler.Index).Methods(http.MethodGet)
	s.router.HandleFunc("/export.csv", webHandler.ExportCSV).Methods(http.MethodGet)

	return nil
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and waits for running jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("jobs still running at shutdown")
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
