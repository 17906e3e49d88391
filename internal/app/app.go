// Package app wires the configured components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/optlab/internal/api"
	apihandler "github.com/newthinker/optlab/internal/api/handler/api"
	"github.com/newthinker/optlab/internal/api/job"
	"github.com/newthinker/optlab/internal/backtest"
	"github.com/newthinker/optlab/internal/client"
	"github.com/newthinker/optlab/internal/collector"
	"github.com/newthinker/optlab/internal/collector/yahoo"
	"github.com/newthinker/optlab/internal/config"
	"github.com/newthinker/optlab/internal/core"
	"github.com/newthinker/optlab/internal/llm/factory"
	"github.com/newthinker/optlab/internal/logger"
	"github.com/newthinker/optlab/internal/metrics"
	"github.com/newthinker/optlab/internal/notifier"
	"github.com/newthinker/optlab/internal/notifier/webhook"
	"github.com/newthinker/optlab/internal/review"
	"github.com/newthinker/optlab/internal/service"
	"github.com/newthinker/optlab/internal/storage/archive"
	"github.com/newthinker/optlab/internal/strategy"
	"github.com/newthinker/optlab/internal/strategy/cash_secured_put"
	"github.com/newthinker/optlab/internal/strategy/covered_call"
	"github.com/newthinker/optlab/internal/strategy/iron_condor"
	"github.com/newthinker/optlab/internal/treasury"
)

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	provider   collector.Provider
	strategies *strategy.Registry
	service    *service.Service
	remote     *client.Client
	jobs       *job.Store
	archiver   *archive.Archiver
	reviewer   *review.Reviewer
	notifiers  *notifier.Registry
	interval   time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// Option overrides a component, mainly for tests.
type Option func(*App)

// WithProvider replaces the market data provider.
func WithProvider(p collector.Provider) Option {
	return func(a *App) { a.provider = p }
}

// New builds every component from cfg
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		logger:   log,
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	if a.provider == nil {
		y := yahoo.New(yahoo.Config{
			ChartURL:       cfg.Collector.ChartURL,
			OptionsURL:     cfg.Collector.OptionsURL,
			Timeout:        cfg.Collector.Timeout,
			RequestsPerSec: cfg.Collector.RequestsPerSec,
			MaxRetries:     cfg.Collector.MaxRetries,
		}, logger.Named(log, "yahoo"))
		if a.metrics != nil {
			y.OnRequest = a.metrics.RecordCollectorRequest
		}
		a.provider = collector.NewCached(y, cfg.Collector.CacheTTL)
	}

	a.strategies = strategy.NewRegistry(
		covered_call.New(),
		cash_secured_put.New(),
		iron_condor.New(),
	)

	weekday, err := cfg.Backtest.Weekday()
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	engine := backtest.New(a.provider, a.strategies,
		backtest.WithLogger(logger.Named(log, "backtest")),
		backtest.WithLookbackYears(cfg.Backtest.LookbackYears),
		backtest.WithEntryWeekday(weekday),
	)

	var rates service.RateSource = service.StaticRate(cfg.Backtest.RiskFreeRate)
	if cfg.Backtest.RiskFreeSource == config.RiskFreeTreasury {
		rates = treasury.New(treasury.Config{
			BaseURL:  cfg.Backtest.TreasuryURL,
			Fallback: cfg.Backtest.RiskFreeRate,
		}, logger.Named(log, "treasury"))
	}
	var recorder service.Recorder
	if a.metrics != nil {
		recorder = a.metrics
	}
	a.service = service.New(engine, rates, recorder, logger.Named(log, "service"))

	if cfg.Backend.URL != "" {
		a.remote = client.New(cfg.Backend.URL,
			client.WithTimeout(cfg.Backend.Timeout),
			client.WithLogger(logger.Named(log, "client")))
	}

	a.jobs = job.NewStore(cfg.Server.MaxJobs, time.Duration(cfg.Server.JobTTLHours)*time.Hour)

	if cfg.Storage.Archive.Enabled {
		storage, err := newStorage(cfg.Storage.Archive)
		if err != nil {
			return nil, fmt.Errorf("creating archive storage: %w", err)
		}
		a.archiver = archive.NewArchiver(storage, logger.Named(log, "archive"))
	}

	provider, err := factory.New(cfg.LLM)
	switch {
	case errors.Is(err, core.ErrLLMUnavailable):
		provider = nil
	case err != nil:
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}
	a.reviewer = review.New(provider, logger.Named(log, "review"))

	a.notifiers = notifier.NewRegistry()
	if hook := cfg.Notify.Webhook; hook.URL != "" {
		w, err := webhook.New(hook.URL, hook.Headers, hook.Timeout)
		if err != nil {
			return nil, err
		}
		if err := a.notifiers.Register(w); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func newStorage(cfg config.ArchiveConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	case "", "localfs":
		return archive.NewLocalFS(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}

// Service returns the in-process backtest service
func (a *App) Service() *service.Service {
	return a.service
}

// Runner returns the remote backend client when backend.url is set,
// otherwise the in-process service.
func (a *App) Runner() service.Runner {
	if a.remote != nil {
		return a.remote
	}
	return a.service
}

// Metrics returns the registry, or nil when metrics are disabled
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Jobs returns the job store
func (a *App) Jobs() *job.Store {
	return a.jobs
}

// Server builds the HTTP server over the app's components
func (a *App) Server() (*api.Server, error) {
	return api.NewServer(api.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		APIKey:      a.cfg.Server.APIKey,
		CORSOrigin:  a.cfg.Server.CORSOrigin,
		MetricsPath: a.cfg.Metrics.Path,
		JobTimeout:  a.cfg.Server.JobTimeout,
	}, api.Dependencies{
		Backend:  a.service,
		Notifier: a.jobNotifier(),
		UI:       a.Runner(),
		Jobs:     a.jobs,
		Archiver: a.archiver,
		Reviewer: a.reviewer,
		Metrics:  a.metrics,
	}, a.logger.Named("api"))
}

// jobNotifier is nil when no notifier is configured
func (a *App) jobNotifier() apihandler.JobNotifier {
	if a.notifiers.Len() == 0 {
		return nil
	}
	return a.notifiers
}

// SetInterval sets how often finished jobs are swept
func (a *App) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = d
}

// Start runs the housekeeping loop until ctx is cancelled or Stop is called
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	interval := a.interval
	a.mu.Unlock()

	a.logger.Info("optlab starting",
		zap.Strings("strategies", a.strategyNames()),
		zap.String("provider", a.provider.Name()),
		zap.Bool("remote_backend", a.remote != nil),
		zap.Bool("archive", a.archiver != nil),
		zap.String("reviewer", a.reviewer.Provider()),
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("optlab shutting down")
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.RunOnce()
		}
	}
}

// Stop stops the housekeeping loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// RunOnce sweeps expired jobs and returns how many were removed
func (a *App) RunOnce() int {
	removed := a.jobs.Cleanup()
	if removed > 0 {
		a.logger.Debug("expired jobs removed", zap.Int("count", removed))
	}
	return removed
}

func (a *App) strategyNames() []string {
	all := a.strategies.GetAll()
	names := make([]string, 0, len(all))
	for _, s := range all {
		names = append(names, string(s.Name()))
	}
	return names
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"running":     a.running,
		"strategies":  len(a.strategies.GetAll()),
		"jobs":        len(a.jobs.List()),
		"jobs_active": a.jobs.Active(),
		"archive":     a.archiver != nil,
		"reviewer":    a.reviewer.Provider(),
		"remote":      a.remote != nil,
		"notifiers":   a.notifiers.Len(),
	}
}
