package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/fpl-livescore/external/fplapi"
	"github.com/riskibarqy/fpl-livescore/internal/config"
	"github.com/riskibarqy/fpl-livescore/internal/interfaces/httpapi"
	"github.com/riskibarqy/fpl-livescore/internal/platform/cache"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/riskibarqy/fpl-livescore/internal/platform/resilience"
	"github.com/riskibarqy/fpl-livescore/internal/scheduler"
	"github.com/riskibarqy/fpl-livescore/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// App owns the HTTP server, the background jobs and the snapshot backend.
type App struct {
	Server    *http.Server
	scheduler *scheduler.Scheduler
	started   bool
	closeRepo func() error
	logger    *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	repo, closeRepo, err := openSnapshotRepository(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open snapshot backend: %w", err)
	}
	retry := resilience.NormalizeRetryPolicy(resilience.RetryPolicy{
		MaxAttempts: cfg.FPLMaxAttempts,
		BaseDelay:   cfg.FPLBaseBackoff,
	})
	store := cache.NewStore(repo, logger.Named("cache"))
	store.SetLoadTimeout(loadBudget(retry, cfg.FPLTimeout))

	client := fplapi.NewClient(fplapi.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.FPLTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:   cfg.FPLBaseURL,
		UserAgent: cfg.FPLUserAgent,
		Limiter:   resilience.NewLimiter(cfg.FPLMaxConcurrency),
		Retry:     retry,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FPLCircuitEnabled,
			FailureThreshold: cfg.FPLCircuitFailureCount,
			OpenTimeout:      cfg.FPLCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FPLCircuitHalfOpenMaxReq,
		},
		Cache:  store,
		Logger: logger,
	})

	syncSvc := usecase.NewLeagueSyncService(client, store, cfg.SyncMaxWorkers, logger)
	scoringSvc := usecase.NewScoringService(client, syncSvc, cfg.ScoringMaxWorkers, logger)
	leagueSvc := usecase.NewLeagueService(client)
	maintenanceSvc := usecase.NewMaintenanceService(scoringSvc, syncSvc, store, cfg.CacheRetentionGameweeks, logger)

	handler := httpapi.NewHandler(scoringSvc, leagueSvc, maintenanceSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	jobs, err := scheduler.NewScheduler(maintenanceSvc, scheduler.Config{
		SweepInterval: cfg.CacheSweepInterval,
		WarmInterval:  cfg.LivePollInterval,
		WarmLeagueIDs: cfg.WarmLeagueIDs,
	}, logger)
	if err != nil {
		_ = closeRepo()
		return nil, err
	}

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		scheduler: jobs,
		closeRepo: closeRepo,
		logger:    logger,
	}, nil
}

// Start launches the background jobs. The HTTP server is started by the caller.
func (a *App) Start() error {
	if err := a.scheduler.Start(); err != nil {
		return err
	}
	a.started = true
	return nil
}

// Shutdown drains the HTTP server, stops the jobs and releases the snapshot
// backend, returning every error it met along the way.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	if a.started {
		if err := a.scheduler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
		}
	}
	if err := a.closeRepo(); err != nil {
		errs = append(errs, fmt.Errorf("close snapshot backend: %w", err))
	}
	return errors.Join(errs...)
}

// loadBudget is the longest one upstream fetch can take: every attempt
// timing out plus the throttled backoff after each.
func loadBudget(retry resilience.RetryPolicy, attemptTimeout time.Duration) time.Duration {
	budget := time.Duration(retry.MaxAttempts) * attemptTimeout
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		budget += retry.Delay(attempt, true)
	}
	return budget
}
