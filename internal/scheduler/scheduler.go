package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/riskibarqy/fpl-livescore/internal/usecase"
)

// Jobs is the maintenance work run on a timer.
type Jobs interface {
	SweepCache(ctx context.Context) (usecase.SweepResult, error)
	WarmLeagues(ctx context.Context, leagueIDs []int64) error
}

type Config struct {
	SweepInterval time.Duration
	// WarmInterval of zero or an empty WarmLeagueIDs disables warm-up.
	WarmInterval  time.Duration
	WarmLeagueIDs []int64
	JobTimeout    time.Duration
}

type Scheduler struct {
	s      gocron.Scheduler
	jobs   Jobs
	cfg    Config
	logger *logging.Logger
}

func NewScheduler(jobs Jobs, cfg Config, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		s:      s,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger.Named("scheduler"),
	}, nil
}

// Start registers the jobs and runs each one immediately, then on its interval.
func (s *Scheduler) Start() error {
	_, err := s.s.NewJob(
		gocron.DurationJob(s.cfg.SweepInterval),
		gocron.NewTask(s.sweepCache),
		gocron.WithName("cache-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache sweep job: %w", err)
	}

	if s.cfg.WarmInterval > 0 && len(s.cfg.WarmLeagueIDs) > 0 {
		_, err = s.s.NewJob(
			gocron.DurationJob(s.cfg.WarmInterval),
			gocron.NewTask(s.warmLeagues),
			gocron.WithName("league-warm-up"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("failed to create league warm-up job: %w", err)
		}
	}

	s.s.Start()
	return nil
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

func (s *Scheduler) sweepCache() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	result, err := s.jobs.SweepCache(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "cache sweep failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "cache sweep finished", "current_gameweek", result.CurrentGameweek, "removed", result.Removed)
}

func (s *Scheduler) warmLeagues() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	if err := s.jobs.WarmLeagues(ctx, s.cfg.WarmLeagueIDs); err != nil {
		s.logger.WarnContext(ctx, "league warm-up failed", "league_ids", s.cfg.WarmLeagueIDs, "error", err)
	}
}
