package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
)

// MaintenanceService runs the periodic cache jobs.
type MaintenanceService struct {
	scoring   *ScoringService
	sync      *LeagueSyncService
	cache     SnapshotCache
	retention int
	logger    *logging.Logger
}

func NewMaintenanceService(scoring *ScoringService, sync *LeagueSyncService, store SnapshotCache, retention int, logger *logging.Logger) *MaintenanceService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MaintenanceService{
		scoring:   scoring,
		sync:      sync,
		cache:     store,
		retention: retention,
		logger:    logger.Named("maintenance"),
	}
}

type SweepResult struct {
	CurrentGameweek int `json:"current_gameweek"`
	Removed         int `json:"removed"`
}

// SweepCache drops snapshots older than the retention window behind the
// current gameweek.
func (s *MaintenanceService) SweepCache(ctx context.Context) (SweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MaintenanceService.SweepCache")
	defer span.End()

	event, err := s.scoring.CurrentGameweek(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	removed, err := s.cache.Sweep(ctx, event.ID, s.retention)
	if err != nil {
		return SweepResult{}, fmt.Errorf("sweep snapshots: %w", err)
	}
	return SweepResult{CurrentGameweek: event.ID, Removed: removed}, nil
}

// WarmLeagues refreshes the bulk caches of leagues while the current
// gameweek is live. It is a no-op once the gameweek has finished.
func (s *MaintenanceService) WarmLeagues(ctx context.Context, leagueIDs []int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MaintenanceService.WarmLeagues")
	defer span.End()

	if len(leagueIDs) == 0 {
		return nil
	}
	event, err := s.scoring.CurrentGameweek(ctx)
	if err != nil {
		return err
	}
	if event.Finished {
		return nil
	}

	for _, leagueID := range leagueIDs {
		picks, stats, err := s.sync.SyncLeaguePicks(ctx, leagueID, event.ID, false)
		if err != nil {
			s.logger.WarnContext(ctx, "warm league picks failed", "league_id", leagueID, "error", err)
			continue
		}
		if _, _, err := s.sync.SyncLeagueHistory(ctx, leagueID, event.ID, false); err != nil {
			s.logger.WarnContext(ctx, "warm league history failed", "league_id", leagueID, "error", err)
			continue
		}
		s.logger.DebugContext(ctx, "league cache warmed",
			"league_id", leagueID,
			"gameweek", event.ID,
			"members", len(picks),
			"cache_hit", stats.CacheHit,
			"failed", stats.Failed,
		)
	}
	return nil
}
