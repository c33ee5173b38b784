package usecase

import (
	"context"

	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/platform/cache"
)

// FPLClient is the upstream surface the usecases depend on.
type FPLClient interface {
	Bootstrap(ctx context.Context, policy snapshot.FreshnessPolicy) (fpl.Bootstrap, error)
	Fixtures(ctx context.Context, gameweek int, policy snapshot.FreshnessPolicy) ([]fpl.Fixture, error)
	Live(ctx context.Context, gameweek int, policy snapshot.FreshnessPolicy) (fpl.Live, error)
	LeagueStandings(ctx context.Context, leagueID int64, policy snapshot.FreshnessPolicy) (fpl.LeagueInfo, []fpl.LeagueEntry, error)
	EntryPicks(ctx context.Context, entryID int64, gameweek int, policy snapshot.FreshnessPolicy) (fpl.EntryPicks, error)
	EntryHistory(ctx context.Context, entryID int64, gameweek int, policy snapshot.FreshnessPolicy) (fpl.EntryHistory, error)
	TransferActivity(ctx context.Context, entryID int64, gameweek int, finished bool) (fpl.TransferActivity, error)
	RawEntryPicks(ctx context.Context, entryID int64, gameweek int) ([]byte, error)
	RawEntryHistory(ctx context.Context, entryID int64) ([]byte, error)
}

// SnapshotCache is the part of the snapshot store used outside the client.
type SnapshotCache interface {
	Lookup(ctx context.Context, key string, policy snapshot.FreshnessPolicy) ([]byte, bool)
	Put(ctx context.Context, req cache.Request, payload []byte) error
	Sweep(ctx context.Context, currentGameweek, keep int) (int, error)
}
