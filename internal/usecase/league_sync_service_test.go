package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
)

func TestLeagueSyncService_CachesWholeLeague(t *testing.T) {
	t.Parallel()

	client := newFakeFPLClient()
	client.addManager(1, "Ana", 10, 6, 0, 200)
	client.addManager(2, "Budi", 11, 6, 4, 210)
	client.addManager(3, "Citra", 9, 6, 0, 190)

	store, _ := newTestStore()
	svc := NewLeagueSyncService(client, store, 2, logging.NewNop())
	ctx := context.Background()

	picks, stats, err := svc.SyncLeaguePicks(ctx, 314, 5, false)
	if err != nil {
		t.Fatalf("sync league picks: %v", err)
	}
	if len(picks) != 3 || stats.Fetched != 3 || stats.CacheHit {
		t.Fatalf("unexpected first sync: members=%d stats=%+v", len(picks), stats)
	}
	if _, ok := picks[2].Captain(); !ok {
		t.Fatalf("expected decoded picks for entry 2")
	}

	picks, stats, err = svc.SyncLeaguePicks(ctx, 314, 5, false)
	if err != nil {
		t.Fatalf("sync league picks again: %v", err)
	}
	if !stats.CacheHit || len(picks) != 3 {
		t.Fatalf("expected cached league, got stats=%+v members=%d", stats, len(picks))
	}
	if got := client.rawCalls.Load(); got != 3 {
		t.Fatalf("expected no network calls on the cached read, got=%d total", got)
	}
}

func TestLeagueSyncService_PartialResultNotCached(t *testing.T) {
	t.Parallel()

	client := newFakeFPLClient()
	client.addManager(1, "Ana", 10, 6, 0, 200)
	client.addManager(2, "Budi", 11, 6, 4, 210)
	client.setFailing(2, true)

	store, repo := newTestStore()
	svc := NewLeagueSyncService(client, store, 4, logging.NewNop())
	ctx := context.Background()

	history, stats, err := svc.SyncLeagueHistory(ctx, 314, 5, false)
	if err != nil {
		t.Fatalf("sync league history: %v", err)
	}
	if len(history) != 1 || stats.Failed != 1 {
		t.Fatalf("expected one member and one failure, got members=%d stats=%+v", len(history), stats)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected partial league not to be cached, got %d entries", repo.Len())
	}

	client.setFailing(2, false)
	history, stats, err = svc.SyncLeagueHistory(ctx, 314, 5, false)
	if err != nil {
		t.Fatalf("sync league history: %v", err)
	}
	if len(history) != 2 || stats.CacheHit {
		t.Fatalf("expected a full network sync, got members=%d stats=%+v", len(history), stats)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected complete league to be cached, got %d entries", repo.Len())
	}
}

func TestLeagueSyncService_RejectedMemberStillCachesLeague(t *testing.T) {
	t.Parallel()

	client := newFakeFPLClient()
	client.addManager(1, "Ana", 10, 6, 0, 200)
	client.addManager(2, "Budi", 11, 6, 4, 210)
	client.addManager(3, "Citra", 9, 6, 0, 190)
	client.setRejected(3)

	store, repo := newTestStore()
	svc := NewLeagueSyncService(client, store, 3, logging.NewNop())
	ctx := context.Background()

	picks, stats, err := svc.SyncLeaguePicks(ctx, 314, 5, false)
	if err != nil {
		t.Fatalf("sync league picks: %v", err)
	}
	if len(picks) != 2 || stats.Failed != 1 || stats.Transient != 0 || !stats.Complete() {
		t.Fatalf("unexpected first sync: members=%d stats=%+v", len(picks), stats)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected league with only rejected members to be cached, got %d entries", repo.Len())
	}

	for i := 0; i < 2; i++ {
		picks, stats, err = svc.SyncLeaguePicks(ctx, 314, 5, false)
		if err != nil {
			t.Fatalf("sync league picks again: %v", err)
		}
		if !stats.CacheHit || len(picks) != 2 {
			t.Fatalf("expected cached league, got stats=%+v members=%d", stats, len(picks))
		}
	}
	if got := client.rawCalls.Load(); got != 3 {
		t.Fatalf("expected cached reads to make no network calls, got=%d total", got)
	}
}

func TestLeagueSyncService_FinishedGameweekIsPermanent(t *testing.T) {
	t.Parallel()

	client := newFakeFPLClient()
	client.addManager(1, "Ana", 10, 6, 0, 200)

	store, repo := newTestStore()
	svc := NewLeagueSyncService(client, store, 1, logging.NewNop())

	if _, _, err := svc.SyncLeaguePicks(context.Background(), 314, 4, true); err != nil {
		t.Fatalf("sync league picks: %v", err)
	}

	entry, ok, err := repo.Get(context.Background(), snapshot.Key(snapshot.CategoryLeaguePicks, "314", 4))
	if err != nil || !ok {
		t.Fatalf("expected cached league snapshot, ok=%v err=%v", ok, err)
	}
	if !entry.Permanent {
		t.Fatalf("expected finished gameweek snapshot to be permanent")
	}
}

func TestLeagueSyncService_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore()
	svc := NewLeagueSyncService(newFakeFPLClient(), store, 1, logging.NewNop())

	if _, _, err := svc.SyncLeaguePicks(context.Background(), 0, 5, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for league id, got=%v", err)
	}
	if _, _, err := svc.SyncLeaguePicks(context.Background(), 314, 0, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for gameweek, got=%v", err)
	}
}
