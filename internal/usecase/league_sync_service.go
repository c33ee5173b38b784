package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	sonic "github.com/bytedance/sonic"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fpl-livescore/internal/domain/fpl"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/platform/cache"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
)

const defaultSyncWorkers = 10

// LeagueSyncService fetches one payload per league member and caches the
// whole league as a single snapshot, so a league costs one freshness check.
type LeagueSyncService struct {
	client     FPLClient
	cache      SnapshotCache
	maxWorkers int
	logger     *logging.Logger
}

func NewLeagueSyncService(client FPLClient, store SnapshotCache, maxWorkers int, logger *logging.Logger) *LeagueSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxWorkers <= 0 {
		maxWorkers = defaultSyncWorkers
	}
	return &LeagueSyncService{
		client:     client,
		cache:      store,
		maxWorkers: maxWorkers,
		logger:     logger.Named("league_sync"),
	}
}

// SyncStats describes the network side of one sync. Failed counts every
// member without a payload; Transient is the part of Failed worth retrying.
type SyncStats struct {
	Members   int
	Fetched   int
	Failed    int
	Transient int
	CacheHit  bool
}

// Complete is true when every member missing from the result was rejected
// by upstream, so a per-member refetch cannot do better.
func (s SyncStats) Complete() bool {
	return s.Transient == 0
}

// isTransient reports whether a member fetch failure may succeed on a later
// call. Rejections such as a 404 for a member who joined after the gameweek
// are final.
func isTransient(err error) bool {
	return errors.Is(err, ErrDependencyUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

type syncKind struct {
	category snapshot.Category
	fetch    func(ctx context.Context, client FPLClient, entryID int64, gameweek int) ([]byte, error)
}

var (
	syncPicks = syncKind{
		category: snapshot.CategoryLeaguePicks,
		fetch: func(ctx context.Context, client FPLClient, entryID int64, gameweek int) ([]byte, error) {
			return client.RawEntryPicks(ctx, entryID, gameweek)
		},
	}
	syncHistory = syncKind{
		category: snapshot.CategoryLeagueHistory,
		fetch: func(ctx context.Context, client FPLClient, entryID int64, _ int) ([]byte, error) {
			return client.RawEntryHistory(ctx, entryID)
		},
	}
)

func (s *LeagueSyncService) SyncLeaguePicks(ctx context.Context, leagueID int64, gameweek int, finished bool) (map[int64]fpl.EntryPicks, SyncStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSyncService.SyncLeaguePicks", leagueAttrs(leagueID, gameweek)...)
	defer span.End()

	raw, stats, err := s.syncLeague(ctx, syncPicks, leagueID, gameweek, finished)
	if err != nil {
		return nil, stats, err
	}
	out, err := decodeMembers[fpl.EntryPicks](raw)
	return out, stats, err
}

func (s *LeagueSyncService) SyncLeagueHistory(ctx context.Context, leagueID int64, gameweek int, finished bool) (map[int64]fpl.EntryHistory, SyncStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSyncService.SyncLeagueHistory", leagueAttrs(leagueID, gameweek)...)
	defer span.End()

	raw, stats, err := s.syncLeague(ctx, syncHistory, leagueID, gameweek, finished)
	if err != nil {
		return nil, stats, err
	}
	out, err := decodeMembers[fpl.EntryHistory](raw)
	return out, stats, err
}

func (s *LeagueSyncService) syncLeague(ctx context.Context, kind syncKind, leagueID int64, gameweek int, finished bool) (map[string]json.RawMessage, SyncStats, error) {
	if err := requirePositiveID("league id", leagueID); err != nil {
		return nil, SyncStats{}, err
	}
	if err := validateGameweek(gameweek); err != nil {
		return nil, SyncStats{}, err
	}

	req := cache.Request{
		Key:      snapshot.Key(kind.category, strconv.FormatInt(leagueID, 10), gameweek),
		Category: kind.category,
		Gameweek: gameweek,
		Policy:   snapshot.PolicyFor(finished),
	}

	if payload, ok := s.cache.Lookup(ctx, req.Key, req.Policy); ok {
		var cached map[string]json.RawMessage
		if err := sonic.Unmarshal(payload, &cached); err == nil {
			return cached, SyncStats{Members: len(cached), CacheHit: true}, nil
		}
		s.logger.WarnContext(ctx, "league snapshot undecodable, refetching", "key", req.Key)
	}

	_, members, err := s.client.LeagueStandings(ctx, leagueID, snapshot.PolicyCached)
	if err != nil {
		return nil, SyncStats{}, fmt.Errorf("load league %d roster: %w", leagueID, err)
	}

	stats := SyncStats{Members: len(members)}
	if len(members) == 0 {
		return map[string]json.RawMessage{}, stats, nil
	}

	workerCount := s.maxWorkers
	if workerCount > len(members) {
		workerCount = len(members)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, stats, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu        sync.Mutex
		results   = make(map[string]json.RawMessage, len(members))
		fetched   atomic.Int32
		failed    atomic.Int32
		transient atomic.Int32
		workers   sync.WaitGroup
	)
	for _, member := range members {
		member := member
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			raw, err := kind.fetch(ctx, s.client, member.Entry, gameweek)
			if err != nil {
				failed.Add(1)
				retryable := isTransient(err)
				if retryable {
					transient.Add(1)
				}
				s.logger.WarnContext(ctx, "league member fetch failed",
					"league_id", leagueID,
					"entry_id", member.Entry,
					"category", kind.category,
					"transient", retryable,
					"error", err,
				)
				return
			}

			fetched.Add(1)
			mu.Lock()
			results[strconv.FormatInt(member.Entry, 10)] = json.RawMessage(raw)
			mu.Unlock()
		}); err != nil {
			workers.Done()
			workers.Wait()
			return nil, stats, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	workers.Wait()

	stats.Fetched = int(fetched.Load())
	stats.Failed = int(failed.Load())
	stats.Transient = int(transient.Load())

	// A league missing members to transient failures is served but not
	// cached, so the next call retries them. Rejected members are left out
	// of the cached map.
	if stats.Complete() {
		payload, err := sonic.Marshal(results)
		if err != nil {
			return nil, stats, fmt.Errorf("encode league snapshot: %w", err)
		}
		if err := s.cache.Put(ctx, req, payload); err != nil {
			s.logger.WarnContext(ctx, "league snapshot write failed", "key", req.Key, "error", err)
		}
	}

	return results, stats, nil
}

func decodeMembers[T any](raw map[string]json.RawMessage) (map[int64]T, error) {
	out := make(map[int64]T, len(raw))
	for key, payload := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode league snapshot member %q: %w", key, err)
		}
		var v T
		if err := sonic.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decode league snapshot member %d: %w", id, err)
		}
		out[id] = v
	}
	return out, nil
}
