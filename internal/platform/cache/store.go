package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultRetentionGameweeks is how many gameweeks behind the current one are kept.
const DefaultRetentionGameweeks = 2

// DefaultLoadTimeout bounds a shared load once it no longer follows the
// context of the caller that started it.
const DefaultLoadTimeout = 2 * time.Minute

// Request identifies one cacheable payload and how fresh it must be.
type Request struct {
	Key      string
	Category snapshot.Category
	Gameweek int
	Policy   snapshot.FreshnessPolicy
	// Permanent stores the entry without expiry even when Policy is not
	// PolicyPermanentOnceFinished, e.g. a forced refresh of finished data.
	Permanent bool
}

// Loader produces the payload on a cache miss.
type Loader func(ctx context.Context) ([]byte, error)

// Store is the snapshot cache front: TTL checks, write-through and
// collapsing of concurrent loads for the same key.
type Store struct {
	repo        snapshot.Repository
	flight      singleflight.Group
	logger      *logging.Logger
	now         func() time.Time
	loadTimeout time.Duration
}

func NewStore(repo snapshot.Repository, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		repo:        repo,
		logger:      logger,
		now:         time.Now,
		loadTimeout: DefaultLoadTimeout,
	}
}

// SetLoadTimeout overrides DefaultLoadTimeout. Non-positive values are ignored.
func (s *Store) SetLoadTimeout(d time.Duration) {
	if d > 0 {
		s.loadTimeout = d
	}
}

// Lookup is get-or-miss. Backend read errors are logged and reported as a miss.
func (s *Store) Lookup(ctx context.Context, key string, policy snapshot.FreshnessPolicy) ([]byte, bool) {
	if key == "" || policy == snapshot.PolicyForceRefresh {
		return nil, false
	}

	e, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok || !e.Fresh(s.now(), policy) {
		return nil, false
	}

	return e.Payload, true
}

// Put persists payload under req.Key. Entries written under the permanent
// policy, or in the finished_gw category, never expire.
func (s *Store) Put(ctx context.Context, req Request, payload []byte) error {
	e := snapshot.Entry{
		Key:       req.Key,
		Category:  req.Category,
		Gameweek:  req.Gameweek,
		Payload:   payload,
		FetchedAt: s.now().UTC(),
		Permanent: req.Permanent || req.Policy == snapshot.PolicyPermanentOnceFinished || req.Category == snapshot.CategoryFinishedGW,
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	if err := s.repo.Put(ctx, e); err != nil {
		return fmt.Errorf("put snapshot key=%s: %w", req.Key, err)
	}
	return nil
}

// GetOrLoad serves a fresh cached payload or runs loader and writes its
// result through. A failed load leaves the cache untouched. A failed write
// is logged and the loaded payload is still returned.
//
// Concurrent calls for one key share a single load. The load is detached
// from the caller that started it, so a caller giving up only stops its own
// wait.
func (s *Store) GetOrLoad(ctx context.Context, req Request, loader Loader) ([]byte, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if req.Key == "" {
		return loader(ctx)
	}

	if payload, ok := s.Lookup(ctx, req.Key, req.Policy); ok {
		return payload, nil
	}

	ch := s.flight.DoChan(req.Key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		if payload, ok := s.Lookup(loadCtx, req.Key, req.Policy); ok {
			return payload, nil
		}

		loaded, loadErr := loader(loadCtx)
		if loadErr != nil {
			return nil, loadErr
		}
		if putErr := s.Put(loadCtx, req, loaded); putErr != nil {
			s.logger.WarnContext(loadCtx, "snapshot write failed", "key", req.Key, "error", putErr)
		}
		return loaded, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	payload, ok := res.Val.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected snapshot payload type %T", res.Val)
	}
	return payload, nil
}

func (s *Store) Invalidate(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.repo.Delete(ctx, key)
}

// Sweep drops entries tagged with a gameweek older than currentGameweek-keep.
func (s *Store) Sweep(ctx context.Context, currentGameweek, keep int) (int, error) {
	if keep < 0 {
		keep = DefaultRetentionGameweeks
	}
	cutoff := currentGameweek - keep
	if cutoff <= 1 {
		return 0, nil
	}

	removed, err := s.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("purge snapshots before gw=%d: %w", cutoff, err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "snapshot retention sweep", "current_gameweek", currentGameweek, "cutoff", cutoff, "removed", removed)
	}
	return removed, nil
}
