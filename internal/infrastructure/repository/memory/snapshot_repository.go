package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
)

type SnapshotRepository struct {
	mu      sync.RWMutex
	entries map[string]snapshot.Entry
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{entries: make(map[string]snapshot.Entry)}
}

func (r *SnapshotRepository) Get(_ context.Context, key string) (snapshot.Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[strings.TrimSpace(key)]
	if !ok {
		return snapshot.Entry{}, false, nil
	}
	e.Payload = append([]byte(nil), e.Payload...)
	return e, true, nil
}

func (r *SnapshotRepository) Put(_ context.Context, entry snapshot.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.Payload = append([]byte(nil), entry.Payload...)

	r.mu.Lock()
	r.entries[entry.Key] = entry
	r.mu.Unlock()
	return nil
}

func (r *SnapshotRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, strings.TrimSpace(key))
	r.mu.Unlock()
	return nil
}

func (r *SnapshotRepository) PurgeBefore(_ context.Context, before int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, e := range r.entries {
		if e.Gameweek > 0 && e.Gameweek < before {
			delete(r.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (r *SnapshotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
