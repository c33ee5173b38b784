package snapshot

import "context"

// Repository stores snapshot entries. Writers to the same key race and the
// last write wins.
type Repository interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
	// PurgeBefore removes every gameweek tagged entry with 0 < gameweek < before
	// and returns how many were removed.
	PurgeBefore(ctx context.Context, before int) (int, error)
}
