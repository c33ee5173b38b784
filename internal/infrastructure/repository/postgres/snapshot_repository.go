package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
)

const (
	selectSnapshotQuery = `SELECT snapshot_key, category, gameweek, payload, fetched_at, permanent
FROM fpl_snapshots
WHERE snapshot_key = $1`

	upsertSnapshotQuery = `INSERT INTO fpl_snapshots (snapshot_key, category, gameweek, payload, fetched_at, permanent)
VALUES (:snapshot_key, :category, :gameweek, :payload, :fetched_at, :permanent)
ON CONFLICT (snapshot_key)
DO UPDATE SET
    category = EXCLUDED.category,
    gameweek = EXCLUDED.gameweek,
    payload = EXCLUDED.payload,
    fetched_at = EXCLUDED.fetched_at,
    permanent = EXCLUDED.permanent`

	deleteSnapshotQuery = `DELETE FROM fpl_snapshots WHERE snapshot_key = $1`

	purgeSnapshotsQuery = `DELETE FROM fpl_snapshots WHERE gameweek > 0 AND gameweek < $1`
)

// SnapshotRepository keeps one row per key; the row's metadata columns play
// the role of the sibling metadata record.
type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Get(ctx context.Context, key string) (snapshot.Entry, bool, error) {
	var row snapshotTableModel
	if err := r.db.GetContext(ctx, &row, selectSnapshotQuery, key); err != nil {
		if needsUnpreparedRetry(err) {
			return r.getWithoutBinds(ctx, key)
		}
		if isNotFound(err) {
			return snapshot.Entry{}, false, nil
		}
		return snapshot.Entry{}, false, fmt.Errorf("get snapshot key=%s: %w", key, err)
	}

	return snapshotFromModel(row), true, nil
}

func (r *SnapshotRepository) getWithoutBinds(ctx context.Context, key string) (snapshot.Entry, bool, error) {
	query := strings.Replace(selectSnapshotQuery, "$1", quoteLiteral(key), 1)

	var row snapshotTableModel
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if isNotFound(err) {
			return snapshot.Entry{}, false, nil
		}
		return snapshot.Entry{}, false, fmt.Errorf("get snapshot key=%s: %w", key, err)
	}
	return snapshotFromModel(row), true, nil
}

func (r *SnapshotRepository) Put(ctx context.Context, entry snapshot.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if _, err := r.db.NamedExecContext(ctx, upsertSnapshotQuery, snapshotToModel(entry)); err != nil {
		return fmt.Errorf("upsert snapshot key=%s: %w", entry.Key, err)
	}
	return nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, deleteSnapshotQuery, key); err != nil {
		return fmt.Errorf("delete snapshot key=%s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepository) PurgeBefore(ctx context.Context, before int) (int, error) {
	res, err := r.db.ExecContext(ctx, purgeSnapshotsQuery, before)
	if err != nil {
		return 0, fmt.Errorf("purge snapshots before gw=%d: %w", before, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge snapshots rows affected: %w", err)
	}
	return int(affected), nil
}
