package postgres

import (
	"time"

	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
)

type snapshotTableModel struct {
	Key       string    `db:"snapshot_key"`
	Category  string    `db:"category"`
	Gameweek  int       `db:"gameweek"`
	Payload   []byte    `db:"payload"`
	FetchedAt time.Time `db:"fetched_at"`
	Permanent bool      `db:"permanent"`
}

func snapshotFromModel(m snapshotTableModel) snapshot.Entry {
	return snapshot.Entry{
		Key:       m.Key,
		Category:  snapshot.Category(m.Category),
		Gameweek:  m.Gameweek,
		Payload:   m.Payload,
		FetchedAt: m.FetchedAt.UTC(),
		Permanent: m.Permanent,
	}
}

func snapshotToModel(e snapshot.Entry) snapshotTableModel {
	return snapshotTableModel{
		Key:       e.Key,
		Category:  string(e.Category),
		Gameweek:  e.Gameweek,
		Payload:   e.Payload,
		FetchedAt: e.FetchedAt.UTC(),
		Permanent: e.Permanent,
	}
}
