package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// SnapshotRow is one stored world snapshot. Payload is the checksummed
// envelope produced by the snapshot codec; this layer never looks inside it.
type SnapshotRow struct {
	ID        int64
	Slot      string
	Tick      uint64
	Payload   []byte
	CreatedAt time.Time
}

// SnapshotRepo stores encoded world snapshots. Slots are independent save
// lines ("autosave", "manual", ...); within a slot the newest row wins.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Save(ctx context.Context, slot string, tick uint64, payload []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO snapshots (slot, tick, payload) VALUES ($1, $2, $3)`,
		slot, int64(tick), payload,
	)
	return err
}

// LoadLatest returns the newest snapshot in a slot, or nil when the slot is
// empty.
func (r *SnapshotRepo) LoadLatest(ctx context.Context, slot string) (*SnapshotRow, error) {
	row := &SnapshotRow{}
	var tick int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, slot, tick, payload, created_at
		 FROM snapshots WHERE slot = $1
		 ORDER BY id DESC LIMIT 1`, slot,
	).Scan(&row.ID, &row.Slot, &tick, &row.Payload, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Tick = uint64(tick)
	return row, nil
}

// Prune keeps only the newest n snapshots in a slot.
func (r *SnapshotRepo) Prune(ctx context.Context, slot string, keep int) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM snapshots
		 WHERE slot = $1 AND id NOT IN (
		     SELECT id FROM snapshots WHERE slot = $1 ORDER BY id DESC LIMIT $2
		 )`,
		slot, keep,
	)
	return err
}
