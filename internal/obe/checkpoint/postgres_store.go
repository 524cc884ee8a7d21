package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lyzr/obe/common/db"
)

// PostgresStore is the optional durable checkpoint store
// (CHECKPOINT_STORE=postgres), for checkpoints that must outlive the
// process.
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore returns a PostgresStore backed by db. Callers are
// responsible for having applied the obe_checkpoints migration beforehand.
func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, cp Checkpoint) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO obe_checkpoints
			(id, created_at, label, strategy, restore_supported, behavior, snapshot_name, state_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			strategy = EXCLUDED.strategy,
			restore_supported = EXCLUDED.restore_supported,
			behavior = EXCLUDED.behavior,
			snapshot_name = EXCLUDED.snapshot_name,
			state_id = EXCLUDED.state_id,
			detail = EXCLUDED.detail
	`, cp.ID, cp.CreatedAt, cp.Label, cp.Strategy, cp.RestoreSupported, cp.Behavior,
		nullableString(cp.SnapshotName), nullableString(cp.StateID), cp.Detail)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Checkpoint, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, created_at, label, strategy, restore_supported, behavior, snapshot_name, state_id, detail
		FROM obe_checkpoints WHERE id = $1
	`, id)

	var cp Checkpoint
	var snapshotName, stateID sql.NullString
	err := row.Scan(&cp.ID, &cp.CreatedAt, &cp.Label, &cp.Strategy, &cp.RestoreSupported, &cp.Behavior,
		&snapshotName, &stateID, &cp.Detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	cp.SnapshotName = snapshotName.String
	cp.StateID = stateID.String
	return cp, true, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
