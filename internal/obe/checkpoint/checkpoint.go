// Package checkpoint implements the checkpoint manager: a best-effort,
// layered pre-batch capture (state-pointer, then a named full snapshot)
// and a matching layered restore, with storage pluggable behind the Store
// interface (MemoryStore by default; PostgresStore/RedisStore as optional
// durable collaborators).
package checkpoint

import (
	"context"
	"time"
)

// Checkpoint records whichever capture strategies succeeded for one batch.
type Checkpoint struct {
	ID               string
	CreatedAt        time.Time
	Label            string
	Strategy         string // "snapshot" | "statePointer" | "none"
	RestoreSupported bool
	Behavior         string // always "best-effort"
	SnapshotName     string
	StateID          string
	Detail           string
}

// RestoreResult is the outcome of a restore attempt.
type RestoreResult struct {
	Restored bool
	Strategy string
	Detail   string
}

// Store persists Checkpoints. The process lifetime is the only guarantee
// the core itself makes; an external Store implementation may outlive the
// process.
type Store interface {
	Save(ctx context.Context, cp Checkpoint) error
	Get(ctx context.Context, id string) (Checkpoint, bool, error)
}
