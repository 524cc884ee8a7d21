package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

// Manager implements the layered checkpoint strategy: attempt a cheap
// state-pointer capture, then a full named snapshot, and record whichever
// succeeded (preferring "snapshot" as the stronger guarantee when both do)
// as the checkpoint's Strategy. Failure of either host-side capture is
// non-fatal -- the batch proceeds with reduced rollback capability.
type Manager struct {
	h     host.Host
	store Store
}

// New returns a Manager capturing checkpoints against h and persisting them
// via store.
func New(h host.Host, store Store) *Manager {
	return &Manager{h: h, store: store}
}

// Create captures a best-effort checkpoint labeled label. The only error it
// returns is a persistence failure (the store itself erroring), and the
// returned Checkpoint still describes what was captured; a host that can't
// produce a state id or snapshot simply yields Strategy "none".
func (m *Manager) Create(ctx context.Context, label string) (Checkpoint, error) {
	cp := Checkpoint{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Label:     label,
		Behavior:  "best-effort",
	}

	if stateID := m.h.CurrentStateID(); stateID != "" {
		cp.StateID = stateID
	}

	snapshotName := fmt.Sprintf("obe:%s", cp.ID)
	if err := m.h.CreateSnapshot(snapshotName); err == nil {
		cp.SnapshotName = snapshotName
	}

	switch {
	case cp.SnapshotName != "":
		cp.Strategy = "snapshot"
	case cp.StateID != "":
		cp.Strategy = "statePointer"
	default:
		cp.Strategy = "none"
	}
	cp.RestoreSupported = cp.Strategy != "none"

	if err := m.store.Save(ctx, cp); err != nil {
		return cp, &obeerr.CheckpointCreateFailedError{Detail: err.Error()}
	}
	return cp, nil
}

// Restore attempts to bring the host back to cp's captured state, trying
// the snapshot first and the state pointer as fallback. It never returns
// an error: a failed or unsupported restore is reported through
// RestoreResult.Restored, which the batch runner folds into the
// RollbackSummary.
func (m *Manager) Restore(ctx context.Context, cp Checkpoint) RestoreResult {
	if cp.SnapshotName != "" {
		if ok, err := m.h.SelectSnapshot(cp.SnapshotName); err == nil && ok {
			return RestoreResult{
				Restored: true,
				Strategy: "snapshot",
				Detail:   fmt.Sprintf("restored snapshot %s", cp.SnapshotName),
			}
		}
	}

	// The state pointer is only usable if the host still lists it -- hosts
	// prune history, and a pruned id must not degrade into a silent no-op.
	if cp.StateID != "" && stateListed(m.h.ListStates(), cp.StateID) {
		if ok, err := m.h.SelectState(cp.StateID); err == nil && ok {
			return RestoreResult{
				Restored: true,
				Strategy: "statePointer",
				Detail:   fmt.Sprintf("restored state %s", cp.StateID),
			}
		}
	}

	return RestoreResult{
		Restored: false,
		Strategy: "none",
		Detail:   "no checkpoint strategy could restore host state",
	}
}

func stateListed(states []string, id string) bool {
	for _, s := range states {
		if s == id {
			return true
		}
	}
	return false
}
