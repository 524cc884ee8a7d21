package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/obe/internal/obe/host"
)

func TestCreate_SnapshotStrategy(t *testing.T) {
	f := host.NewFake()
	m := New(f, NewMemoryStore())

	cp, err := m.Create(context.Background(), "pre-batch")
	require.NoError(t, err)
	assert.Equal(t, "snapshot", cp.Strategy)
	assert.True(t, cp.RestoreSupported)
	assert.Equal(t, "best-effort", cp.Behavior)
	assert.NotEmpty(t, cp.SnapshotName)
	assert.NotEmpty(t, cp.StateID)
}

func TestRestore_SnapshotRoundTrip(t *testing.T) {
	f := host.NewFake()
	m := New(f, NewMemoryStore())

	cp, err := m.Create(context.Background(), "pre-batch")
	require.NoError(t, err)

	_, err = f.CreateLayer("X")
	require.NoError(t, err)
	assert.Len(t, f.Layers(), 1)

	rr := m.Restore(context.Background(), cp)
	assert.True(t, rr.Restored)
	assert.Equal(t, "snapshot", rr.Strategy)
	assert.Empty(t, f.Layers())
}

func TestRestore_StatePointerFallback(t *testing.T) {
	f := host.NewFake()
	m := New(f, NewMemoryStore())

	cp := Checkpoint{StateID: f.CurrentStateID()}
	_, err := f.CreateLayer("X")
	require.NoError(t, err)

	rr := m.Restore(context.Background(), cp)
	assert.True(t, rr.Restored)
	assert.Equal(t, "statePointer", rr.Strategy)
	assert.Empty(t, f.Layers())
}

func TestRestore_PrunedStatePointerReportsFailure(t *testing.T) {
	f := host.NewFake()
	m := New(f, NewMemoryStore())

	rr := m.Restore(context.Background(), Checkpoint{StateID: "state-999"})
	assert.False(t, rr.Restored)
	assert.Equal(t, "none", rr.Strategy)
}

func TestRestore_NoStrategyFails(t *testing.T) {
	f := host.NewFake()
	m := New(f, NewMemoryStore())

	rr := m.Restore(context.Background(), Checkpoint{})
	assert.False(t, rr.Restored)
	assert.Equal(t, "none", rr.Strategy)
}

func TestMemoryStore_SaveGet(t *testing.T) {
	s := NewMemoryStore()
	cp := Checkpoint{ID: "c1", Strategy: "snapshot"}
	require.NoError(t, s.Save(context.Background(), cp))

	got, ok, err := s.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "snapshot", got.Strategy)

	_, ok, err = s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
