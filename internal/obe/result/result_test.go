package result

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/obe/internal/obe/obeerr"
)

func TestBuilder_RecordApplied(t *testing.T) {
	b := New("t1", false)
	b.RecordApplied(OpResult{Index: 0, Op: "createLayer", Status: "applied"})
	assert.False(t, b.Aborted())
	assert.Equal(t, 0, b.FailedCount())

	br := b.Build(map[string]interface{}{}, 1)
	assert.Equal(t, 1, br.Applied)
	assert.Equal(t, 0, br.Failed)
	assert.False(t, br.Aborted)
}

func TestBuilder_RecordFailed_AbortsOnAbortPolicy(t *testing.T) {
	b := New("t1", false)
	b.RecordFailed(OpResult{Index: 0, Op: "deleteLayer", Status: "failed"}, "abort")
	assert.True(t, b.Aborted())
	assert.Equal(t, 1, b.FailedCount())
}

func TestBuilder_RecordFailed_ContinuesOnContinuePolicy(t *testing.T) {
	b := New("t1", false)
	b.RecordFailed(OpResult{Index: 0, Op: "deleteLayer", Status: "failed"}, "continue")
	assert.False(t, b.Aborted())
	assert.Equal(t, 1, b.FailedCount())
}

func TestBuilder_Build_DetailMentionsAbort(t *testing.T) {
	b := New("t1", false)
	b.RecordFailed(OpResult{Index: 0}, "abort")
	br := b.Build(map[string]interface{}{}, 3)
	assert.Contains(t, br.Detail, "aborted")
	assert.Contains(t, br.Detail, "1 of 3 ops run")
}

func TestBuilder_SetCheckpointAndRollback(t *testing.T) {
	b := New("t1", false)
	b.SetCheckpoint("cp-1")
	b.SetRollback(RollbackSummary{Requested: true, Restored: true})
	br := b.Build(nil, 0)
	assert.Equal(t, "cp-1", br.CheckpointID)
	assert.True(t, br.Rollback.Requested)
	assert.True(t, br.Rollback.Restored)
}

func TestDefaultCapabilities_MatchesFixedBlock(t *testing.T) {
	c := DefaultCapabilities()
	assert.True(t, c.OpLocalRefs)
	assert.Equal(t, "$name and $name.path", c.RefSyntax)
	assert.True(t, c.PerOpOnError)
	assert.True(t, c.RollbackOnError.Supported)
	assert.Equal(t, "snapshot+statePointer", c.RollbackOnError.Strategy)
	assert.Equal(t, "best-effort", c.RollbackOnError.Behavior)
	assert.True(t, c.StructuredResult)
	assert.True(t, c.HandlerErrorIntrospection)
}

func TestNewErrorInfo_RecoversStableName(t *testing.T) {
	err := &obeerr.TargetNotFoundError{Target: "missing"}
	info := NewErrorInfo(err, "")
	assert.Equal(t, "TargetNotFound", info.Name)
	assert.Contains(t, info.Message, "missing")
}
