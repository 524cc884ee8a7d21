package refenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/obe/internal/obe/envelope"
)

func TestResolve_TopLevelUnknownRefStaysLiteral(t *testing.T) {
	e := New(nil)
	op := envelope.Operation{"op": "renameLayer", "target": "$missing"}
	resolved, err := e.Resolve(op)
	require.NoError(t, err)
	assert.Equal(t, "$missing", resolved["target"])
}

func TestResolve_NestedUnknownRefFails(t *testing.T) {
	e := New(nil)
	op := envelope.Operation{"op": "batchPlay", "commands": []interface{}{"$missing"}}
	_, err := e.Resolve(op)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestResolve_SkipsReservedFields(t *testing.T) {
	e := New(nil)
	op := envelope.Operation{"op": "$literalOp", "text": "$stillLiteral", "as": "$refName"}
	resolved, err := e.Resolve(op)
	require.NoError(t, err)
	assert.Equal(t, "$literalOp", resolved["op"])
	assert.Equal(t, "$stillLiteral", resolved["text"])
	assert.Equal(t, "$refName", resolved["as"])
}

func TestResolve_PathSegment(t *testing.T) {
	e := New(nil)
	e.Bind(BindInput{RefValue: map[string]interface{}{
		"kind": "layer", "layerId": "L1", "nested": map[string]interface{}{"deep": "value"},
	}}, "myref")

	op := envelope.Operation{"op": "x", "target": "$myref.nested.deep"}
	resolved, err := e.Resolve(op)
	require.NoError(t, err)
	assert.Equal(t, "value", resolved["target"])
}

func TestResolve_MissingPathSegmentFailsEvenTopLevel(t *testing.T) {
	e := New(nil)
	e.Bind(BindInput{RefValue: map[string]interface{}{"kind": "layer", "layerId": "L1"}}, "myref")

	op := envelope.Operation{"op": "x", "target": "$myref.nope"}
	_, err := e.Resolve(op)
	require.Error(t, err)
}

// Resolving an already-resolved (ref-free) op yields it verbatim, and
// resolving twice equals once.
func TestResolve_Idempotence(t *testing.T) {
	e := New(nil)
	op := envelope.Operation{"op": "createLayer", "name": "A"}
	once, err := e.Resolve(op)
	require.NoError(t, err)
	twice, err := e.Resolve(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestBind_AutomaticRefs(t *testing.T) {
	e := New(nil)
	assert.True(t, e.Bind(BindInput{Layer: map[string]interface{}{"layerId": "L1", "layerName": "A"}}, "a"))

	last, ok := e.Get("last")
	require.True(t, ok)
	assert.Equal(t, "layer", last.(map[string]interface{})["kind"])

	lastLayer, ok := e.Get("lastLayer")
	require.True(t, ok)
	assert.Equal(t, "L1", lastLayer.(map[string]interface{})["layerId"])

	_, hasLastDoc := e.Get("lastDocument")
	assert.False(t, hasLastDoc)
}

func TestBind_NoValueNoBind(t *testing.T) {
	e := New(nil)
	assert.False(t, e.Bind(BindInput{}, "a"))
	_, ok := e.Get("a")
	assert.False(t, ok)
	_, ok = e.Get("last")
	assert.False(t, ok)
}

func TestBindDryRunPlaceholder(t *testing.T) {
	e := New(nil)
	placeholder := e.BindDryRunPlaceholder(3, "a", false)
	assert.Equal(t, "dry-3", placeholder["layerId"])

	v, ok := e.Get("a")
	require.True(t, ok)
	assert.Equal(t, "dry-3", v.(map[string]interface{})["layerId"])

	// Dry-run placeholders never touch the automatic refs (status is
	// "validated", not "applied").
	_, ok = e.Get("last")
	assert.False(t, ok)
}

func TestEnv_SeededFromEnvelopeRefs(t *testing.T) {
	e := New(map[string]interface{}{"seed": map[string]interface{}{"kind": "layer", "layerId": "L0"}})
	op := envelope.Operation{"op": "x", "target": "$seed"}
	resolved, err := e.Resolve(op)
	require.NoError(t, err)
	assert.Equal(t, "L0", resolved["target"].(map[string]interface{})["layerId"])
}

func TestSnapshot_DeepClonedIndependence(t *testing.T) {
	e := New(nil)
	e.Bind(BindInput{RefValue: map[string]interface{}{"kind": "layer", "layerId": "L1"}}, "a")
	snap := e.Snapshot()
	snap["a"].(map[string]interface{})["layerId"] = "mutated"

	v, _ := e.Get("a")
	assert.Equal(t, "L1", v.(map[string]interface{})["layerId"])
}
