package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

func mustDecode(t *testing.T, js string) interface{} {
	t.Helper()
	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(js), &raw))
	return raw
}

func TestApply_ValidationErrorShortCircuits(t *testing.T) {
	f := host.NewFake()
	e, err := New(f, Options{})
	require.NoError(t, err)

	br, err := e.Apply(context.Background(), mustDecode(t, `{"transactionId": "", "doc": {"ref": "active"}, "ops": []}`))
	require.Error(t, err)
	var ve *obeerr.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "", br.TransactionID)
	assert.Nil(t, br.Refs)
}

func TestApply_EndToEnd(t *testing.T) {
	f := host.NewFake()
	e, err := New(f, Options{})
	require.NoError(t, err)

	br, err := e.Apply(context.Background(), mustDecode(t, `{
		"transactionId": "t1", "doc": {"ref": "active"},
		"ops": [{"op": "createLayer", "name": "A", "as": "layerA"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 1, br.Applied)
	assert.Equal(t, 0, br.Failed)
	assert.Equal(t, "t1", br.TransactionID)
	assert.Equal(t, "layer", br.Refs["layerA"].(map[string]interface{})["kind"])
}

func TestCapabilities_MatchesDefault(t *testing.T) {
	f := host.NewFake()
	e, err := New(f, Options{})
	require.NoError(t, err)

	assert.Equal(t, "$name and $name.path", e.Capabilities().RefSyntax)
	assert.True(t, e.Capabilities().RollbackOnError.Supported)
}
