package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKey(t *testing.T) {
	cases := map[string]string{
		"createLayer":   "createlayer",
		"Layer.Create":  "layercreate",
		"LAYER-DELETE":  "layerdelete",
		"batch_play":    "batchplay",
		"export-Layer!": "exportlayer",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalKey(in), in)
	}
}

// canonical(X) == canonical(lower(strip-non-alnum(X))), and the lookup is
// stable across repeated calls.
func TestCanonicalize_RoundTrip(t *testing.T) {
	table := New()
	primary, err := table.Canonicalize("Layer.Create")
	require.NoError(t, err)
	assert.Equal(t, "createLayer", primary)

	again, err := table.Canonicalize(CanonicalKey("Layer.Create"))
	require.NoError(t, err)
	assert.Equal(t, primary, again)
}

func TestCanonicalize_AliasSpellings(t *testing.T) {
	table := New()

	primary, err := table.Canonicalize("LAYER-DELETE")
	require.NoError(t, err)
	assert.Equal(t, "deleteLayer", primary)

	primary, err = table.Canonicalize("layer.rename")
	require.NoError(t, err)
	assert.Equal(t, "renameLayer", primary)
}

func TestCanonicalize_UnknownOp(t *testing.T) {
	table := New()
	_, err := table.Canonicalize("frobnicateLayer")
	require.Error(t, err)
	assert.Equal(t, `unknown op "frobnicateLayer"`, err.Error())
}

func TestClassificationSets(t *testing.T) {
	table := New()

	assert.True(t, table.IsActiveDocumentOptional("openDocument"))
	assert.True(t, table.IsActiveDocumentOptional("createDocument"))
	assert.False(t, table.IsActiveDocumentOptional("createLayer"))

	assert.True(t, table.IsLayerTargetRequired("deleteLayer"))
	assert.True(t, table.IsLayerTargetRequired("setText"))
	assert.False(t, table.IsLayerTargetRequired("createLayer"))

	assert.True(t, table.IsDocumentKindRefBind("openDocument"))
	assert.False(t, table.IsDocumentKindRefBind("createLayer"))
}
