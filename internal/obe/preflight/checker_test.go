package preflight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/obe/internal/obe/alias"
	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

func newChecker(t *testing.T, h host.Host) *Checker {
	t.Helper()
	c, err := New(alias.New(), h)
	require.NoError(t, err)
	return c
}

func TestCheck_NoActiveDocument(t *testing.T) {
	f := host.NewFake()
	c := newChecker(t, f)

	// createLayer is not active-document-optional: it passes while the
	// fake's starting document is active...
	err := c.Check("createLayer", envelope.Operation{"op": "createLayer", "name": "A"})
	require.NoError(t, err) // fake always starts with one active document

	// ...and fails once the host reports no active document.
	noDoc := newChecker(t, noActiveDocHost{f})
	err = noDoc.Check("createLayer", envelope.Operation{"op": "createLayer", "name": "A"})
	var nad *obeerr.NoActiveDocumentError
	require.ErrorAs(t, err, &nad)

	// openDocument is active-document-optional, so it must pass regardless.
	err = noDoc.Check("openDocument", envelope.Operation{"op": "openDocument", "input": "foo.psd"})
	require.NoError(t, err)
}

// noActiveDocHost is the fake host reporting that no document is active.
type noActiveDocHost struct{ *host.Fake }

func (noActiveDocHost) ActiveDocument() (host.DocumentInfo, bool) {
	return host.DocumentInfo{}, false
}

func TestCheck_TargetNotFound(t *testing.T) {
	f := host.NewFake()
	c := newChecker(t, f)

	err := c.Check("deleteLayer", envelope.Operation{"op": "deleteLayer", "target": "does-not-exist"})
	require.Error(t, err)
	var tnf *obeerr.TargetNotFoundError
	assert.ErrorAs(t, err, &tnf)
}

func TestCheck_MissingRequiredField(t *testing.T) {
	f := host.NewFake()
	c := newChecker(t, f)

	err := c.Check("renameLayer", envelope.Operation{"op": "renameLayer"})
	require.Error(t, err)
	var mrf *obeerr.MissingRequiredFieldError
	require.ErrorAs(t, err, &mrf)
	assert.ElementsMatch(t, []string{"newName", "name"}, mrf.Group)
}

func TestCheck_RequiredFieldSatisfiedByEitherMember(t *testing.T) {
	f := host.NewFake()
	c := newChecker(t, f)

	err := c.Check("renameLayer", envelope.Operation{"op": "renameLayer", "name": "B"})
	assert.NoError(t, err)

	err = c.Check("renameLayer", envelope.Operation{"op": "renameLayer", "newName": "B"})
	assert.NoError(t, err)
}

func TestCheck_MultiGroupMatrix(t *testing.T) {
	f := host.NewFake()
	c := newChecker(t, f)

	// exportLayerByName requires both a "match" group and an
	// "outputDir|output" group.
	err := c.Check("exportLayerByName", envelope.Operation{"op": "exportLayerByName", "match": "foo"})
	require.Error(t, err)

	err = c.Check("exportLayerByName", envelope.Operation{
		"op": "exportLayerByName", "match": "foo", "output": "out.png",
	})
	assert.NoError(t, err)
}

func TestIsMeaningful(t *testing.T) {
	assert.False(t, isMeaningful(nil))
	assert.False(t, isMeaningful(""))
	assert.False(t, isMeaningful([]interface{}{}))
	assert.True(t, isMeaningful("x"))
	assert.True(t, isMeaningful([]interface{}{"x"}))
	assert.True(t, isMeaningful(float64(0)))
	assert.True(t, isMeaningful(false))
}
