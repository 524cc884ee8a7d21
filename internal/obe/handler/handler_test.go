package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/host"
)

func TestInvoke_NilResultYieldsDefaultDetail(t *testing.T) {
	fn := func(ctx context.Context, op envelope.Operation, hctx Context) (Result, error) {
		return nil, nil
	}
	res, err := Invoke(context.Background(), fn, "createLayer", envelope.Operation{}, Context{})
	require.NoError(t, err)
	assert.Equal(t, "Executed 'createLayer'", res["detail"])
}

func TestInvoke_PropagatesHandlerError(t *testing.T) {
	fn := func(ctx context.Context, op envelope.Operation, hctx Context) (Result, error) {
		return nil, assertErr("boom")
	}
	_, err := Invoke(context.Background(), fn, "createLayer", envelope.Operation{}, Context{})
	require.Error(t, err)
	assert.EqualError(t, err, "boom")
}

func TestInvoke_RecoversHandlerPanic(t *testing.T) {
	fn := func(ctx context.Context, op envelope.Operation, hctx Context) (Result, error) {
		panic("handler bug")
	}
	_, err := Invoke(context.Background(), fn, "createLayer", envelope.Operation{}, Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panicked")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("createLayer")
	assert.False(t, ok)

	r.Register("createLayer", func(ctx context.Context, op envelope.Operation, hctx Context) (Result, error) {
		return Result{"ok": true}, nil
	})
	fn, ok := r.Lookup("createLayer")
	require.True(t, ok)
	res, err := fn(context.Background(), envelope.Operation{}, Context{})
	require.NoError(t, err)
	assert.Equal(t, true, res["ok"])
}

func TestMustBeObject(t *testing.T) {
	res, err := MustBeObject("createLayer", nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = MustBeObject("createLayer", map[string]interface{}{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res["a"])

	_, err = MustBeObject("createLayer", "not-an-object")
	require.Error(t, err)
}

func TestRegisterIllustrativeCatalog_CreateAndRenameLayer(t *testing.T) {
	f := host.NewFake()
	r := NewRegistry()
	RegisterIllustrativeCatalog(r, f)

	createFn, ok := r.Lookup("createLayer")
	require.True(t, ok)
	res, err := createFn(context.Background(), envelope.Operation{"op": "createLayer", "name": "A"}, Context{})
	require.NoError(t, err)
	layer := res["layer"].(map[string]interface{})
	assert.Equal(t, "A", layer["layerName"])

	renameFn, ok := r.Lookup("renameLayer")
	require.True(t, ok)
	_, err = renameFn(context.Background(), envelope.Operation{
		"op": "renameLayer", "target": layer["layerId"], "name": "B",
	}, Context{})
	require.NoError(t, err)
}

func TestRegisterIllustrativeCatalog_BatchPlayDecodesHostResult(t *testing.T) {
	f := host.NewFake()
	r := NewRegistry()
	RegisterIllustrativeCatalog(r, f)

	fn, ok := r.Lookup("batchPlay")
	require.True(t, ok)
	res, err := fn(context.Background(), envelope.Operation{
		"op": "batchPlay", "commands": []interface{}{"cmd"},
	}, Context{})
	require.NoError(t, err)
	rv := res["refValue"].(map[string]interface{})
	assert.Equal(t, []interface{}{"cmd"}, rv["executed"])
}

func TestRegisterIllustrativeCatalog_RenameMissingTargetErrors(t *testing.T) {
	f := host.NewFake()
	r := NewRegistry()
	RegisterIllustrativeCatalog(r, f)

	renameFn, _ := r.Lookup("renameLayer")
	_, err := renameFn(context.Background(), envelope.Operation{
		"op": "renameLayer", "target": "missing", "name": "B",
	}, Context{})
	require.Error(t, err)
}
