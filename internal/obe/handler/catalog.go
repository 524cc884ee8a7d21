package handler

import (
	"context"
	"fmt"

	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/host"
)

// stringField reads f from op as a string, falling back to "" when absent
// or of the wrong type -- preflight has already enforced presence for
// fields the required-field matrix names.
func stringField(op envelope.Operation, fields ...string) string {
	for _, f := range fields {
		if v, ok := op[f]; ok {
			if s, isStr := v.(string); isStr && s != "" {
				return s
			}
		}
	}
	return ""
}

func layerResult(l host.LayerInfo) Result {
	return Result{"layer": map[string]interface{}{
		"kind": "layer", "layerId": l.ID, "layerName": l.Name, "id": l.ID, "name": l.Name,
	}}
}

func documentResult(d host.DocumentInfo) Result {
	return Result{"document": map[string]interface{}{
		"kind": "document", "docId": d.ID, "title": d.Title, "ref": "active", "id": d.ID,
	}}
}

// RegisterIllustrativeCatalog wires a representative leaf handler subset
// against h: createLayer, renameLayer, deleteLayer, createTextLayer,
// setText, placeAsset, openDocument, exportAsset, batchPlay. Each is a
// thin adapter from the resolved op payload onto one host.Host call.
func RegisterIllustrativeCatalog(r *Registry, h host.Host) {
	r.Register("createLayer", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		name := stringField(op, "name", "layerName")
		if name == "" {
			name = "New Layer"
		}
		l, err := h.CreateLayer(name)
		if err != nil {
			return nil, err
		}
		return layerResult(l), nil
	})

	r.Register("renameLayer", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		target, ok := h.ResolveLayerTarget(op["target"])
		if !ok {
			return nil, fmt.Errorf("renameLayer: target layer not found: %v", op["target"])
		}
		newName := stringField(op, "newName", "name")
		l, err := h.RenameLayer(target.ID, newName)
		if err != nil {
			return nil, err
		}
		return layerResult(l), nil
	})

	r.Register("deleteLayer", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		target, ok := h.ResolveLayerTarget(op["target"])
		if !ok {
			return nil, fmt.Errorf("deleteLayer: target layer not found: %v", op["target"])
		}
		if err := h.DeleteLayer(target.ID); err != nil {
			return nil, err
		}
		return Result{"detail": fmt.Sprintf("deleted layer %s", target.ID)}, nil
	})

	r.Register("createTextLayer", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		name := stringField(op, "name", "layerName")
		if name == "" {
			name = "New Text Layer"
		}
		text := stringField(op, "text", "contents")
		l, err := h.CreateTextLayer(name, text)
		if err != nil {
			return nil, err
		}
		return layerResult(l), nil
	})

	r.Register("setText", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		target, ok := h.ResolveLayerTarget(op["target"])
		if !ok {
			return nil, fmt.Errorf("setText: target layer not found: %v", op["target"])
		}
		text := stringField(op, "text", "contents")
		l, err := h.SetText(target.ID, text)
		if err != nil {
			return nil, err
		}
		return layerResult(l), nil
	})

	r.Register("placeAsset", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		source := stringField(op, "input", "path", "source")
		l, err := h.PlaceAsset(source)
		if err != nil {
			return nil, err
		}
		return layerResult(l), nil
	})

	r.Register("openDocument", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		path := stringField(op, "input", "path", "source")
		d, err := h.OpenDocument(path)
		if err != nil {
			return nil, err
		}
		return documentResult(d), nil
	})

	r.Register("exportAsset", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		target, _ := h.ResolveLayerTarget(op["target"])
		output := stringField(op, "output")
		path, err := h.ExportAsset(target.ID, output)
		if err != nil {
			return nil, err
		}
		return Result{"detail": fmt.Sprintf("exported to %s", path), "output": path}, nil
	})

	r.Register("batchPlay", func(_ context.Context, op envelope.Operation, _ Context) (Result, error) {
		commands := op["commands"]
		if commands == nil {
			commands = op["command"]
		}
		if commands == nil {
			commands = op["descriptor"]
		}
		out, err := h.BatchPlayRaw(commands)
		if err != nil {
			return nil, err
		}
		// The host hands back an untyped descriptor result; it must decode
		// to an object before it can be bound.
		res, err := MustBeObject("batchPlay", out)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		return Result{"refValue": map[string]interface{}(res)}, nil
	})
}
