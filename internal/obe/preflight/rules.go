// Package preflight implements the per-op semantic checks that run between
// ref resolution and dispatch: active-document presence, layer target
// resolvability, and the per-op required-field matrix. The matrix is
// compiled, not hand-coded: each "at-least-one-of" group becomes a cached
// CEL program evaluated against the resolved op payload.
package preflight

// Group is one "at-least-one-of" field group of the required-field matrix.
type Group struct {
	Fields []string
}

// Matrix is the exhaustive required-field table, keyed by canonical op.
// Ops with no entry have no required-field groups beyond whatever
// active-document/layer-target checks the alias table marks them with.
var Matrix = map[string][]Group{
	"renameLayer":        {{Fields: []string{"newName", "name"}}},
	"createTextLayer":    {{Fields: []string{"text", "contents"}}},
	"setText":            {{Fields: []string{"text", "contents"}}},
	"placeAsset":         {{Fields: []string{"input", "path", "source"}}},
	"replaceSmartObject": {{Fields: []string{"input", "path", "source"}}},
	"relinkSmartObject":  {{Fields: []string{"input", "path", "source"}}},
	"openDocument":       {{Fields: []string{"input", "path", "source"}}},
	"batchPlay":          {{Fields: []string{"commands", "command", "descriptor"}}},
	"exportAsset":        {{Fields: []string{"output"}}},
	"exportLayerByName": {
		{Fields: []string{"match"}},
		{Fields: []string{"outputDir", "output"}},
	},
}

// isMeaningful reports whether a field value satisfies its group:
// non-empty string, non-empty array, or any non-null scalar.
func isMeaningful(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	default:
		return true
	}
}
