package host

import "strconv"

// unwrapTarget follows nested {target|layer|ref: ...} wrapper forms down
// to the innermost non-wrapper value.
func unwrapTarget(target interface{}) interface{} {
	for {
		m, ok := target.(map[string]interface{})
		if !ok {
			return target
		}
		inner, present := m["target"]
		if !present {
			inner, present = m["layer"]
		}
		if !present {
			inner, present = m["ref"]
		}
		if !present {
			return target
		}
		target = inner
	}
}

// ResolveLayerTargetIn resolves a layer target (numeric or string id,
// layer name, tagged or nested wrapper object, nil meaning the active
// target) against an explicit layer list and active fallback. It is a
// package-level function (rather than only a Host method) so preflight and
// handlers can reuse it without forcing every Host implementation to embed
// the same search loop.
func ResolveLayerTargetIn(layers []LayerInfo, active *LayerInfo, target interface{}) (LayerInfo, bool) {
	if target == nil {
		if active != nil {
			return *active, true
		}
		return LayerInfo{}, false
	}

	target = unwrapTarget(target)

	switch t := target.(type) {
	case map[string]interface{}:
		if id, ok := stringField(t, "layerId", "id"); ok {
			if l, found := findLayerByID(layers, id); found {
				return l, true
			}
		}
		if name, ok := stringField(t, "layerName", "name"); ok {
			if l, found := findLayerByName(layers, name); found {
				return l, true
			}
		}
		return LayerInfo{}, false
	case string:
		if l, found := findLayerByID(layers, t); found {
			return l, true
		}
		return findLayerByName(layers, t)
	case float64:
		id := formatNumericID(t)
		return findLayerByID(layers, id)
	default:
		return LayerInfo{}, false
	}
}

// ResolveDocumentTargetIn resolves a document target ("active", id, title,
// or a tagged/nested wrapper object) with the same search order as layers:
// by id first, then by title.
func ResolveDocumentTargetIn(docs []DocumentInfo, active *DocumentInfo, target interface{}) (DocumentInfo, bool) {
	if target == nil {
		if active != nil {
			return *active, true
		}
		return DocumentInfo{}, false
	}

	target = unwrapTarget(target)

	switch t := target.(type) {
	case map[string]interface{}:
		if id, ok := stringField(t, "docId", "id"); ok {
			if d, found := findDocByID(docs, id); found {
				return d, true
			}
		}
		if title, ok := stringField(t, "title", "docTitle"); ok {
			if d, found := findDocByTitle(docs, title); found {
				return d, true
			}
		}
		if r, ok := t["ref"].(string); ok && r == "active" && active != nil {
			return *active, true
		}
		return DocumentInfo{}, false
	case string:
		if t == "active" {
			if active != nil {
				return *active, true
			}
			return DocumentInfo{}, false
		}
		if d, found := findDocByID(docs, t); found {
			return d, true
		}
		return findDocByTitle(docs, t)
	case float64:
		id := formatNumericID(t)
		return findDocByID(docs, id)
	default:
		return DocumentInfo{}, false
	}
}

func stringField(m map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, isStr := v.(string); isStr && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func findLayerByID(layers []LayerInfo, id string) (LayerInfo, bool) {
	for _, l := range layers {
		if l.ID == id {
			return l, true
		}
	}
	return LayerInfo{}, false
}

func findLayerByName(layers []LayerInfo, name string) (LayerInfo, bool) {
	for _, l := range layers {
		if l.Name == name {
			return l, true
		}
	}
	return LayerInfo{}, false
}

func findDocByID(docs []DocumentInfo, id string) (DocumentInfo, bool) {
	for _, d := range docs {
		if d.ID == id {
			return d, true
		}
	}
	return DocumentInfo{}, false
}

func findDocByTitle(docs []DocumentInfo, title string) (DocumentInfo, bool) {
	for _, d := range docs {
		if d.Title == title {
			return d, true
		}
	}
	return DocumentInfo{}, false
}

func formatNumericID(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
