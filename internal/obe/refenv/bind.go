package refenv

import "fmt"

// BindInput carries the three shapes a handler result may contribute a
// bound value from, in preference order.
type BindInput struct {
	RefValue interface{} // preferred binding, used verbatim
	Layer    interface{} // layer-kind tagged object
	Document interface{} // document-kind tagged object
}

// Bind computes the bound value for a successfully applied op and stores it
// under refName (if the op carried a ref-assignment field) plus the
// automatic refs last/lastLayer/lastDocument. It reports whether a value
// was actually stored, so the batch runner only advertises refAssigned for
// ops that truly bound something. Callers must only invoke Bind for ops
// whose OpResult.status is "applied" -- automatic refs update only on that
// status; Env itself does not re-check it.
func (e *Env) Bind(in BindInput, refName string) bool {
	val := boundValue(in)
	if val == nil {
		// A handler that returns no value at all never binds, even if the
		// op carried a ref-assignment field.
		return false
	}
	val = deepCopy(val)

	if refName != "" {
		e.values[refName] = val
	}
	e.values["last"] = val
	switch kindOf(val) {
	case "layer":
		e.values["lastLayer"] = val
	case "document":
		e.values["lastDocument"] = val
	}
	return true
}

// BindDryRunPlaceholder synthesizes a dry-run placeholder for
// creation-family ops and stores it under refName only -- the automatic
// refs are left untouched, since their update is scoped to status=="applied"
// and dry-run ops carry status=="validated".
func (e *Env) BindDryRunPlaceholder(index int, refName string, documentKind bool) map[string]interface{} {
	id := fmt.Sprintf("dry-%d", index)
	var placeholder map[string]interface{}
	if documentKind {
		placeholder = map[string]interface{}{
			"kind": "document", "docId": id, "title": id, "ref": "active",
		}
	} else {
		placeholder = map[string]interface{}{
			"kind": "layer", "layerId": id, "layerName": id, "id": id, "name": id,
		}
	}
	if refName != "" {
		e.values[refName] = deepCopy(placeholder)
	}
	return placeholder
}

func boundValue(in BindInput) interface{} {
	if in.RefValue != nil {
		return in.RefValue
	}
	if in.Layer != nil {
		return tagKind(in.Layer, "layer")
	}
	if in.Document != nil {
		return tagKind(in.Document, "document")
	}
	return nil
}

func tagKind(v interface{}, kind string) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if _, present := m["kind"]; !present {
		tagged := make(map[string]interface{}, len(m)+1)
		for k, val := range m {
			tagged[k] = val
		}
		tagged["kind"] = kind
		return tagged
	}
	return m
}

func kindOf(v interface{}) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	k, _ := m["kind"].(string)
	return k
}
