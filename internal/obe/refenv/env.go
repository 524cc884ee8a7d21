// Package refenv implements the ref environment: a per-batch map from
// ref-name to JSON value, with a gjson-driven path resolver for
// `$name.path.segment` tokens. The map is purely in-memory and owned
// exclusively by the batch runner; nothing here persists or is shared.
package refenv

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

var refTokenRe = regexp.MustCompile(`^\$[A-Za-z0-9_.-]+$`)

// skipFields lists the op fields the resolver never attempts to resolve,
// regardless of whether their value looks like a ref token:
// the op name itself, the per-op error policy, every ref-assignment field,
// and the two literal-text fields.
var skipFields = map[string]bool{
	"op": true, "onError": true, "text": true, "contents": true,
	"ref": true, "refId": true, "as": true, "outputRef": true, "storeAs": true, "idRef": true,
}

// Env is the ref environment for one batch. It is not safe for concurrent
// use -- the batch runner is its sole owner and accesses it sequentially.
type Env struct {
	values map[string]interface{}
}

// New creates an Env seeded from the envelope's pre-seeded refs (deep-cloned
// so later mutation of the envelope cannot bleed into the environment).
func New(seed map[string]interface{}) *Env {
	values := make(map[string]interface{}, len(seed))
	for k, v := range seed {
		values[k] = deepCopy(v)
	}
	return &Env{values: values}
}

// Get returns a deep-cloned copy of the named ref, satisfying the
// handler.RefsView contract handlers receive at dispatch time: a
// read-only view that cannot alias the stored value.
func (e *Env) Get(name string) (interface{}, bool) {
	v, ok := e.values[name]
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// Snapshot returns a deep-cloned copy of the current ref map, suitable for
// BatchResult.refs.
func (e *Env) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(e.values))
	for k, v := range e.values {
		out[k] = deepCopy(v)
	}
	return out
}

// Resolve walks op's payload and returns a new Operation with every ref
// token replaced by its resolved value. Top-level
// fields named op/onError/a ref-assignment field/text/contents are left
// untouched. The op itself is never mutated; the result is a deep clone.
func (e *Env) Resolve(op envelope.Operation) (envelope.Operation, error) {
	out := make(map[string]interface{}, len(op))
	for k, v := range op {
		if skipFields[k] {
			out[k] = deepCopy(v)
			continue
		}
		rv, err := e.resolveValue(v, true)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return envelope.Operation(out), nil
}

func (e *Env) resolveValue(v interface{}, topLevel bool) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return e.resolveString(t, topLevel)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			rv, err := e.resolveValue(val, false)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			rv, err := e.resolveValue(val, false)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (e *Env) resolveString(s string, topLevel bool) (interface{}, error) {
	if !refTokenRe.MatchString(s) {
		return s, nil
	}

	token := s[1:] // drop leading '$'
	name := token
	path := ""
	if idx := strings.IndexByte(token, '.'); idx >= 0 {
		name, path = token[:idx], token[idx+1:]
	}

	val, exists := e.values[name]
	if !exists {
		if topLevel {
			return s, nil
		}
		return nil, &obeerr.UnknownRefError{Token: s}
	}
	if path == "" {
		return deepCopy(val), nil
	}

	marshaled, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("marshal ref %q for path resolution: %w", name, err)
	}
	result := gjson.GetBytes(marshaled, path)
	if !result.Exists() {
		// A missing intermediate segment on a *known* ref is always a hard
		// failure, top-level or not.
		return nil, &obeerr.UnknownRefError{Token: s}
	}
	return result.Value(), nil
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
