// Package envelope implements the structural and semantic validation of an
// incoming batch and the data-model types it decodes into.
package envelope

// refAssignmentFields lists the ref-assignment fields in their fixed
// precedence order: at most one is consumed per operation, first wins.
var refAssignmentFields = []string{"ref", "refId", "as", "outputRef", "storeAs", "idRef"}

// Operation is one element of an Envelope's ops sequence. It is kept as a
// free-form map rather than a fixed struct because almost all of its fields
// are handler-specific and opaque to the core -- only op, onError and the
// ref-assignment fields have core-level meaning.
type Operation map[string]interface{}

// Op returns the raw (pre-alias) op name.
func (o Operation) Op() string {
	s, _ := o["op"].(string)
	return s
}

// OnError returns the op-local error policy override, if present.
func (o Operation) OnError() (string, bool) {
	s, ok := o["onError"].(string)
	return s, ok
}

// RefAssignment returns the field name and ref name of the first
// ref-assignment field present with a non-empty string value, in the fixed
// precedence order (ref, refId, as, outputRef, storeAs, idRef).
func (o Operation) RefAssignment() (field, name string, ok bool) {
	for _, f := range refAssignmentFields {
		if v, present := o[f]; present {
			if s, isStr := v.(string); isStr && s != "" {
				return f, s, true
			}
		}
	}
	return "", "", false
}

// Clone returns a deep copy of the operation's payload.
func (o Operation) Clone() Operation {
	return deepCopy(map[string]interface{}(o)).(map[string]interface{})
}

// DocRef names the target document the batch operates against.
type DocRef struct {
	Ref string `json:"ref"`
}

// SafetyOptions carries the batch-wide execution policy.
type SafetyOptions struct {
	DryRun          bool
	Checkpoint      bool
	RollbackOnError bool
	OnError         string // "" means unset
	ContinueOnError bool
	OpDelayMs       int
	OpDelayMsSet    bool
}

// Envelope is the validated, typed form of an incoming batch request.
type Envelope struct {
	TransactionID string
	Doc           DocRef
	Refs          map[string]interface{}
	Ops           []Operation
	Safety        SafetyOptions
}

// DefaultOnError computes the batch-wide default policy: an explicit
// safety.onError wins, then a truthy continueOnError, then "abort".
func (e *Envelope) DefaultOnError() string {
	if e.Safety.OnError != "" {
		return e.Safety.OnError
	}
	if e.Safety.ContinueOnError {
		return "continue"
	}
	return "abort"
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
