package envelope

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lyzr/obe/internal/obe/obeerr"
)

// refNameRe is the ref-name grammar.
var refNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

var recognizedSafetyKeys = map[string]bool{
	"dryRun":          true,
	"checkpoint":      true,
	"rollbackOnError": true,
	"onError":         true,
	"continueOnError": true,
	"opDelayMs":       true,
}

// Validate performs the ordered structural + semantic envelope checks
// against a decoded-but-untyped envelope (the shape json.Unmarshal produces
// when the target is `interface{}`) and returns the typed Envelope on
// success. No partial acceptance: the first failing check aborts validation.
func Validate(raw interface{}) (*Envelope, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fail("envelope must be a JSON object")
	}

	txID, ok := obj["transactionId"].(string)
	if !ok || txID == "" {
		return nil, fail("transactionId must be a non-empty string")
	}

	docRaw, ok := obj["doc"].(map[string]interface{})
	if !ok {
		return nil, fail("doc must be an object")
	}
	docRef, ok := docRaw["ref"].(string)
	if !ok || docRef == "" {
		return nil, fail("doc.ref must be a non-empty string")
	}

	opsRaw, ok := obj["ops"].([]interface{})
	if !ok || len(opsRaw) == 0 {
		return nil, fail("ops must be a non-empty sequence")
	}

	ops := make([]Operation, len(opsRaw))
	for i, item := range opsRaw {
		opMap, ok := item.(map[string]interface{})
		if !ok {
			return nil, fail(fmt.Sprintf("ops[%d] must be an object", i))
		}
		opName, ok := opMap["op"].(string)
		if !ok || opName == "" {
			return nil, fail(fmt.Sprintf("ops[%d].op must be a non-empty string", i))
		}
		if raw, present := opMap["onError"]; present {
			s, isStr := raw.(string)
			if !isStr || !isOnErrorValue(s) {
				return nil, fail(fmt.Sprintf("ops[%d].onError must be \"abort\" or \"continue\"", i))
			}
			opMap["onError"] = strings.ToLower(s)
		}
		ops[i] = Operation(opMap)
		if field, name, ok := ops[i].RefAssignment(); ok && !refNameRe.MatchString(name) {
			return nil, fail(fmt.Sprintf("ops[%d].%s is not a valid ref name: %q", i, field, name))
		}
	}

	safety := SafetyOptions{}
	if safetyRaw, present := obj["safety"]; present {
		safetyMap, ok := safetyRaw.(map[string]interface{})
		if !ok {
			return nil, fail("safety must be an object")
		}
		for k := range safetyMap {
			if !recognizedSafetyKeys[k] {
				return nil, fail(fmt.Sprintf("safety has unrecognized key %q", k))
			}
		}
		if v, present := safetyMap["dryRun"]; present {
			b, ok := v.(bool)
			if !ok {
				return nil, fail("safety.dryRun must be a boolean")
			}
			safety.DryRun = b
		}
		if v, present := safetyMap["checkpoint"]; present {
			b, ok := v.(bool)
			if !ok {
				return nil, fail("safety.checkpoint must be a boolean")
			}
			safety.Checkpoint = b
		}
		if v, present := safetyMap["rollbackOnError"]; present {
			b, ok := v.(bool)
			if !ok {
				return nil, fail("safety.rollbackOnError must be a boolean")
			}
			safety.RollbackOnError = b
		}
		if v, present := safetyMap["continueOnError"]; present {
			b, ok := v.(bool)
			if !ok {
				return nil, fail("safety.continueOnError must be a boolean")
			}
			safety.ContinueOnError = b
		}
		if v, present := safetyMap["onError"]; present {
			s, ok := v.(string)
			if !ok || !isOnErrorValue(s) {
				return nil, fail("safety.onError must be \"abort\" or \"continue\"")
			}
			safety.OnError = strings.ToLower(s)
		}
		if v, present := safetyMap["opDelayMs"]; present {
			f, ok := v.(float64)
			if !ok || f != float64(int(f)) || f < 0 || f > 60000 {
				return nil, fail("safety.opDelayMs must be an integer in [0, 60000]")
			}
			safety.OpDelayMs = int(f)
			safety.OpDelayMsSet = true
		}
	}

	var refs map[string]interface{}
	if refsRaw, present := obj["refs"]; present {
		refs, ok = refsRaw.(map[string]interface{})
		if !ok {
			return nil, fail("refs must be an object")
		}
		for name := range refs {
			if !refNameRe.MatchString(name) {
				return nil, fail(fmt.Sprintf("refs key is not a valid ref name: %q", name))
			}
		}
	}

	return &Envelope{
		TransactionID: txID,
		Doc:           DocRef{Ref: docRef},
		Refs:          refs,
		Ops:           ops,
		Safety:        safety,
	}, nil
}

func isOnErrorValue(s string) bool {
	s = strings.ToLower(s)
	return s == "abort" || s == "continue"
}

func fail(reason string) error {
	return &obeerr.ValidationError{Reason: reason}
}
