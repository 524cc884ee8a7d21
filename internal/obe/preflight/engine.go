package preflight

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// ruleEngine compiles each group's "at-least-one-of" presence disjunction
// into a CEL program on first use and caches it by expression string,
// mirroring condition.Evaluator's cache map[string]cel.Program guarded by
// an RWMutex.
type ruleEngine struct {
	mu       sync.RWMutex
	programs map[string]cel.Program
	env      *cel.Env
}

func newRuleEngine() (*ruleEngine, error) {
	env, err := cel.NewEnv(cel.Variable("op", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}
	return &ruleEngine{programs: make(map[string]cel.Program), env: env}, nil
}

func groupExpr(fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("has(op.%s)", f)
	}
	return strings.Join(parts, " || ")
}

func (e *ruleEngine) compile(expr string) (cel.Program, error) {
	e.mu.RLock()
	if p, ok := e.programs[expr]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	e.mu.RUnlock()

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile rule %q: %w", expr, iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build rule program %q: %w", expr, err)
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

// groupPresent reports whether at least one field of group is present as a
// key in op; a key holding null still counts as present here.
func (e *ruleEngine) groupPresent(op map[string]interface{}, group Group) (bool, error) {
	expr := groupExpr(group.Fields)
	prg, err := e.compile(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]interface{}{"op": op})
	if err != nil {
		// CEL reports a missing map key as an evaluation error under some
		// environments rather than returning false; treat it as "not present".
		return false, nil
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q did not evaluate to a boolean", expr)
	}
	return b, nil
}
