package preflight

import (
	"fmt"

	"github.com/lyzr/obe/internal/obe/alias"
	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

// Checker runs the per-op preflight checks against a resolved op and
// live host state.
type Checker struct {
	table  *alias.Table
	h      host.Host
	engine *ruleEngine
}

// New builds a Checker. It returns an error only if the CEL environment
// itself cannot be constructed, which would indicate a packaging problem
// rather than anything op-specific.
func New(table *alias.Table, h host.Host) (*Checker, error) {
	engine, err := newRuleEngine()
	if err != nil {
		return nil, err
	}
	return &Checker{table: table, h: h, engine: engine}, nil
}

// Check runs every applicable guard for canonicalOp against the already
// ref-resolved op payload.
func (c *Checker) Check(canonicalOp string, op envelope.Operation) error {
	if !c.table.IsActiveDocumentOptional(canonicalOp) {
		if _, ok := c.h.ActiveDocument(); !ok {
			return &obeerr.NoActiveDocumentError{}
		}
	}

	if c.table.IsLayerTargetRequired(canonicalOp) {
		target := op["target"]
		if _, ok := c.h.ResolveLayerTarget(target); !ok {
			return &obeerr.TargetNotFoundError{Target: target}
		}
	}

	for _, group := range Matrix[canonicalOp] {
		present, err := c.engine.groupPresent(map[string]interface{}(op), group)
		if err != nil {
			return fmt.Errorf("preflight rule evaluation for %s: %w", canonicalOp, err)
		}
		if !present {
			return &obeerr.MissingRequiredFieldError{Op: canonicalOp, Group: group.Fields}
		}
		if !anyMeaningful(op, group.Fields) {
			return &obeerr.MissingRequiredFieldError{Op: canonicalOp, Group: group.Fields}
		}
	}

	return nil
}

func anyMeaningful(op envelope.Operation, fields []string) bool {
	for _, f := range fields {
		if v, ok := op[f]; ok && isMeaningful(v) {
			return true
		}
	}
	return false
}
