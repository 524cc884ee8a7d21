// Package handler defines the leaf handler contract (the boundary the
// batch runner dispatches into) and a registry keyed by canonical op name,
// plus a small illustrative catalog of leaf handlers against
// internal/obe/host.Host. Handlers are opaque to the core; this package
// exists only so the executor is runnable end-to-end.
package handler

import (
	"context"
	"fmt"

	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

// RefsView is the read-only ref environment view a handler receives.
// Handlers never mutate the environment directly; they return a value, and
// the batch runner binds it.
type RefsView interface {
	Get(name string) (interface{}, bool)
}

// Context carries the per-dispatch state a handler may consult.
type Context struct {
	Refs  RefsView
	Index int
	Tx    string
}

// Result is what a handler returns: any of a preferred refValue, a
// layer- or document-kind tagged object, a human detail string, and
// arbitrary handler-specific fields. Handlers return this as a plain map so
// the result builder can fold it into OpResult.result verbatim.
type Result map[string]interface{}

// Fn is the HandlerFn contract: an opaque leaf function implementing one
// canonical op against the host API.
type Fn func(ctx context.Context, resolvedOp envelope.Operation, hctx Context) (Result, error)

// Registry maps canonical op name to its Fn.
type Registry struct {
	handlers map[string]Fn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Fn)}
}

// Register adds (or replaces) the handler for canonicalOp.
func (r *Registry) Register(canonicalOp string, fn Fn) {
	r.handlers[canonicalOp] = fn
}

// Lookup returns the handler for canonicalOp, if any is registered. A miss
// here is distinct from an alias-table miss (obeerr.UnknownOpError): it
// means the op canonicalized fine but no leaf implements it yet.
func (r *Registry) Lookup(canonicalOp string) (Fn, bool) {
	fn, ok := r.handlers[canonicalOp]
	return fn, ok
}

// Invoke calls fn and enforces the handler contract: a nil Result is
// permitted and yields {"detail": "Executed '<op>'"}; any non-map return
// from within fn already satisfies the Go type system, so the remaining
// contract violation a handler can commit is to panic -- that is recovered
// here and surfaced as a HandlerContractError, failing the op rather than
// the process.
func Invoke(ctx context.Context, fn Fn, canonicalOp string, resolvedOp envelope.Operation, hctx Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &obeerr.HandlerContractError{Op: canonicalOp, Detail: fmt.Sprintf("handler panicked: %v", r)}
		}
	}()

	res, err = fn(ctx, resolvedOp, hctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return Result{"detail": fmt.Sprintf("Executed '%s'", canonicalOp)}, nil
	}
	return res, nil
}

// MustBeObject is a check for handler authors that build Result from a
// decoded interface{} rather than constructing Result directly; a
// non-object handler result is a contract violation.
func MustBeObject(canonicalOp string, v interface{}) (Result, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, &obeerr.HandlerContractError{Op: canonicalOp, Detail: "handler returned a non-object result"}
	}
	return Result(m), nil
}
