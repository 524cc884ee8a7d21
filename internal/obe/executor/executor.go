// Package executor is the top-level facade over the whole engine:
// envelope validation, then the batch runner, producing one BatchResult
// per call. It is the one entry point a transport adapter (cmd/obed) or
// any other front-end needs.
package executor

import (
	"context"
	"time"

	"github.com/lyzr/obe/common/logger"
	"github.com/lyzr/obe/internal/obe/alias"
	"github.com/lyzr/obe/internal/obe/batch"
	"github.com/lyzr/obe/internal/obe/checkpoint"
	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/handler"
	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/modal"
	"github.com/lyzr/obe/internal/obe/preflight"
	"github.com/lyzr/obe/internal/obe/result"
)

// Executor is the OBE core's public surface: Apply(envelope) -> BatchResult.
type Executor struct {
	host        host.Host
	table       *alias.Table
	checker     *preflight.Checker
	coordinator batch.Coordinator
	checkpoints *checkpoint.Manager
	handlers    *handler.Registry
	modal       batch.ModalDefaults
	log         *logger.Logger
}

// Options configures New.
type Options struct {
	Table       *alias.Table        // defaults to alias.New()
	Handlers    *handler.Registry   // defaults to a registry with the illustrative catalog
	Coordinator batch.Coordinator   // defaults to modal.New(h)
	Checkpoints *checkpoint.Manager // defaults to checkpoint.New(h, checkpoint.NewMemoryStore())
	Modal       batch.ModalDefaults // defaults to modal's package defaults
	Log         *logger.Logger
}

// New builds an Executor against h, applying opts on top of the defaults
// that make a runnable in-process executor out of the box (the in-memory
// checkpoint store, the in-process modal coordinator, the illustrative
// handler catalog).
func New(h host.Host, opts Options) (*Executor, error) {
	table := opts.Table
	if table == nil {
		table = alias.New()
	}

	handlers := opts.Handlers
	if handlers == nil {
		handlers = handler.NewRegistry()
		handler.RegisterIllustrativeCatalog(handlers, h)
	}

	coordinator := opts.Coordinator
	if coordinator == nil {
		coordinator = modal.New(h)
	}

	checkpoints := opts.Checkpoints
	if checkpoints == nil {
		checkpoints = checkpoint.New(h, checkpoint.NewMemoryStore())
	}

	modalDefaults := opts.Modal
	if modalDefaults.MaxRetries == 0 {
		modalDefaults.MaxRetries = modal.DefaultMaxRetries
	}
	if modalDefaults.RetryDelay == 0 {
		modalDefaults.RetryDelay = modal.DefaultRetryDelay
	}
	if modalDefaults.Timeout == 0 {
		modalDefaults.Timeout = modal.DefaultTimeout
	}

	checker, err := preflight.New(table, h)
	if err != nil {
		return nil, err
	}

	return &Executor{
		host:        h,
		table:       table,
		checker:     checker,
		coordinator: coordinator,
		checkpoints: checkpoints,
		handlers:    handlers,
		modal:       modalDefaults,
		log:         opts.Log,
	}, nil
}

// Apply validates rawEnvelope and, on success, runs it through the batch
// runner. A non-nil error here is always a *obeerr.ValidationError: no ops
// ran, no state changed, and no BatchResult exists.
func (e *Executor) Apply(ctx context.Context, rawEnvelope interface{}) (result.BatchResult, error) {
	env, err := envelope.Validate(rawEnvelope)
	if err != nil {
		return result.BatchResult{}, err
	}

	started := time.Now()
	runner := &batch.Runner{
		Table:       e.table,
		Checker:     e.checker,
		Coordinator: e.coordinator,
		Checkpoints: e.checkpoints,
		Handlers:    e.handlers,
		Modal:       e.modal,
		Log:         e.log,
	}
	br := runner.Run(ctx, env)

	if e.log != nil {
		e.log.WithTransaction(env.TransactionID).Info("batch applied",
			"applied", br.Applied, "failed", br.Failed, "aborted", br.Aborted,
			"duration_ms", time.Since(started).Milliseconds())
	}
	return br, nil
}

// Capabilities reports what this executor always supports.
func (e *Executor) Capabilities() result.Capabilities {
	return result.DefaultCapabilities()
}
