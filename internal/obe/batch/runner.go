// Package batch implements the batch runner: the main loop
// that, for each op, resolves refs, canonicalizes the op name, runs
// preflight, dispatches the leaf handler inside the modal coordinator, and
// binds refs -- honoring per-op and batch-wide error policy and driving the
// checkpoint/rollback lifecycle around the loop.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/obe/common/logger"
	"github.com/lyzr/obe/internal/obe/alias"
	"github.com/lyzr/obe/internal/obe/checkpoint"
	"github.com/lyzr/obe/internal/obe/envelope"
	"github.com/lyzr/obe/internal/obe/handler"
	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/modal"
	"github.com/lyzr/obe/internal/obe/obeerr"
	"github.com/lyzr/obe/internal/obe/preflight"
	"github.com/lyzr/obe/internal/obe/refenv"
	"github.com/lyzr/obe/internal/obe/result"
)

// Coordinator is the subset of modal.Coordinator / modal.RedisCoordinator
// the runner depends on, so either variant can drive dispatch without the
// runner caring which. The runner acquires the permit once per non-dry-run
// batch and dispatches every op inside it, so ops of separate batches never
// interleave mid-batch.
type Coordinator interface {
	Acquire(ctx context.Context) error
	Release()
	Dispatch(ctx context.Context, opts modal.Options, task host.ModalTask) (interface{}, error)
}

// ModalDefaults carries the config-driven defaults for every modal entry
// this batch opens, sourced from common/config.ModalConfig.
type ModalDefaults struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Runner wires the alias table, preflight, coordinator, checkpoints and
// handler registry together into the per-op batch loop.
type Runner struct {
	Table       *alias.Table
	Checker     *preflight.Checker
	Coordinator Coordinator
	Checkpoints *checkpoint.Manager
	Handlers    *handler.Registry
	Modal       ModalDefaults
	Log         *logger.Logger
}

// Run drives one already-validated envelope through the full batch loop and
// returns its BatchResult. Run has no error return: op-scoped failures are
// folded into the BatchResult.
func (r *Runner) Run(ctx context.Context, env *envelope.Envelope) result.BatchResult {
	refEnv := refenv.New(env.Refs)
	builder := result.New(env.TransactionID, env.Safety.DryRun)
	rollback := result.RollbackSummary{Requested: env.Safety.RollbackOnError}

	// A dry-run batch never enters the coordinator; a mutating
	// batch holds the permit from before its checkpoint capture until after
	// any rollback, so no other batch's ops interleave with this one's and
	// the captured pre-batch state stays the state the first op sees.
	if !env.Safety.DryRun {
		if err := r.Coordinator.Acquire(ctx); err != nil {
			builder.MarkAborted()
			rollback.Detail = fmt.Sprintf("modal gate not acquired: %v", err)
			builder.SetRollback(rollback)
			return builder.Build(refEnv.Snapshot(), len(env.Ops))
		}
		defer r.Coordinator.Release()
	}

	var cp checkpoint.Checkpoint
	var haveCheckpoint bool

	if !env.Safety.DryRun && (env.Safety.RollbackOnError || env.Safety.Checkpoint) {
		created, err := r.Checkpoints.Create(ctx, "pre-batch:"+env.TransactionID)
		cp = created
		haveCheckpoint = true
		builder.SetCheckpoint(created.ID)
		rollback.CheckpointID = created.ID
		rollback.Supported = created.RestoreSupported
		rollback.Strategy = created.Strategy
		rollback.Behavior = created.Behavior
		if err != nil {
			rollback.Detail = err.Error()
			if r.Log != nil {
				r.Log.Warn("checkpoint create failed, proceeding with reduced rollback capability", "transaction_id", env.TransactionID, "error", err)
			}
		}
	}

	defaultOnError := env.DefaultOnError()

	for i, op := range env.Ops {
		if builder.Aborted() {
			break
		}

		r.runOp(ctx, env, refEnv, builder, i, op, defaultOnError)

		// Inter-op pacing applies to every processed slot except the last
		// and except dry-run batches, which never pace. The pause happens
		// with the permit still held.
		if !env.Safety.DryRun && !builder.Aborted() &&
			env.Safety.OpDelayMsSet && env.Safety.OpDelayMs > 0 && i != len(env.Ops)-1 {
			select {
			case <-time.After(time.Duration(env.Safety.OpDelayMs) * time.Millisecond):
			case <-ctx.Done():
			}
		}
	}

	if !env.Safety.DryRun && env.Safety.RollbackOnError && builder.FailedCount() > 0 {
		rollback.Attempted = true
		if haveCheckpoint {
			rr := r.Checkpoints.Restore(ctx, cp)
			rollback.Restored = rr.Restored
			rollback.Detail = rr.Detail
			if rr.Strategy != "" {
				rollback.Strategy = rr.Strategy
			}
		} else {
			rollback.Restored = false
			rollback.Detail = "no checkpoint was captured for this batch"
		}
	}

	builder.SetRollback(rollback)
	return builder.Build(refEnv.Snapshot(), len(env.Ops))
}

// runOp drives one op slot through resolve -> canonicalize -> preflight ->
// dispatch -> bind and records exactly one OpResult.
func (r *Runner) runOp(ctx context.Context, env *envelope.Envelope, refEnv *refenv.Env, builder *result.Builder, i int, op envelope.Operation, defaultOnError string) {
	onError, hasOnError := op.OnError()
	if !hasOnError {
		onError = defaultOnError
	}

	started := time.Now()
	opResult := result.OpResult{Index: i, Op: op.Op(), OnError: onError}

	resolved, err := refEnv.Resolve(op)
	if err != nil {
		r.fail(builder, opResult, started, onError, err)
		return
	}

	canonicalOp, err := r.Table.Canonicalize(resolved.Op())
	if err != nil {
		r.fail(builder, opResult, started, onError, err)
		return
	}
	opResult.CanonicalOp = canonicalOp

	_, refName, hasRef := resolved.RefAssignment()

	if err := r.Checker.Check(canonicalOp, resolved); err != nil {
		r.fail(builder, opResult, started, onError, err)
		return
	}

	if env.Safety.DryRun {
		if hasRef {
			refEnv.BindDryRunPlaceholder(i, refName, r.Table.IsDocumentKindRefBind(canonicalOp))
			opResult.RefAssigned = refName
		}
		opResult.Status = "validated"
		opResult.DurationMs = time.Since(started).Milliseconds()
		builder.RecordApplied(opResult)
		return
	}

	fn, ok := r.Handlers.Lookup(canonicalOp)
	if !ok {
		r.fail(builder, opResult, started, onError, &obeerr.CommandUnavailableError{Op: canonicalOp})
		return
	}

	hctx := handler.Context{Refs: refEnv, Index: i, Tx: env.TransactionID}
	task := func(taskCtx context.Context) (interface{}, error) {
		return handler.Invoke(taskCtx, fn, canonicalOp, resolved, hctx)
	}

	raw, err := r.Coordinator.Dispatch(ctx, modal.Options{
		CommandName: canonicalOp,
		MaxRetries:  r.Modal.MaxRetries,
		RetryDelay:  r.Modal.RetryDelay,
		Timeout:     r.Modal.Timeout,
	}, task)
	if err != nil {
		r.fail(builder, opResult, started, onError, err)
		return
	}

	hres, _ := raw.(handler.Result)
	bound := refEnv.Bind(refenv.BindInput{
		RefValue: hres["refValue"],
		Layer:    hres["layer"],
		Document: hres["document"],
	}, refName)

	// A pure side-effect handler (no refValue/layer/document in its result)
	// binds nothing, so the ref assignment must not be advertised either.
	if hasRef && bound {
		opResult.RefAssigned = refName
	}
	opResult.Status = "applied"
	opResult.DurationMs = time.Since(started).Milliseconds()
	opResult.HandlerData = hres
	builder.RecordApplied(opResult)
}

func (r *Runner) fail(builder *result.Builder, opResult result.OpResult, started time.Time, onError string, err error) {
	opResult.Status = "failed"
	opResult.DurationMs = time.Since(started).Milliseconds()
	info := result.NewErrorInfo(err, "")
	opResult.Error = &info
	if r.Log != nil {
		r.Log.WithOp(opResult.Index, opResult.CanonicalOp).Warn("op failed",
			"error", err, "on_error", onError)
	}
	builder.RecordFailed(opResult, onError)
}
