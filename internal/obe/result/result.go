// Package result implements the result builder: the structured, per-op
// outcome report plus the final ref map, rollback summary, and
// capabilities block that the batch runner assembles into one BatchResult
// per batch.
package result

import (
	"fmt"

	"github.com/lyzr/obe/internal/obe/obeerr"
)

// ErrorInfo is the normalized shape of OpResult.error: a stable kind name
// plus a human message and a six-line-truncated stack when one is
// available.
type ErrorInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// NewErrorInfo builds an ErrorInfo from err, using obeerr.NameOf to recover
// the stable kind name without string-sniffing at this layer.
func NewErrorInfo(err error, stack string) ErrorInfo {
	return ErrorInfo{
		Name:    obeerr.NameOf(err),
		Message: err.Error(),
		Stack:   stack,
	}
}

// OpResult is the recorded outcome of one op slot.
type OpResult struct {
	Index        int                    `json:"index"`
	Op           string                 `json:"op"`
	CanonicalOp  string                 `json:"canonicalOp"`
	OnError      string                 `json:"onError"`
	Status       string                 `json:"status"` // applied | failed | validated | skipped
	DurationMs   int64                  `json:"durationMs"`
	RefAssigned  string                 `json:"refAssigned,omitempty"`
	HandlerData  map[string]interface{} `json:"result,omitempty"`
	Error        *ErrorInfo             `json:"error,omitempty"`
}

// RollbackSummary is the BatchResult's rollback block.
type RollbackSummary struct {
	Requested    bool   `json:"requested"`
	Supported    bool   `json:"supported"`
	Strategy     string `json:"strategy,omitempty"`
	Behavior     string `json:"behavior,omitempty"`
	CheckpointID string `json:"checkpointId,omitempty"`
	Attempted    bool   `json:"attempted"`
	Restored     bool   `json:"restored"`
	Detail       string `json:"detail,omitempty"`
}

// Capabilities is the fixed block the executor always advertises.
type Capabilities struct {
	OpLocalRefs               bool               `json:"opLocalRefs"`
	RefSyntax                 string             `json:"refSyntax"`
	PerOpOnError              bool               `json:"perOpOnError"`
	RollbackOnError           RollbackCapability `json:"rollbackOnError"`
	StructuredResult          bool               `json:"structuredResult"`
	HandlerErrorIntrospection bool               `json:"handlerErrorIntrospection"`
}

// RollbackCapability is the nested capabilities.rollbackOnError block.
type RollbackCapability struct {
	Supported bool   `json:"supported"`
	Strategy  string `json:"strategy"`
	Behavior  string `json:"behavior"`
}

// DefaultCapabilities returns the literal capabilities block, so a
// transport layer or future handler catalog can report it without
// re-deriving the literal.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		OpLocalRefs:  true,
		RefSyntax:    "$name and $name.path",
		PerOpOnError: true,
		RollbackOnError: RollbackCapability{
			Supported: true,
			Strategy:  "snapshot+statePointer",
			Behavior:  "best-effort",
		},
		StructuredResult:          true,
		HandlerErrorIntrospection: true,
	}
}

// BatchResult is the full structured report for one batch.
type BatchResult struct {
	TransactionID string                 `json:"transactionId"`
	DryRun        bool                   `json:"dryRun"`
	Applied       int                    `json:"applied"`
	Failed        int                    `json:"failed"`
	Aborted       bool                   `json:"aborted"`
	CheckpointID  string                 `json:"checkpointId,omitempty"`
	Rollback      RollbackSummary        `json:"rollback"`
	Refs          map[string]interface{} `json:"refs"`
	OpResults     []OpResult             `json:"opResults"`
	Capabilities  Capabilities           `json:"capabilities"`
	Detail        string                 `json:"detail"`
}

// Builder accumulates OpResults and counts across one batch and assembles
// the final BatchResult. It has no behavior of its own beyond
// bookkeeping -- the batch runner decides what to record; the builder only
// keeps the counts and indices straight.
type Builder struct {
	transactionID string
	dryRun        bool
	opResults     []OpResult
	applied       int
	failed        int
	aborted       bool
	checkpointID  string
	rollback      RollbackSummary
}

// New starts a Builder for one batch.
func New(transactionID string, dryRun bool) *Builder {
	return &Builder{transactionID: transactionID, dryRun: dryRun}
}

// RecordApplied appends an "applied" or "validated" OpResult and increments
// the applied counter.
func (b *Builder) RecordApplied(r OpResult) {
	b.opResults = append(b.opResults, r)
	b.applied++
}

// RecordFailed appends a "failed" OpResult and increments the failed
// counter. If onError is "abort" the batch is marked aborted.
func (b *Builder) RecordFailed(r OpResult, onError string) {
	b.opResults = append(b.opResults, r)
	b.failed++
	if onError == "abort" {
		b.aborted = true
	}
}

// Aborted reports whether an abort has already been recorded, so the batch
// runner can skip remaining op slots.
func (b *Builder) Aborted() bool {
	return b.aborted
}

// MarkAborted aborts the batch without recording an OpResult, used when the
// batch cannot start at all (e.g. the modal gate was never acquired).
func (b *Builder) MarkAborted() {
	b.aborted = true
}

// FailedCount reports how many ops have failed so far, used by the batch
// runner to decide whether a requested rollback should actually attempt a
// restore.
func (b *Builder) FailedCount() int {
	return b.failed
}

// SetCheckpoint records the checkpoint id created for this batch, if any.
func (b *Builder) SetCheckpoint(id string) {
	b.checkpointID = id
}

// SetRollback records the final rollback summary.
func (b *Builder) SetRollback(r RollbackSummary) {
	b.rollback = r
}

// Build assembles the final BatchResult. refs must already be a
// deep-cloned snapshot (refenv.Env.Snapshot does this).
func (b *Builder) Build(refs map[string]interface{}, totalOps int) BatchResult {
	detail := fmt.Sprintf("%d applied, %d failed, %d of %d ops run", b.applied, b.failed, len(b.opResults), totalOps)
	if b.aborted {
		detail += " (aborted)"
	}
	return BatchResult{
		TransactionID: b.transactionID,
		DryRun:        b.dryRun,
		Applied:       b.applied,
		Failed:        b.failed,
		Aborted:       b.aborted,
		CheckpointID:  b.checkpointID,
		Rollback:      b.rollback,
		Refs:          refs,
		OpResults:     b.opResults,
		Capabilities:  DefaultCapabilities(),
		Detail:        detail,
	}
}
