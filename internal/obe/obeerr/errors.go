// Package obeerr holds the closed taxonomy of error kinds the core raises.
// Each kind is its own exported type instead of a generic wrapped
// sentinel so that callers building an OpResult never need to parse error
// strings to recover a stable `error.name` — the one deliberate exception is
// the modal coordinator's own classification of the host's raw error text
// (internal/obe/modal), which has no structured alternative to reach for.
package obeerr

import "fmt"

// Named is implemented by every error type in this package so result
// builders can populate OpResult.error.name without a type switch.
type Named interface {
	error
	Name() string
}

// NameOf returns the stable error-kind name for err, or "Error" for anything
// outside the taxonomy (e.g. a context.Canceled bubbling up unexpectedly).
func NameOf(err error) string {
	if n, ok := err.(Named); ok {
		return n.Name()
	}
	return "Error"
}

// ValidationError is a fatal envelope-structural problem. No ops run.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation: %s", e.Reason) }
func (e *ValidationError) Name() string  { return "Validation" }

// UnknownOpError is an alias-table miss; fatal for that op.
type UnknownOpError struct {
	Op string
}

func (e *UnknownOpError) Error() string { return fmt.Sprintf("unknown op %q", e.Op) }
func (e *UnknownOpError) Name() string  { return "UnknownOp" }

// UnknownRefError is a nested ref token that could not resolve; fails that op.
type UnknownRefError struct {
	Token string
}

func (e *UnknownRefError) Error() string { return fmt.Sprintf("unknown ref %q", e.Token) }
func (e *UnknownRefError) Name() string  { return "UnknownRef" }

// NoActiveDocumentError is a preflight guard failure.
type NoActiveDocumentError struct{}

func (e *NoActiveDocumentError) Error() string { return "no active document" }
func (e *NoActiveDocumentError) Name() string  { return "NoActiveDocument" }

// TargetNotFoundError means a layer/document target was not resolvable.
type TargetNotFoundError struct {
	Target interface{}
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target not found: %v", e.Target)
}
func (e *TargetNotFoundError) Name() string { return "TargetNotFound" }

// MissingRequiredFieldError names the op and the unsatisfied field group.
type MissingRequiredFieldError struct {
	Op    string
	Group []string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("%s requires one of %v", e.Op, e.Group)
}
func (e *MissingRequiredFieldError) Name() string { return "MissingRequiredField" }

// HostBusyError is a normalized "modal state busy" host failure whose
// retries have been exhausted.
type HostBusyError struct {
	Op string
}

func (e *HostBusyError) Error() string { return fmt.Sprintf("%s: host modal state busy", e.Op) }
func (e *HostBusyError) Name() string  { return "HostBusy" }

// CommandUnavailableError normalizes a "not currently available" host failure.
type CommandUnavailableError struct {
	Op string
}

func (e *CommandUnavailableError) Error() string {
	return fmt.Sprintf("%s: command not currently available", e.Op)
}
func (e *CommandUnavailableError) Name() string { return "CommandUnavailable" }

// HostProgramError normalizes a "program error" host failure.
type HostProgramError struct {
	Op string
}

func (e *HostProgramError) Error() string { return fmt.Sprintf("%s: host program error", e.Op) }
func (e *HostProgramError) Name() string  { return "HostProgramError" }

// InvalidDocumentError normalizes a "not a valid document" host failure.
type InvalidDocumentError struct {
	Op string
}

func (e *InvalidDocumentError) Error() string { return fmt.Sprintf("%s: not a valid document", e.Op) }
func (e *InvalidDocumentError) Name() string  { return "InvalidDocument" }

// HandlerContractError means a leaf handler returned a non-object result.
type HandlerContractError struct {
	Op     string
	Detail string
}

func (e *HandlerContractError) Error() string {
	return fmt.Sprintf("%s: handler contract violation: %s", e.Op, e.Detail)
}
func (e *HandlerContractError) Name() string { return "HandlerContract" }

// TimeoutError means a modal entry exceeded its timeoutMs.
type TimeoutError struct {
	Op        string
	TimeoutMs int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: modal entry exceeded %dms", e.Op, e.TimeoutMs)
}
func (e *TimeoutError) Name() string { return "Timeout" }

// CheckpointCreateFailedError is non-fatal; it reduces rollback capability.
type CheckpointCreateFailedError struct {
	Detail string
}

func (e *CheckpointCreateFailedError) Error() string {
	return fmt.Sprintf("checkpoint create failed: %s", e.Detail)
}
func (e *CheckpointCreateFailedError) Name() string { return "CheckpointCreateFailed" }

// CheckpointRestoreFailedError is non-fatal; it reduces rollback capability.
type CheckpointRestoreFailedError struct {
	Detail string
}

func (e *CheckpointRestoreFailedError) Error() string {
	return fmt.Sprintf("checkpoint restore failed: %s", e.Detail)
}
func (e *CheckpointRestoreFailedError) Name() string { return "CheckpointRestoreFailed" }
