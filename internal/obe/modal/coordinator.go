// Package modal implements the modal execution coordinator: the
// single-reader semaphore that serializes all document mutation through
// the host's cooperative critical section, with bounded retry on transient
// "host busy" collisions and normalization of the host's raw error text
// into the closed error taxonomy of internal/obe/obeerr. The one place in
// this codebase that classifies errors by string content lives here --
// the host only speaks in message strings; everywhere else prefers
// structured types.
package modal

import (
	"context"
	"strings"
	"time"

	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

// Options configures one modal entry.
type Options struct {
	CommandName string
	MaxRetries  int           // default 5
	RetryDelay  time.Duration // default 350ms
	Timeout     time.Duration // default 30s
}

const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = 350 * time.Millisecond
	DefaultTimeout    = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Coordinator serializes mutating work through host.ExecuteAsModal. It is
// itself a single in-process semaphore: one permit, no reentrancy. The
// batch runner holds the permit for the whole batch (Acquire/Release) so
// ops of separate batches never interleave mid-batch, and dispatches each
// op as its own host modal call (Dispatch) so timeouts stay per-op.
type Coordinator struct {
	sem chan struct{}
	h   host.Host
}

// New returns an in-process Coordinator guarding h.
func New(h host.Host) *Coordinator {
	return &Coordinator{sem: make(chan struct{}, 1), h: h}
}

// Acquire takes the single permit, blocking until it is free or ctx is done.
func (c *Coordinator) Acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the permit. Callers must hold it.
func (c *Coordinator) Release() {
	<-c.sem
}

// Dispatch calls host.ExecuteAsModal with retry on transient busy failures
// and returns the task's result. Non-busy failures are normalized and
// returned immediately without retry. Callers must hold the permit.
func (c *Coordinator) Dispatch(ctx context.Context, opts Options, task host.ModalTask) (interface{}, error) {
	opts = opts.withDefaults()

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result, err := c.h.ExecuteAsModal(ctx, task, opts.CommandName, opts.Timeout)
		if err == nil {
			return result, nil
		}

		if isTimeout(err) {
			return nil, &obeerr.TimeoutError{Op: opts.CommandName, TimeoutMs: int(opts.Timeout / time.Millisecond)}
		}
		if isBusy(err) {
			if attempt == opts.MaxRetries {
				break
			}
			select {
			case <-time.After(opts.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		return nil, Normalize(opts.CommandName, err)
	}

	return nil, &obeerr.HostBusyError{Op: opts.CommandName}
}

// Enter is Acquire + Dispatch + Release in one call, for callers running a
// single mutating task outside a batch.
func (c *Coordinator) Enter(ctx context.Context, opts Options, task host.ModalTask) (interface{}, error) {
	if err := c.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.Release()
	return c.Dispatch(ctx, opts, task)
}

func isBusy(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "modal state is busy") ||
		strings.Contains(strings.ToLower(err.Error()), "modal busy")
}

func isTimeout(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "timed out") ||
		strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// Normalize translates a recognizable raw host error message into a stable
// error kind. Errors that match none of the recognized phrases
// pass through as HostProgramError, the closest catch-all kind.
func Normalize(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "modal busy") || strings.Contains(msg, "modal state is busy"):
		return &obeerr.HostBusyError{Op: op}
	case strings.Contains(msg, "not currently available"):
		return &obeerr.CommandUnavailableError{Op: op}
	case strings.Contains(msg, "not a valid document"):
		return &obeerr.InvalidDocumentError{Op: op}
	case strings.Contains(msg, "program error"):
		return &obeerr.HostProgramError{Op: op}
	default:
		return &obeerr.HostProgramError{Op: op}
	}
}
