package modal

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	obredis "github.com/lyzr/obe/common/redis"
	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

//go:embed release.lua
var releaseScript string

// RedisCoordinator is the optional distributed variant of Coordinator:
// same Acquire/Release/Dispatch contract, but the permit is a cross-process
// Redis lock, so more than one OS process can front one host document
// without racing the modal gate. It is never the default -- callers opt in
// via configuration (MODAL_DISTRIBUTED=true).
//
// An in-process channel still fronts the distributed lock so concurrent
// goroutines within one process queue locally instead of hammering Redis.
// The acquire side reuses common/redis.Client.SetNX directly (a single
// atomic command needs no script); the release side uses an embedded Lua
// script so the compare-then-delete is atomic.
type RedisCoordinator struct {
	client  *obredis.Client
	h       host.Host
	lockTTL time.Duration
	release *goredis.Script

	sem   chan struct{}
	token string // lock token of the current holder; valid while sem is held
}

// NewRedisCoordinator returns a RedisCoordinator guarding h with a
// Redis-backed lock held for at most lockTTL per Acquire.
func NewRedisCoordinator(client *obredis.Client, h host.Host, lockTTL time.Duration) *RedisCoordinator {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &RedisCoordinator{
		client:  client,
		h:       h,
		lockTTL: lockTTL,
		release: goredis.NewScript(releaseScript),
		sem:     make(chan struct{}, 1),
	}
}

// The modal gate is global per host, so one fixed key guards all commands.
const lockKey = "obe:modal:lock"

// Acquire takes the in-process permit, then spins on SETNX until the
// distributed lock is won, waiting at most lockTTL.
func (c *RedisCoordinator) Acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	token := uuid.NewString()
	deadline := time.Now().Add(c.lockTTL)
	for {
		ok, err := c.client.SetNX(ctx, lockKey, token, c.lockTTL)
		if err != nil {
			<-c.sem
			return fmt.Errorf("acquire distributed modal lock: %w", err)
		}
		if ok {
			c.token = token
			return nil
		}
		if time.Now().After(deadline) {
			<-c.sem
			return fmt.Errorf("timed out waiting for distributed modal lock")
		}
		select {
		case <-time.After(DefaultRetryDelay):
		case <-ctx.Done():
			<-c.sem
			return ctx.Err()
		}
	}
}

// Release drops the distributed lock (only if still held by our token) and
// returns the in-process permit. Callers must hold the permit.
func (c *RedisCoordinator) Release() {
	_, _ = c.client.RunScript(context.Background(), c.release, []string{lockKey}, c.token)
	c.token = ""
	<-c.sem
}

// Dispatch mirrors Coordinator.Dispatch. Callers must hold the permit.
func (c *RedisCoordinator) Dispatch(ctx context.Context, opts Options, task host.ModalTask) (interface{}, error) {
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

// Enter is Acquire + Dispatch + Release in one call.
func (c *RedisCoordinator) Enter(ctx context.Context, opts Options, task host.ModalTask) (interface{}, error) {
	if err := c.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.Release()
	return c.Dispatch(ctx, opts, task)
}
