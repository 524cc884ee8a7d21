package modal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/obe/internal/obe/host"
	"github.com/lyzr/obe/internal/obe/obeerr"
)

func TestEnter_Success(t *testing.T) {
	f := host.NewFake()
	c := New(f)

	v, err := c.Enter(context.Background(), Options{CommandName: "createLayer"}, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestEnter_RetriesOnBusyThenSucceeds(t *testing.T) {
	f := host.NewFake()
	f.BusyCountdown = 2
	c := New(f)

	v, err := c.Enter(context.Background(), Options{CommandName: "createLayer", RetryDelay: time.Millisecond}, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestEnter_ExhaustsRetriesAndFailsBusy(t *testing.T) {
	f := host.NewFake()
	f.BusyCountdown = 100
	c := New(f)

	_, err := c.Enter(context.Background(), Options{CommandName: "createLayer", MaxRetries: 2, RetryDelay: time.Millisecond}, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.Error(t, err)
	var busy *obeerr.HostBusyError
	assert.ErrorAs(t, err, &busy)
}

func TestNormalize_KnownHostErrors(t *testing.T) {
	cases := map[string]string{
		"modal state is busy":     "HostBusy",
		"not currently available": "CommandUnavailable",
		"not a valid document":    "InvalidDocument",
		"program error occurred":  "HostProgramError",
	}
	for msg, wantName := range cases {
		err := Normalize("op", assertErr(msg))
		assert.Equal(t, wantName, obeerr.NameOf(err), msg)
	}
}

func TestEnter_OnlyOneEntryAtATime(t *testing.T) {
	f := host.NewFake()
	c := New(f)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = c.Enter(context.Background(), Options{CommandName: "a"}, func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		_, _ = c.Enter(context.Background(), Options{CommandName: "b"}, func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Enter should not complete while the first holds the permit")
	case <-time.After(30 * time.Millisecond):
	}
	close(release)
	<-done
}

func TestAcquire_BlocksSecondCallerUntilRelease(t *testing.T) {
	f := host.NewFake()
	c := New(f)

	require.NoError(t, c.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	c.Release()
	require.NoError(t, c.Acquire(context.Background()))
	c.Release()
}

func TestDispatch_WithPermitHeld(t *testing.T) {
	f := host.NewFake()
	c := New(f)

	require.NoError(t, c.Acquire(context.Background()))
	defer c.Release()

	v, err := c.Dispatch(context.Background(), Options{CommandName: "createLayer"}, func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

type strErr string

func (e strErr) Error() string { return string(e) }

func assertErr(msg string) error { return strErr(msg) }
