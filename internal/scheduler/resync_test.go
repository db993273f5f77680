package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls    atomic.Int32
	err      error
	signedIn atomic.Bool
}

func signedInRefresher(err error) *countingRefresher {
	c := &countingRefresher{err: err}
	c.signedIn.Store(true)
	return c
}

func (c *countingRefresher) HasSession() bool {
	return c.signedIn.Load()
}

func (c *countingRefresher) RefreshAppData(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestNewResync_DisabledWithoutInterval(t *testing.T) {
	r, err := NewResync(&countingRefresher{}, 0)
	require.NoError(t, err)
	assert.Nil(t, r)

	// A disabled resync is safe to start and stop.
	r.Start()
	assert.NoError(t, r.Stop())
}

func TestResync_RunsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := signedInRefresher(errors.New("matches: connection refused"))

	r, err := NewResync(target, time.Minute, gocron.WithClock(clock))
	require.NoError(t, err)
	r.Start()
	defer func() { _ = r.Stop() }()

	// Errors from a run must not stop later runs.
	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return target.calls.Load() >= 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResync_SkipsWhileSignedOut(t *testing.T) {
	clock := clockwork.NewFakeClock()
	target := &countingRefresher{}

	r, err := NewResync(target, time.Minute, gocron.WithClock(clock))
	require.NoError(t, err)
	r.Start()
	defer func() { _ = r.Stop() }()

	for i := 0; i < 3; i++ {
		clock.Advance(time.Minute)
		time.Sleep(20 * time.Millisecond)
	}
	assert.Zero(t, target.calls.Load())

	target.signedIn.Store(true)
	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return target.calls.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond)
}
