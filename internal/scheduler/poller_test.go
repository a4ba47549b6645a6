package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-alerts/internal/logging"
)

func TestPoller_RunsImmediatelyAndOnInterval(t *testing.T) {
	var runs atomic.Int32
	p := New("test", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, time.Second, logging.Discard())

	require.NoError(t, p.Start(context.Background(), 20*time.Millisecond))
	defer p.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, p.Start(context.Background(), time.Second), ErrAlreadyRunning)
}

func TestPoller_TriggerNowSkipsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var runs atomic.Int32

	p := New("test", func(ctx context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, 0, logging.Discard())

	require.NoError(t, p.Start(context.Background(), time.Hour))
	<-started

	assert.False(t, p.TriggerNow(), "initial run still in flight")
	close(release)

	assert.Eventually(t, func() bool { return p.TriggerNow() }, time.Second, 5*time.Millisecond)
	<-started
	p.Stop()
	assert.Equal(t, int32(2), runs.Load())
}

func TestPoller_StopCancelsAndWaits(t *testing.T) {
	var cancelled atomic.Bool
	started := make(chan struct{})
	p := New("test", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, 0, logging.Discard())

	require.NoError(t, p.Start(context.Background(), time.Hour))
	<-started
	p.Stop()

	assert.True(t, cancelled.Load())
	assert.False(t, p.TriggerNow(), "stopped poller ignores triggers")
	p.Stop()
}

func TestPoller_FailuresAndPanicsDoNotStopTheLoop(t *testing.T) {
	var runs atomic.Int32
	p := New("test", func(ctx context.Context) error {
		n := runs.Add(1)
		switch n {
		case 1:
			return errors.New("backend unavailable")
		case 2:
			panic("malformed")
		}
		return nil
	}, 0, logging.Discard())

	require.NoError(t, p.Start(context.Background(), 10*time.Millisecond))
	defer p.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestPoller_RunOnceAppliesTimeout(t *testing.T) {
	p := New("test", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond, logging.Discard())

	err := p.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoller_RejectsNonPositiveInterval(t *testing.T) {
	p := New("test", func(ctx context.Context) error { return nil }, 0, logging.Discard())
	assert.Error(t, p.Start(context.Background(), 0))
}
