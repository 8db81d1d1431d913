package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollRendersOnlyOnCountChange(t *testing.T) {
	items := []int{1, 2}
	renders := 0
	p := New(func(context.Context) ([]int, error) { return items, nil }, Options[int]{
		OnChange: func([]int) { renders++ },
	})
	ctx := context.Background()

	changed, err := p.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, renders)

	for i := 0; i < 2; i++ {
		changed, err = p.Poll(ctx)
		require.NoError(t, err)
		assert.False(t, changed)
	}
	assert.Equal(t, 1, renders, "no new items means no render")

	items = append(items, 3)
	changed, err = p.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, renders)

	p.Reset()
	changed, _ = p.Poll(ctx)
	assert.True(t, changed)
}

func TestFirstPollRendersEmptyResult(t *testing.T) {
	renders := 0
	p := New(func(context.Context) ([]int, error) { return nil, nil }, Options[int]{
		OnChange: func([]int) { renders++ },
	})
	_, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, renders)
}

func TestPollSkipsWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := New(func(context.Context) ([]int, error) {
		close(started)
		<-release
		return nil, nil
	}, Options[int]{})

	done := make(chan error, 1)
	go func() {
		_, err := p.Poll(context.Background())
		done <- err
	}()
	<-started

	_, err := p.Poll(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	assert.NoError(t, <-done)
}

func TestSyncWaitsForInFlightFetchThenFetchesAgain(t *testing.T) {
	var calls, items atomic.Int32
	items.Store(1)
	started := make(chan struct{})
	release := make(chan struct{})

	var last []int
	p := New(func(context.Context) ([]int, error) {
		out := make([]int, items.Load())
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return out, nil
	}, Options[int]{OnChange: func(v []int) { last = v }})

	first := make(chan error, 1)
	go func() {
		_, err := p.Poll(context.Background())
		first <- err
	}()
	<-started

	items.Store(2)
	synced := make(chan bool, 1)
	go func() {
		changed, err := p.Sync(context.Background())
		assert.NoError(t, err)
		synced <- changed
	}()

	select {
	case <-synced:
		t.Fatal("Sync returned while a fetch was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-first)
	assert.True(t, <-synced)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, last, 2)
}

func TestPollTimeout(t *testing.T) {
	p := New(func(ctx context.Context) ([]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Options[int]{Timeout: 20 * time.Millisecond})

	_, err := p.Poll(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartFetchesImmediatelyAndStopIsFinal(t *testing.T) {
	var calls atomic.Int32
	p := New(func(context.Context) ([]int, error) {
		calls.Add(1)
		return nil, nil
	}, Options[int]{Interval: time.Hour})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())

	p.Stop()
	assert.False(t, p.Running())
	p.Stop()
}

func TestLoopTicks(t *testing.T) {
	var calls atomic.Int32
	p := New(func(context.Context) ([]int, error) {
		calls.Add(1)
		return nil, nil
	}, Options[int]{Interval: 5 * time.Millisecond})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no fetch after Stop")
}

func TestErrorKeepsLoopAlive(t *testing.T) {
	var errs atomic.Int32
	p := New(func(context.Context) ([]int, error) {
		return nil, errors.New("offline")
	}, Options[int]{
		Interval: 5 * time.Millisecond,
		OnError:  func(error) bool { errs.Add(1); return false },
	})

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return errs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())
}

func TestErrorCanStopLoop(t *testing.T) {
	p := New(func(context.Context) ([]int, error) {
		return nil, errors.New("denied")
	}, Options[int]{
		Interval: 5 * time.Millisecond,
		OnError:  func(error) bool { return true },
	})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	p.Stop()
}
