package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "walletledger/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func TestCheck_SixthCallInWindowIsRejected(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Check("ada@example.com", 5, time.Minute), "call %d", i+1)
		clock.Advance(time.Second)
	}

	err := l.Check("ada@example.com", 5, time.Minute)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
}

func TestCheck_WindowSlides(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	require.NoError(t, l.Check("k", 2, time.Minute))
	clock.Advance(30 * time.Second)
	require.NoError(t, l.Check("k", 2, time.Minute))
	assert.Error(t, l.Check("k", 2, time.Minute))

	// First call is exactly a window old and no longer counts.
	clock.Advance(30 * time.Second)
	assert.NoError(t, l.Check("k", 2, time.Minute))
	assert.Error(t, l.Check("k", 2, time.Minute))
}

func TestCheck_RejectedCallsAreNotRecorded(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	require.NoError(t, l.Check("k", 1, time.Minute))
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		assert.Error(t, l.Check("k", 1, time.Minute))
	}

	clock.Advance(50 * time.Second)
	assert.NoError(t, l.Check("k", 1, time.Minute))
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	l := New()

	require.NoError(t, l.Check("a", 1, time.Minute))
	assert.Error(t, l.Check("a", 1, time.Minute))
	assert.NoError(t, l.Check("b", 1, time.Minute))
}

func TestCheck_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	l := New()
	const limit = 25

	var accepted int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("hot-key", limit, time.Hour) {
				atomic.AddInt64(&accepted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), accepted)
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Check(fmt.Sprintf("key-%d", i), 5, time.Minute))
	}
	clock.Advance(30 * time.Second)
	require.NoError(t, l.Check("fresh", 5, time.Minute))

	clock.Advance(45 * time.Second)
	assert.Equal(t, 10, l.Sweep())
	assert.Equal(t, 0, l.Sweep())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
}

func TestRunStopsWithContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
