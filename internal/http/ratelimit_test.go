package http

import (
	"context"
	nethttp "net/http"
	"sync"
	"testing"
	"time"

	"github.com/steeplehq/pco-go/pkg/pco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter's clock in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
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

func newTestLimiter(policy pco.RateLimitPolicy) (*RateLimiter, *fakeClock) {
	clock := newFakeClock()
	limiter := NewRateLimiter(policy)
	limiter.now = clock.Now

	return limiter, clock
}

func acquireAndRecord(t *testing.T, limiter *RateLimiter) {
	t.Helper()

	_, ok := limiter.tryAcquire()
	require.True(t, ok)
	limiter.RecordRequest()
}

func rateHeaders(pairs map[string]string) nethttp.Header {
	headers := nethttp.Header{}
	for name, value := range pairs {
		headers.Set(name, value)
	}

	return headers
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(pco.RateLimitPolicy{})

	info := limiter.Info()
	assert.Equal(t, 100, info.Max)
	assert.Equal(t, 100, info.Remaining)
	assert.Equal(t, 60*time.Second, limiter.window)
}

func TestRateLimiter_WindowInvariant(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 3, Window: time.Second})

	for i := 0; i < 3; i++ {
		acquireAndRecord(t, limiter)
	}

	wait, ok := limiter.tryAcquire()
	assert.False(t, ok)
	assert.Positive(t, wait)

	// Capacity frees once the oldest request leaves the window.
	clock.Advance(1100 * time.Millisecond)

	_, ok = limiter.tryAcquire()
	assert.True(t, ok)
}

func TestRateLimiter_PendingPermitsCountAgainstBudget(t *testing.T) {
	t.Parallel()

	limiter, _ := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 2, Window: time.Second})

	_, ok := limiter.tryAcquire()
	require.True(t, ok)
	_, ok = limiter.tryAcquire()
	require.True(t, ok)

	// Neither permit is recorded yet, but both are charged.
	_, ok = limiter.tryAcquire()
	assert.False(t, ok)

	limiter.RecordRequest()
	limiter.RecordRequest()

	_, ok = limiter.tryAcquire()
	assert.False(t, ok)
}

func TestRateLimiter_ThirdRequestWaits(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(pco.RateLimitPolicy{MaxRequests: 2, Window: 150 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, limiter.WaitForAvailability(ctx))
	limiter.RecordRequest()
	require.NoError(t, limiter.WaitForAvailability(ctx))
	limiter.RecordRequest()

	start := time.Now()
	require.NoError(t, limiter.WaitForAvailability(ctx))
	limiter.RecordRequest()

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRateLimiter_WaitForAvailability_ContextCanceled(t *testing.T) {
	t.Parallel()

	limiter, _ := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 1, Window: time.Minute})
	acquireAndRecord(t, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.WaitForAvailability(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_UpdateFromHeaders_AdoptsServerView(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 100, Window: time.Minute})

	limiter.UpdateFromHeaders(rateHeaders(map[string]string{
		HeaderRateLimit:  "50",
		HeaderRatePeriod: "30",
		HeaderRateCount:  "50",
	}))

	info := limiter.Info()
	assert.Equal(t, 50, info.Max)
	assert.Equal(t, 0, info.Remaining)

	wait, ok := limiter.tryAcquire()
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	// A stale snapshot expires with the reported period, so a full window
	// never wedges the limiter.
	clock.Advance(31 * time.Second)

	_, ok = limiter.tryAcquire()
	assert.True(t, ok)
}

func TestRateLimiter_UpdateFromHeaders_PartialHeaders(t *testing.T) {
	t.Parallel()

	t.Run("count only keeps configured limit", func(t *testing.T) {
		t.Parallel()

		limiter, _ := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 100, Window: time.Minute})

		limiter.UpdateFromHeaders(rateHeaders(map[string]string{
			HeaderRateCount: "10",
		}))

		info := limiter.Info()
		assert.Equal(t, 100, info.Max)
		assert.Equal(t, 90, info.Remaining)
	})

	t.Run("limit only leaves local counting", func(t *testing.T) {
		t.Parallel()

		limiter, _ := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 100, Window: time.Minute})
		acquireAndRecord(t, limiter)

		limiter.UpdateFromHeaders(rateHeaders(map[string]string{
			HeaderRateLimit: "80",
		}))

		info := limiter.Info()
		assert.Equal(t, 80, info.Max)
		assert.Equal(t, 79, info.Remaining)
	})

	t.Run("malformed values are ignored", func(t *testing.T) {
		t.Parallel()

		limiter, _ := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 100, Window: time.Minute})

		limiter.UpdateFromHeaders(rateHeaders(map[string]string{
			HeaderRateLimit: "abc",
			HeaderRateCount: "",
		}))

		info := limiter.Info()
		assert.Equal(t, 100, info.Max)
		assert.Equal(t, 100, info.Remaining)
	})
}

func TestRateLimiter_ServerCountPlusLocalRecords(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 100, Window: time.Minute})

	limiter.UpdateFromHeaders(rateHeaders(map[string]string{
		HeaderRateCount: "10",
	}))

	// Requests after the snapshot are charged on top of the server count.
	clock.Advance(time.Millisecond)
	acquireAndRecord(t, limiter)
	acquireAndRecord(t, limiter)

	info := limiter.Info()
	assert.Equal(t, 88, info.Remaining)
}

func TestRateLimiter_RetryAfterBarrier(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 100, Window: time.Minute})

	limiter.UpdateFromHeaders(rateHeaders(map[string]string{
		HeaderRetryAfter: "2",
	}))

	// The window is empty, but the barrier still blocks.
	wait, ok := limiter.tryAcquire()
	assert.False(t, ok)
	assert.Equal(t, 2*time.Second, wait)

	clock.Advance(2100 * time.Millisecond)

	_, ok = limiter.tryAcquire()
	assert.True(t, ok)
}

func TestRateLimiter_Info_ResetTracksOldestRequest(t *testing.T) {
	t.Parallel()

	limiter, clock := newTestLimiter(pco.RateLimitPolicy{MaxRequests: 5, Window: time.Minute})

	info := limiter.Info()
	assert.True(t, info.Reset.IsZero())

	start := clock.Now()
	acquireAndRecord(t, limiter)
	clock.Advance(10 * time.Second)
	acquireAndRecord(t, limiter)

	info = limiter.Info()
	assert.Equal(t, 3, info.Remaining)
	assert.Equal(t, start.Add(time.Minute), info.Reset)
}

func TestRateLimiter_ConcurrentWaiters(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(pco.RateLimitPolicy{MaxRequests: 5, Window: 100 * time.Millisecond})

	var waitGroup sync.WaitGroup

	for i := 0; i < 20; i++ {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			if err := limiter.WaitForAvailability(context.Background()); err != nil {
				return
			}

			limiter.RecordRequest()
		}()
	}

	waitGroup.Wait()

	// Whatever the interleaving, the recorded history never exceeds the
	// budget inside one window.
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for i := range limiter.timestamps {
		inWindow := 0

		for j := range limiter.timestamps {
			delta := limiter.timestamps[j].Sub(limiter.timestamps[i])
			if delta >= 0 && delta < 100*time.Millisecond {
				inWindow++
			}
		}

		assert.LessOrEqual(t, inWindow, 5)
	}
}

func TestHeaderInt(t *testing.T) {
	t.Parallel()

	headers := rateHeaders(map[string]string{
		HeaderRateLimit: "42",
		HeaderRateCount: "oops",
	})

	assert.Equal(t, 42, headerInt(headers, HeaderRateLimit))
	assert.Equal(t, -1, headerInt(headers, HeaderRateCount))
	assert.Equal(t, -1, headerInt(headers, HeaderRetryAfter))
}
