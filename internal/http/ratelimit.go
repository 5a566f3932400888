// Package http implements the request pipeline for the People API: a
// shared rolling-window rate limiter, retry with exponential backoff, and a
// client that composes them with token refresh and error classification.
package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strconv"
	"sync"
	"time"

	"github.com/steeplehq/pco-go/internal/constants"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// Rate limit headers reported by the People API.
const (
	HeaderRateLimit  = "X-PCO-API-Request-Rate-Limit"
	HeaderRatePeriod = "X-PCO-API-Request-Rate-Period"
	HeaderRateCount  = "X-PCO-API-Request-Rate-Count"
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter enforces a rolling-window request budget shared by every
// caller on one client instance. It starts from the configured policy and
// adapts to the server's reported limit, count, and period as responses
// arrive. All methods are safe for concurrent use.
type RateLimiter struct {
	mu sync.Mutex

	maxRequests int
	window      time.Duration

	// timestamps of recorded requests inside the current window, oldest
	// first. pending counts permits handed out by WaitForAvailability that
	// have not been recorded yet, so concurrent waiters cannot overshoot
	// the budget between the permit and the record.
	timestamps []time.Time
	pending    int

	// Server-reported state. serverCount is the request count the server
	// saw at snapshotAt; requests recorded after the snapshot are added on
	// top of it until serverReset passes.
	serverMax   int
	serverCount int
	serverValid bool
	snapshotAt  time.Time
	serverReset time.Time

	// retryUntil is an absolute barrier from a Retry-After header.
	retryUntil time.Time

	now func() time.Time
}

// NewRateLimiter creates a rate limiter from a policy, falling back to the
// default budget for unset fields.
func NewRateLimiter(policy pco.RateLimitPolicy) *RateLimiter {
	if policy.MaxRequests <= 0 {
		policy.MaxRequests = constants.DefaultRateLimitMax
	}

	if policy.Window <= 0 {
		policy.Window = constants.DefaultRateLimitWindow
	}

	return &RateLimiter{
		maxRequests: policy.MaxRequests,
		window:      policy.Window,
		now:         time.Now,
	}
}

// WaitForAvailability blocks the calling goroutine until the rolling window
// has capacity for one more request, then reserves that capacity. Every
// successful wait must be paired with exactly one RecordRequest call. It
// returns early with the context error if ctx is done.
func (r *RateLimiter) WaitForAvailability(ctx context.Context) error {
	for {
		wait, ok := r.tryAcquire()
		if ok {
			return nil
		}

		if wait <= 0 || wait > constants.RateLimitPollInterval {
			wait = constants.RateLimitPollInterval
		}

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()

			return fmt.Errorf("waiting for rate limit capacity: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// tryAcquire reserves one unit of capacity if available. Otherwise it
// returns how long to wait before the next check.
func (r *RateLimiter) tryAcquire() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	if now.Before(r.retryUntil) {
		return r.retryUntil.Sub(now), false
	}

	if r.used(now) < r.limit() {
		r.pending++

		return 0, true
	}

	return r.nextFreeIn(now), false
}

// RecordRequest consumes the permit reserved by WaitForAvailability and
// records one request at the current time. It is called exactly once per
// attempt, retries included, since every attempt is a real request.
func (r *RateLimiter) RecordRequest() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending > 0 {
		r.pending--
	}

	r.timestamps = append(r.timestamps, r.now())
}

// UpdateFromHeaders replaces the limiter's notion of remaining budget and
// reset time with the server's view when the response carries rate limit
// headers. Missing headers leave the locally tracked state in charge. A
// reported period always moves the next reset to now + period, so a zero
// remaining budget can never wedge the limiter permanently.
func (r *RateLimiter) UpdateFromHeaders(headers nethttp.Header) {
	if headers == nil {
		return
	}

	limit := headerInt(headers, HeaderRateLimit)
	period := headerInt(headers, HeaderRatePeriod)
	count := headerInt(headers, HeaderRateCount)
	retryAfter := headerInt(headers, HeaderRetryAfter)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if limit > 0 {
		r.serverMax = limit
	}

	if period > 0 {
		r.window = time.Duration(period) * time.Second
		r.serverReset = now.Add(r.window)
	}

	if count >= 0 {
		r.serverCount = count
		r.snapshotAt = now
		r.serverValid = true

		if r.serverReset.IsZero() {
			r.serverReset = now.Add(r.window)
		}
	}

	if retryAfter > 0 {
		r.retryUntil = now.Add(time.Duration(retryAfter) * time.Second)
	}
}

// Info returns a read-only snapshot of the limiter state.
func (r *RateLimiter) Info() pco.RateLimitInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	limit := r.limit()

	remaining := limit - r.used(now)
	if remaining < 0 {
		remaining = 0
	}

	reset := r.serverReset
	if !r.serverValid || now.After(reset) {
		reset = time.Time{}
		if len(r.timestamps) > 0 {
			reset = r.timestamps[0].Add(r.window)
		}
	}

	return pco.RateLimitInfo{
		Max:       limit,
		Remaining: remaining,
		Reset:     reset,
	}
}

// prune drops window-expired timestamps and an expired server snapshot.
// Callers must hold mu.
func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)

	drop := 0
	for drop < len(r.timestamps) && !r.timestamps[drop].After(cutoff) {
		drop++
	}

	if drop > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[drop:]...)
	}

	if r.serverValid && now.After(r.serverReset) {
		r.serverValid = false
	}
}

// used returns the request count charged against the current window,
// including unrecorded permits. Callers must hold mu.
func (r *RateLimiter) used(now time.Time) int {
	if r.serverValid {
		sinceSnapshot := 0

		for _, ts := range r.timestamps {
			if ts.After(r.snapshotAt) {
				sinceSnapshot++
			}
		}

		return r.serverCount + sinceSnapshot + r.pending
	}

	return len(r.timestamps) + r.pending
}

// limit returns the effective window budget. Callers must hold mu.
func (r *RateLimiter) limit() int {
	if r.serverMax > 0 {
		return r.serverMax
	}

	return r.maxRequests
}

// nextFreeIn estimates how long until one unit of capacity frees up.
// Callers must hold mu.
func (r *RateLimiter) nextFreeIn(now time.Time) time.Duration {
	if r.serverValid {
		return r.serverReset.Sub(now)
	}

	if len(r.timestamps) > 0 {
		return r.timestamps[0].Add(r.window).Sub(now)
	}

	return 0
}

// headerInt parses a numeric header, returning -1 when absent or malformed.
func headerInt(headers nethttp.Header, name string) int {
	raw := headers.Get(name)
	if raw == "" {
		return -1
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}

	return value
}
