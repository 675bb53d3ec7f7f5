// Package resilience provides the fault-tolerance primitives wrapped around
// the engine's external calls: rate limiting for forge polling, circuit
// breaking for a flapping forge, and retry with backoff for generator calls.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/yaverhq/yaver/errors"
)

// RateLimiter limits the rate of operations.
type RateLimiter interface {
	// Wait blocks until the operation is allowed or the context is canceled.
	// Returns an error if the context is canceled or the wait times out.
	Wait(ctx context.Context) error

	// TryAcquire attempts to acquire permission without blocking.
	// Returns true if permission was granted, false otherwise.
	TryAcquire() bool

	// Limit returns the current rate limit (requests per second).
	Limit() float64
}

// TokenBucketLimiter implements a token bucket rate limiter.
// It allows bursts up to the bucket size and refills at a steady rate.
// TokenBucketLimiter is safe for concurrent use.
type TokenBucketLimiter struct {
	mu           sync.Mutex
	tokens       float64
	maxTokens    float64
	refillRate   float64 // tokens per second
	lastRefill   time.Time
	waitTimeout  time.Duration
}

// TokenBucketConfig configures the token bucket rate limiter.
type TokenBucketConfig struct {
	// Rate is the number of requests allowed per second.
	Rate float64

	// BurstSize is the maximum number of requests that can be made at once.
	// If 0, defaults to Rate.
	BurstSize int

	// WaitTimeout is the maximum time to wait for a token.
	// If 0, defaults to 30 seconds.
	WaitTimeout time.Duration
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
func NewTokenBucketLimiter(cfg TokenBucketConfig) *TokenBucketLimiter {
	burstSize := cfg.BurstSize
	if burstSize == 0 {
		burstSize = int(cfg.Rate)
		if burstSize < 1 {
			burstSize = 1
		}
	}

	waitTimeout := cfg.WaitTimeout
	if waitTimeout == 0 {
		waitTimeout = 30 * time.Second
	}

	return &TokenBucketLimiter{
		tokens:      float64(burstSize),
		maxTokens:   float64(burstSize),
		refillRate:  cfg.Rate,
		lastRefill:  time.Now(),
		waitTimeout: waitTimeout,
	}
}

// Wait blocks until a token is available or the context is canceled.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	// Create a timeout context
	ctx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	for {
		if l.TryAcquire() {
			return nil
		}

		// Calculate wait time until next token
		l.mu.Lock()
		waitTime := time.Duration(float64(time.Second) / l.refillRate)
		l.mu.Unlock()

		// Use a shorter poll interval
		pollInterval := waitTime / 10
		if pollInterval < time.Millisecond {
			pollInterval = time.Millisecond
		}
		if pollInterval > 100*time.Millisecond {
			pollInterval = 100 * time.Millisecond
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "rate limit wait canceled")
		case <-time.After(pollInterval):
			// Try again
		}
	}
}

// TryAcquire attempts to acquire a token without blocking.
func (l *TokenBucketLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Limit returns the rate limit in requests per second.
func (l *TokenBucketLimiter) Limit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refillRate
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (l *TokenBucketLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.lastRefill = now

	l.tokens += elapsed * l.refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
}

// Available returns the current number of available tokens.
func (l *TokenBucketLimiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}
