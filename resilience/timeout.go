package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when an operation times out
var ErrTimeout = errors.New("operation timed out")

// WithTimeout executes a function with a timeout
func WithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Channel to receive the result
	done := make(chan error, 1)

	// Execute function in goroutine
	go func() {
		done <- fn(ctx)
	}()

	// Wait for completion or timeout
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// WithTimeoutResult executes a function with a timeout and returns a result
func WithTimeoutResult[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Result channel
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	// Execute function in goroutine
	go func() {
		val, err := fn(ctx)
		done <- result{value: val, err: err}
	}()

	// Wait for completion or timeout
	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zeroValue T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zeroValue, ErrTimeout
		}
		return zeroValue, ctx.Err()
	}
}

// TimeoutConfig configures timeout behavior for a TimeoutManager.
type TimeoutConfig struct {
	// Default timeout for operations
	DefaultTimeout time.Duration

	// SlowOperationThreshold for logging warnings
	SlowOperationThreshold time.Duration

	// OnTimeout callback when timeout occurs
	OnTimeout func(operation string, duration time.Duration)

	// OnSlowOperation callback when operation is slow but completes
	OnSlowOperation func(operation string, duration time.Duration)
}

// DefaultTimeoutConfig returns default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		DefaultTimeout:         30 * time.Second,
		SlowOperationThreshold: 10 * time.Second,
	}
}

// TimeoutManager bounds a family of named operations with one shared
// default timeout and slow-operation reporting. The git shell-outs (vcs
// Merge and Diff) run through one of these so a hung subprocess surfaces as
// ErrTimeout instead of wedging the iteration loop; the scanner bounds its
// gofmt call with WithTimeoutResult directly.
type TimeoutManager struct {
	config *TimeoutConfig
}

// NewTimeoutManager creates a new timeout manager
func NewTimeoutManager(config *TimeoutConfig) *TimeoutManager {
	if config == nil {
		config = DefaultTimeoutConfig()
	}

	return &TimeoutManager{
		config: config,
	}
}

// Execute runs a function with timeout management
func (tm *TimeoutManager) Execute(ctx context.Context, operation string, timeout time.Duration, fn func(context.Context) error) error {
	if timeout == 0 {
		timeout = tm.config.DefaultTimeout
	}

	start := time.Now()
	err := WithTimeout(ctx, timeout, fn)
	duration := time.Since(start)

	// Check for timeout
	if errors.Is(err, ErrTimeout) {
		if tm.config.OnTimeout != nil {
			tm.config.OnTimeout(operation, duration)
		}
		return err
	}

	// Check for slow operation
	if err == nil && duration > tm.config.SlowOperationThreshold {
		if tm.config.OnSlowOperation != nil {
			tm.config.OnSlowOperation(operation, duration)
		}
	}

	return err
}

// ExecuteWithResult runs a function with timeout management and returns a result
func ExecuteWithResult[T any](tm *TimeoutManager, ctx context.Context, operation string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout == 0 {
		timeout = tm.config.DefaultTimeout
	}

	start := time.Now()
	result, err := WithTimeoutResult(ctx, timeout, fn)
	duration := time.Since(start)

	// Check for timeout
	if errors.Is(err, ErrTimeout) {
		if tm.config.OnTimeout != nil {
			tm.config.OnTimeout(operation, duration)
		}
		return result, err
	}

	// Check for slow operation
	if err == nil && duration > tm.config.SlowOperationThreshold {
		if tm.config.OnSlowOperation != nil {
			tm.config.OnSlowOperation(operation, duration)
		}
	}

	return result, err
}
