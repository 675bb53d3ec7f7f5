package errors

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Shutdowner is an interface for resources that can be shut down gracefully.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ShutdownFunc is a function that performs shutdown.
type ShutdownFunc func(ctx context.Context) error

// Shutdown implements Shutdowner for a function.
func (f ShutdownFunc) Shutdown(ctx context.Context) error {
	return f(ctx)
}

// ShutdownManager coordinates graceful shutdown of multiple resources.
// Resources are shut down in reverse order of registration (LIFO).
// ShutdownManager is safe for concurrent use.
type ShutdownManager struct {
	mu        sync.Mutex
	resources []namedResource
	timeout   time.Duration
	logger    func(msg string)
}

type namedResource struct {
	name     string
	resource Shutdowner
}

// NewShutdownManager creates a new shutdown manager with the given timeout.
// If timeout is 0, a default of 30 seconds is used.
func NewShutdownManager(timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		timeout: timeout,
		logger:  func(msg string) {}, // No-op logger by default
	}
}

// SetLogger sets the logger function for shutdown messages.
func (sm *ShutdownManager) SetLogger(logger func(msg string)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.logger = logger
}

// Register registers a resource for graceful shutdown.
// Resources are shut down in reverse order of registration (LIFO).
func (sm *ShutdownManager) Register(name string, resource Shutdowner) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.resources = append(sm.resources, namedResource{name: name, resource: resource})
}

// RegisterFunc registers a shutdown function.
func (sm *ShutdownManager) RegisterFunc(name string, fn func(ctx context.Context) error) {
	sm.Register(name, ShutdownFunc(fn))
}

// Count returns the number of registered resources.
func (sm *ShutdownManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.resources)
}

// Shutdown shuts down all registered resources in reverse order. Each hook
// runs through SafeFuncVoid, so a panicking hook is reported as an error
// instead of aborting the hooks that registered before it. It returns the
// first error encountered, but continues shutting down all resources.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	resources := make([]namedResource, len(sm.resources))
	copy(resources, sm.resources)
	logger := sm.logger
	sm.mu.Unlock()

	// Create a context with timeout
	ctx, cancel := context.WithTimeout(ctx, sm.timeout)
	defer cancel()

	var firstErr error

	// Shutdown in reverse order (LIFO)
	for i := len(resources) - 1; i >= 0; i-- {
		res := resources[i]
		logger("Shutting down: " + res.name)

		shutdown := SafeFuncVoid(func() error {
			return res.resource.Shutdown(ctx)
		})
		if err := shutdown(); err != nil {
			logger("Failed to shutdown " + res.name + ": " + err.Error())
			if firstErr == nil {
				firstErr = Wrapf(err, "failed to shutdown %s", res.name)
			}
		} else {
			logger("Shutdown complete: " + res.name)
		}
	}

	return firstErr
}

// RunWithShutdown runs a function and handles shutdown on SIGINT/SIGTERM.
// The function receives a context that is canceled when a shutdown signal
// is received; it runs through GoWithError, so a panic inside it surfaces
// as a *PanicError return instead of crashing the process.
func RunWithShutdown(fn func(ctx context.Context) error, timeout time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := GoWithError(func() error {
		return fn(ctx)
	})

	// Wait for signal or function completion
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		// Cancel context and wait for function with timeout
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(timeout):
			return ErrTimeout
		}
	}
}
