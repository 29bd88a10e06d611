// Package shutdown coordinates graceful teardown on SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Handler collects teardown hooks and runs them when a termination
// signal arrives. Hooks run in reverse registration order, so the
// last-built component (usually the client pool) goes down first.
type Handler struct {
	timeout time.Duration

	mu    sync.Mutex
	hooks []func(context.Context) error

	done    chan struct{}
	trigger chan struct{}
	once    sync.Once
}

// NewHandler creates a Handler. timeout bounds the total time the
// hooks get before the context they receive expires.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		done:    make(chan struct{}),
		trigger: make(chan struct{}),
	}
}

// OnShutdown registers a teardown hook.
func (h *Handler) OnShutdown(hook func(context.Context) error) {
	h.mu.Lock()
	h.hooks = append(h.hooks, hook)
	h.mu.Unlock()
}

// Trigger starts shutdown without a signal, for tests and explicit
// quit paths.
func (h *Handler) Trigger() {
	h.once.Do(func() { close(h.trigger) })
}

// Wait blocks until SIGINT, SIGTERM or Trigger, then runs the hooks.
// The last hook error wins.
func (h *Handler) Wait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-h.trigger:
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]func(context.Context) error, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var lastErr error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			lastErr = err
		}
	}

	close(h.done)
	return lastErr
}

// Done closes once every hook has run.
func (h *Handler) Done() <-chan struct{} { return h.done }
