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

// Hook releases one resource during teardown. The context carries the
// shutdown deadline.
type Hook func(context.Context) error

// Handler runs registered hooks once a termination signal arrives.
type Handler struct {
	timeout time.Duration

	mu    sync.Mutex
	hooks []Hook

	trigger chan os.Signal
	done    chan struct{}
}

// NewHandler returns a Handler whose hooks share the given timeout.
// A zero timeout means no deadline.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		trigger: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a hook. Hooks run newest-first, so teardown
// mirrors startup order.
func (h *Handler) OnShutdown(hook Hook) {
	h.mu.Lock()
	h.hooks = append(h.hooks, hook)
	h.mu.Unlock()
}

// Trigger starts shutdown without an OS signal. Safe to call more
// than once.
func (h *Handler) Trigger() {
	select {
	case h.trigger <- syscall.SIGTERM:
	default:
	}
}

// Wait blocks until SIGINT, SIGTERM, or Trigger, then runs the hooks
// newest-first under the timeout. All hooks run even when one fails;
// the first error wins.
func (h *Handler) Wait() error {
	signal.Notify(h.trigger, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(h.trigger)
	<-h.trigger

	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	defer close(h.done)

	h.mu.Lock()
	hooks := append([]Hook(nil), h.hooks...)
	h.mu.Unlock()

	var firstErr error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Done closes once Wait has finished running hooks.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
