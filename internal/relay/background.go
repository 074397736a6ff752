package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"relaybot/internal/metrics"
)

// Executor runs relay work detached from the webhook request/response cycle.
// The HTTP handler acknowledges immediately; completion is observed only via
// the follow-up chat notification. Failures and panics are routed to the
// onError callback (admin escalation) instead of being awaited by a caller.
type Executor struct {
	logger  *slog.Logger
	onError func(name string, err error)

	mu     sync.Mutex
	nextID int
	wg     sync.WaitGroup
}

// NewExecutor creates an executor. onError may be nil.
func NewExecutor(logger *slog.Logger, onError func(name string, err error)) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger, onError: onError}
}

// Spawn starts fn in the background. ctx should be the process-lifetime
// context, not the HTTP request's: the task must outlive the response.
func (e *Executor) Spawn(ctx context.Context, name string, fn func(ctx context.Context) error) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.mu.Unlock()

	e.wg.Add(1)
	metrics.ActiveTasks.Inc()
	e.logger.Debug("background task spawned", "id", id, "name", name)

	go func() {
		defer e.wg.Done()
		defer metrics.ActiveTasks.Dec()
		defer func() {
			if r := recover(); r != nil {
				e.fail(name, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := fn(ctx); err != nil {
			e.fail(name, err)
		} else {
			e.logger.Debug("background task completed", "id", id, "name", name)
		}
	}()
}

func (e *Executor) fail(name string, err error) {
	e.logger.Error("background task failed", "name", name, "err", err)
	if e.onError != nil {
		e.onError(name, err)
	}
}

// Wait blocks until all spawned tasks finish. Used during shutdown so
// in-flight relays get to deliver their terminal notification.
func (e *Executor) Wait() {
	e.wg.Wait()
}
