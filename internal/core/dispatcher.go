package core

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alt-ctrl-dev/imagewise/internal/backend/commandstructure"
	"golang.org/x/sync/semaphore"
)

// ErrDispatcherClosed is returned by Submit after Close.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Dispatcher runs operations from a registry with a bounded number of
// concurrent executions.
type Dispatcher struct {
	registry *commandstructure.CommandRegistry
	sem      *semaphore.Weighted
	workers  int

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher allowing workers concurrent operations.
// A value <= 0 uses GOMAXPROCS.
func NewDispatcher(registry *commandstructure.CommandRegistry, workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Dispatcher{
		registry: registry,
		sem:      semaphore.NewWeighted(int64(workers)),
		workers:  workers,
	}
}

// Workers returns the concurrency limit.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Submit waits for a free slot and runs the named operation. Waiting honours
// ctx. A started operation always runs to completion; if ctx ends first,
// Submit returns ctx.Err() and the result is discarded.
func (d *Dispatcher) Submit(ctx context.Context, name string, imageData []byte, params map[string]any) (commandstructure.Result, error) {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return commandstructure.Result{}, ErrDispatcherClosed
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		slog.Warn("operation not started", "command_name", name, "error", err)
		return commandstructure.Result{}, err
	}

	// Close may have run while this submission waited for its slot.
	d.mu.RLock()
	closed = d.closed
	d.mu.RUnlock()
	if closed {
		d.sem.Release(1)
		return commandstructure.Result{}, ErrDispatcherClosed
	}

	done := make(chan commandstructure.Result, 1)
	go func() {
		defer d.sem.Release(1)
		done <- d.registry.Invoke(name, imageData, params)
	}()

	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		slog.Warn("operation result discarded", "command_name", name, "error", ctx.Err())
		return commandstructure.Result{}, ctx.Err()
	}
}

// Close rejects new submissions and waits until running operations finish
// or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	if err := d.sem.Acquire(ctx, int64(d.workers)); err != nil {
		return err
	}
	d.sem.Release(int64(d.workers))
	return nil
}
