package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SigitArif/POS/internal/metrics"
)

// Dispatcher runs mutations off the caller's goroutine. Failures and panics
// are logged and published to the error channel instead of escaping.
// In-flight work is never cancelled: fn sees the caller's context values
// but not its deadline or cancellation. Close stops intake and waits.
type Dispatcher struct {
	errs   *ErrorChannel
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(errs *ErrorChannel, logger *slog.Logger) *Dispatcher {
	if errs == nil {
		errs = NewErrorChannel()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{errs: errs, logger: logger}
}

func (d *Dispatcher) Errors() *ErrorChannel {
	return d.errs
}

// Go schedules fn with a non-cancelling copy of ctx. It reports false when
// the dispatcher is closed.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		if err := d.run(context.WithoutCancel(ctx), name, fn); err != nil {
			metrics.AsyncFailuresTotal.Inc()
			d.logger.Error("background operation failed", "op", name, "error", err)
			d.errs.Publish(err)
		}
	}()
	return true
}

func (d *Dispatcher) run(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Wait blocks until all scheduled work has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
