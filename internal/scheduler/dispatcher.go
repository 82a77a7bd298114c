// Package scheduler runs the persisted task queue: a single polling loop
// that fires registered handlers for due tasks.
//
// Delivery is at-least-once: tasks are deleted only after the handler
// returns, so a crash between poll and delete can redeliver. Handlers must
// therefore re-check their preconditions (e.g. sprint still exists and is in
// the expected state) and treat a moot task as a no-op.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	scriberr "github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/store"
)

// Handler processes one due task, identified by its object key and id.
type Handler func(ctx context.Context, object string, objectID int64) error

// Dispatcher polls the task queue on a fixed tick and invokes handlers by
// task type. Failed handlers are logged and the task is consumed anyway:
// there is no automatic retry.
type Dispatcher struct {
	store    *store.Store
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	tick     time.Duration
	handlers map[string]Handler

	now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Dispatcher. The tick bounds scheduling precision.
func New(s *store.Store, m *metrics.Metrics, tick time.Duration, logger zerolog.Logger) *Dispatcher {
	if tick <= 0 {
		tick = 30 * time.Second
	}
	return &Dispatcher{
		store:    s,
		metrics:  m,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		tick:     tick,
		handlers: make(map[string]Handler),
		now:      time.Now,
	}
}

// Register binds a handler to a task type. Must be called before Start.
func (d *Dispatcher) Register(taskType string, h Handler) {
	d.handlers[taskType] = h
}

// Start launches the polling loop in a background goroutine. It returns
// immediately; cancel ctx or call Stop to stop the loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})

	d.logger.Info().Dur("tick", d.tick).Int("handlers", len(d.handlers)).Msg("dispatcher starting")
	go d.run(ctx)
	return nil
}

// Stop stops the loop and waits for the in-flight tick to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		close(d.done)
		d.logger.Info().Msg("dispatcher stopped")
	}()

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	// Run one poll immediately on startup so tasks that came due while the
	// process was down fire without waiting a full tick.
	d.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Poll(ctx)
		}
	}
}

// Poll processes every task due at this moment, sequentially and in due
// order. Exported so tests and startup recovery can drive ticks directly.
func (d *Dispatcher) Poll(ctx context.Context) {
	due, err := d.store.DueTasks(d.now().Unix())
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to poll due tasks")
		return
	}

	for _, task := range due {
		if ctx.Err() != nil {
			return
		}
		d.dispatch(ctx, task)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, task *store.Task) {
	logger := d.logger.With().
		Int64("task_id", task.ID).
		Str("type", task.Type).
		Str("object", task.Object).
		Int64("object_id", task.ObjectID).
		Logger()

	handler, ok := d.handlers[task.Type]
	if !ok {
		logger.Warn().Msg("no handler registered for task type, dropping")
		d.deleteTask(task, logger)
		return
	}

	if err := d.invoke(ctx, handler, task); err != nil {
		code := scriberr.CorrelationCode()
		logger.Error().Err(err).Str("code", code).Msg("task handler failed")
		if d.metrics != nil {
			d.metrics.RecordTaskError(task.Type)
		}
	} else if d.metrics != nil {
		d.metrics.RecordTask(task.Type)
	}

	// Fire-and-forget: the task is consumed whether or not the handler
	// succeeded. Redelivery only happens on a crash before this delete.
	d.deleteTask(task, logger)
}

// invoke isolates handler panics so one bad task cannot stop the tick.
func (d *Dispatcher) invoke(ctx context.Context, h Handler, task *store.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, task.Object, task.ObjectID)
}

func (d *Dispatcher) deleteTask(task *store.Task, logger zerolog.Logger) {
	if err := d.store.DeleteTask(task.ID); err != nil {
		logger.Error().Err(err).Msg("failed to delete processed task")
	}
}
