package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent bounds how many units are processed at once.
const DefaultMaxConcurrent = 4

// Worker subscribes to the bus and runs the task each completion event
// triggers. Stages for one unit are serialised; units run concurrently up to
// the semaphore bound. A handler error leaves the unit in its last durable
// state for a safe retry.
type Worker struct {
	bus      *Bus
	handlers *Handlers
	sem      *semaphore.Weighted
	log      *slog.Logger

	mu    sync.Mutex
	units map[string]*sync.Mutex

	wg sync.WaitGroup
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMaxConcurrent overrides the cross-unit concurrency bound.
func WithMaxConcurrent(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewWorker creates a Worker over the given bus and handlers.
func NewWorker(bus *Bus, handlers *Handlers, log *slog.Logger, opts ...WorkerOption) *Worker {
	if log == nil {
		log = slog.Default()
	}
	w := &Worker{
		bus:      bus,
		handlers: handlers,
		sem:      semaphore.NewWeighted(DefaultMaxConcurrent),
		log:      log,
		units:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start subscribes to the trigger events and processes them until ctx is
// cancelled. The returned stop function cancels the subscription and waits
// for in-flight tasks.
func (w *Worker) Start(ctx context.Context) (stop func()) {
	types := make([]string, 0, len(EventToTask))
	for t := range EventToTask {
		types = append(types, t)
	}
	events, cancel := w.bus.Subscribe(types...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				task, mapped := EventToTask[ev.Type]
				if !mapped {
					continue
				}
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					w.runTask(ctx, task, ev.CorrelationID)
				}()
			}
		}
	}()

	return func() {
		cancel()
		<-done
		w.wg.Wait()
	}
}

// Recover scans for units whose last durable event is non-terminal and runs
// the recovery task for each. Call once at startup, after Start: the events
// a resumed task emits must reach the worker's subscription to chain the
// unit through its remaining stages.
func (w *Worker) Recover(ctx context.Context) error {
	open, err := w.handlers.store.OpenUnits(ctx, TerminalEvent)
	if err != nil {
		return fmt.Errorf("pipeline: recovery scan: %w", err)
	}
	for _, rec := range open {
		task, ok := RecoveryTask[rec.Type]
		if !ok {
			w.log.Warn("no recovery task for event", "unit", rec.UnitID, "event", rec.Type)
			continue
		}
		w.log.Info("recovering unit", "unit", rec.UnitID, "last_event", rec.Type, "task", task)
		w.runTask(ctx, task, rec.UnitID)
	}
	return nil
}

// runTask executes one task under the concurrency bound with the unit's
// stage lock held.
func (w *Worker) runTask(ctx context.Context, task, unitID string) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer w.sem.Release(1)

	lock := w.unitLock(unitID)
	lock.Lock()
	defer lock.Unlock()

	if err := w.handlers.Run(ctx, task, unitID); err != nil {
		w.log.Error("task failed, unit remains retryable",
			"task", task, "unit", unitID, "err", err)
	}
}

func (w *Worker) unitLock(unitID string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.units[unitID]
	if !ok {
		lock = &sync.Mutex{}
		w.units[unitID] = lock
	}
	return lock
}
