// Package dispatcher fans batches out to sink workers.
//
// Each worker runs on its own goroutine with a private unbounded queue and a
// private sink instance. Submitting never blocks on a slow sink; there is no
// back-pressure, so a persistently slow sink grows its queue without bound.
package dispatcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/metrics"
	"github.com/loykin/bulkmt/internal/sink"
)

// ErrStopped is returned by Submit once Stop has begun.
var ErrStopped = errors.New("dispatcher stopped")

// SinkCounters is the end-of-run view of one worker.
type SinkCounters struct {
	Name     string
	Counters command.Counters
}

// Dispatcher owns a group of sink workers.
type Dispatcher struct {
	cfg      Config
	workers  []*worker
	cursor   atomic.Uint64
	stopping atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// New builds one sink per worker through factory and starts the workers.
// If any sink cannot be built, the ones already built are closed.
func New(cfg Config, factory sink.Factory) (*Dispatcher, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeRoundRobin
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("dispatcher %s: sink factory is nil", cfg.Name)
	}

	d := &Dispatcher{cfg: cfg}
	for i := 0; i < cfg.Workers; i++ {
		name := cfg.SinkName(i)
		s, err := factory(name)
		if err != nil {
			_ = d.closeSinks()
			return nil, fmt.Errorf("dispatcher %s: build sink %s: %w", cfg.Name, name, err)
		}
		d.workers = append(d.workers, newWorker(name, s, cfg))
	}

	for _, w := range d.workers {
		d.wg.Add(1)
		go func(w *worker) {
			defer d.wg.Done()
			w.run()
		}(w)
	}
	slog.Debug("dispatcher started", "group", cfg.Name, "workers", cfg.Workers, "mode", cfg.Mode)
	return d, nil
}

// Name returns the group name.
func (d *Dispatcher) Name() string { return d.cfg.Name }

// ProcessBatch submits b and silently drops it when the dispatcher is stopping.
func (d *Dispatcher) ProcessBatch(b command.Batch) {
	if err := d.Submit(b); err != nil {
		metrics.DispatchDropped(d.cfg.Name, "stopped")
		slog.Debug("batch dropped", "group", d.cfg.Name, "commands", b.Len(), "error", err)
	}
}

// Submit enqueues b for the group's workers. Every worker receives its own copy.
// It returns ErrStopped if Stop has begun.
func (d *Dispatcher) Submit(b command.Batch) error {
	if d.stopping.Load() {
		return ErrStopped
	}

	switch d.cfg.Mode {
	case ModeBroadcast:
		accepted := 0
		for _, w := range d.workers {
			if w.enqueue(b.Clone()) {
				accepted++
			}
		}
		if accepted == 0 {
			return ErrStopped
		}
	default:
		i := (d.cursor.Add(1) - 1) % uint64(len(d.workers))
		if !d.workers[i].enqueue(b.Clone()) {
			return ErrStopped
		}
	}
	metrics.DispatchEnqueued(d.cfg.Name)
	return nil
}

// Stop rejects new batches, waits until every worker has drained its queue and
// exited, then closes the sinks. Batches accepted before Stop are never lost.
// Stop is safe to call more than once; later calls return the first result.
func (d *Dispatcher) Stop() error {
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		for _, w := range d.workers {
			w.close()
		}
		d.wg.Wait()
		d.stopErr = d.closeSinks()
		slog.Debug("dispatcher stopped", "group", d.cfg.Name)
	})
	return d.stopErr
}

// Counters returns the per-worker counters in worker order.
func (d *Dispatcher) Counters() []SinkCounters {
	out := make([]SinkCounters, 0, len(d.workers))
	for _, w := range d.workers {
		out = append(out, SinkCounters{Name: w.name, Counters: w.counters.Snapshot()})
	}
	return out
}

func (d *Dispatcher) closeSinks() error {
	var errs []error
	for _, w := range d.workers {
		if c, ok := w.sink.(sink.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sink %s: %w", w.name, err))
			}
		}
	}
	return errors.Join(errs...)
}
