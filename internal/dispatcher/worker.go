package dispatcher

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/metrics"
	"github.com/loykin/bulkmt/internal/sink"
)

// worker owns one unbounded FIFO queue and one sink instance.
type worker struct {
	name          string
	sink          sink.Sink
	retries       int
	retryInterval time.Duration

	mu     sync.Mutex
	queue  []command.Batch
	closed bool
	wake   chan struct{}

	counters command.SafeCounters
}

func newWorker(name string, s sink.Sink, cfg Config) *worker {
	return &worker{
		name:          name,
		sink:          s,
		retries:       cfg.Retries,
		retryInterval: cfg.RetryInterval,
		wake:          make(chan struct{}, 1),
	}
}

// enqueue appends b unless the worker has been closed. It never blocks.
func (w *worker) enqueue(b command.Batch) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.queue = append(w.queue, b)
	metrics.SetQueueDepth(w.name, len(w.queue))
	w.mu.Unlock()
	w.signal()
	return true
}

// close rejects further batches and wakes the worker so it can drain and exit.
func (w *worker) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
}

func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
		// a wakeup is already pending
	}
}

// run processes batches until the worker is closed and its queue is empty.
func (w *worker) run() {
	for {
		w.mu.Lock()
		items := w.queue
		w.queue = nil
		closed := w.closed
		if len(items) > 0 {
			metrics.SetQueueDepth(w.name, 0)
		}
		w.mu.Unlock()

		if len(items) == 0 {
			if closed {
				return
			}
			<-w.wake
			continue
		}
		for _, b := range items {
			w.process(b)
		}
	}
}

func (w *worker) process(b command.Batch) {
	start := time.Now()
	err := w.write(b)
	metrics.SinkFlushObserve(w.name, b.Len(), time.Since(start), err == nil)
	w.counters.AddBatch(b.Len())
	if err != nil {
		slog.Error("sink write failed", "sink", w.name, "commands", b.Len(), "error", err)
	}
}

func (w *worker) write(b command.Batch) error {
	if w.retries <= 0 {
		return w.safeWrite(b)
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.retryInterval
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0
	return backoff.RetryNotify(
		func() error { return w.safeWrite(b) },
		backoff.WithMaxRetries(bo, uint64(w.retries)),
		func(err error, next time.Duration) {
			metrics.IncSinkRetries(w.name)
			slog.Warn("retrying sink write", "sink", w.name, "in", next, "error", err)
		},
	)
}

// safeWrite keeps a panicking sink from taking the worker down.
func (w *worker) safeWrite(b command.Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", w.name, r)
		}
	}()
	return w.sink.ProcessBatch(b)
}
