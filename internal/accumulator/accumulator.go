// Package accumulator groups commands into batches.
//
// A batch is flushed when the buffer reaches the bulk size outside a block,
// or immediately at every block boundary. Inside a block the size threshold is
// ignored so that the block's contents are delivered as one batch.
package accumulator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/metrics"
	"github.com/loykin/bulkmt/internal/stage"
)

// Accumulator buffers commands and forwards flushed batches to its dependents.
// It is driven by the classifier's goroutine; only Counters may be called
// concurrently.
type Accumulator struct {
	bulkSize int
	next     []stage.BatchProcessor
	buffer   []command.Command
	forced   bool
	stopped  bool
	counters command.SafeCounters
}

// New returns an Accumulator flushing every bulkSize commands to next.
func New(bulkSize int, next ...stage.BatchProcessor) (*Accumulator, error) {
	if bulkSize <= 0 {
		return nil, fmt.Errorf("bulk size must be > 0, got %d", bulkSize)
	}
	deps := make([]stage.BatchProcessor, len(next))
	copy(deps, next)
	return &Accumulator{
		bulkSize: bulkSize,
		next:     deps,
		buffer:   make([]command.Command, 0, bulkSize),
	}, nil
}

// StartBlock flushes what was buffered before the block and suspends size flushing.
func (a *Accumulator) StartBlock() {
	a.forced = true
	a.flush(metrics.FlushReasonBlock)
}

// FinishBlock flushes the block's contents as a single batch.
func (a *Accumulator) FinishBlock() {
	a.forced = false
	a.flush(metrics.FlushReasonBlock)
}

// ProcessCommand appends c and flushes once the bulk size is reached outside a block.
func (a *Accumulator) ProcessCommand(c command.Command) {
	a.buffer = append(a.buffer, c)
	if !a.forced && len(a.buffer) >= a.bulkSize {
		a.flush(metrics.FlushReasonSize)
	}
}

// Stop flushes the buffer unless a block is still open, then stops every
// dependent in registration order, waiting for each one to drain.
func (a *Accumulator) Stop() error {
	if a.stopped {
		return nil
	}
	a.stopped = true

	if !a.forced {
		a.flush(metrics.FlushReasonStop)
	} else if len(a.buffer) > 0 {
		slog.Warn("discarding commands of unfinished block", "commands", len(a.buffer))
		a.buffer = a.buffer[:0]
	}

	var errs []error
	for _, n := range a.next {
		if err := n.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forced reports whether a block is currently open.
func (a *Accumulator) Forced() bool { return a.forced }

// Pending returns the number of buffered commands.
func (a *Accumulator) Pending() int { return len(a.buffer) }

// Counters returns the number of batches and commands flushed so far.
func (a *Accumulator) Counters() command.Counters { return a.counters.Snapshot() }

func (a *Accumulator) flush(reason string) {
	b, ok := command.NewBatch(a.buffer)
	if !ok {
		return
	}
	a.buffer = a.buffer[:0]
	a.counters.AddBatch(b.Len())
	metrics.BatchFlushed(reason, b.Len())
	slog.Debug("batch flushed", "reason", reason, "commands", b.Len())

	for _, n := range a.next {
		n.ProcessBatch(b)
	}
}
