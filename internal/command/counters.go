package command

import (
	"fmt"
	"sync"
)

// Counters holds the per-stage totals printed at the end of a run.
type Counters struct {
	Lines    int
	Blocks   int
	Commands int
}

// String renders the counters without the line total, as sinks report them.
func (c Counters) String() string {
	return fmt.Sprintf("%d blocks, %d commands", c.Blocks, c.Commands)
}

// WithLines renders the counters including the line total.
func (c Counters) WithLines() string {
	return fmt.Sprintf("%d lines, %d blocks, %d commands", c.Lines, c.Blocks, c.Commands)
}

// SafeCounters guards Counters for stages read from another goroutine.
// The lock is held only around the counter update, never across I/O.
type SafeCounters struct {
	mu sync.Mutex
	c  Counters
}

// AddBatch records one flushed batch of n commands.
func (s *SafeCounters) AddBatch(n int) {
	s.mu.Lock()
	s.c.Blocks++
	s.c.Commands += n
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *SafeCounters) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}
