// Package sink defines terminal pipeline stages that render and persist batches.
//
// A sink instance is owned by exactly one dispatcher worker, so implementations
// need no internal synchronization.
package sink

import (
	"errors"
	"fmt"

	"github.com/loykin/bulkmt/internal/command"
)

// Sink writes one batch at a time.
type Sink interface {
	ProcessBatch(b command.Batch) error
}

// Closer is implemented by sinks that hold resources released at teardown.
type Closer interface {
	Close() error
}

// Factory builds the sink instance for one worker. name is the worker's sink
// identity, e.g. "file1".
type Factory func(name string) (Sink, error)

// WriteError reports a failed batch write.
type WriteError struct {
	Sink   string
	Target string
	Err    error
}

func (e *WriteError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("sink %s: write failed: %v", e.Sink, e.Err)
	}
	return fmt.Sprintf("sink %s: write to %s failed: %v", e.Sink, e.Target, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsWriteError reports whether err wraps a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
