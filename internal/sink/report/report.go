// Package report writes each batch to its own file.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/sink"
)

// Sink writes every batch to <dir>/<name>-bulk-<n>-<epochSeconds>.log, where n
// counts this sink's flushes starting at 1. The counter keeps names unique
// even when several batches share the same second.
type Sink struct {
	name       string
	dir        string
	flushCount int
}

// New returns a report sink writing into dir, creating it if needed.
func New(name, dir string) (*Sink, error) {
	if name == "" {
		return nil, fmt.Errorf("report sink requires a name")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	return &Sink{name: name, dir: dir}, nil
}

// FileName returns the file name used for the n-th flush of a batch stamped at b.Timestamp.
func FileName(name string, n int, b command.Batch) string {
	return fmt.Sprintf("%s-bulk-%d-%d.log", name, n, b.Timestamp.Unix())
}

func (s *Sink) ProcessBatch(b command.Batch) error {
	s.flushCount++
	path := filepath.Join(s.dir, FileName(s.name, s.flushCount, b))
	if err := os.WriteFile(path, []byte(b.Render()+"\n"), 0o644); err != nil {
		return &sink.WriteError{Sink: s.name, Target: path, Err: err}
	}
	return nil
}

// Flushes returns the number of files attempted so far.
func (s *Sink) Flushes() int { return s.flushCount }
