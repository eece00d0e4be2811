// Package journal records every batch in a SQLite database.
package journal

import (
	"fmt"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/sink"
)

// Config holds journal sink options.
type Config struct {
	Path string `mapstructure:"path"`
}

func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("journal.path must be set when the sink type is 'journal'")
	}
	return nil
}

// Sink appends each batch to the journal under its own name.
type Sink struct {
	name  string
	store Store
	seq   int
}

// New opens the journal at cfg.Path for the sink called name.
func New(name string, cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	st, err := NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	return NewWithStore(name, st), nil
}

// NewWithStore returns a sink writing to an already opened store.
func NewWithStore(name string, st Store) *Sink {
	return &Sink{name: name, store: st}
}

func (s *Sink) ProcessBatch(b command.Batch) error {
	s.seq++
	if _, err := s.store.Append(s.name, s.seq, b); err != nil {
		return &sink.WriteError{Sink: s.name, Target: "journal", Err: err}
	}
	return nil
}

func (s *Sink) Close() error { return s.store.Close() }
