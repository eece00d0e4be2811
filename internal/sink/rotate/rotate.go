// Package rotate appends rendered batches to a size-rotated log file.
package rotate

import (
	"fmt"
	"path/filepath"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/sink"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Sink struct {
	name string
	lj   *lumberjack.Logger
}

// New returns a sink appending to <cfg.Dir>/<name>.log.
func New(name string, cfg Config) (*Sink, error) {
	if name == "" {
		return nil, fmt.Errorf("rotate sink requires a name")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sink{
		name: name,
		lj: &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name+".log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
	}, nil
}

// Path returns the active log file.
func (s *Sink) Path() string { return s.lj.Filename }

func (s *Sink) ProcessBatch(b command.Batch) error {
	if _, err := fmt.Fprintln(s.lj, b.Render()); err != nil {
		return &sink.WriteError{Sink: s.name, Target: s.lj.Filename, Err: err}
	}
	return nil
}

// Rotate closes the active file and starts a new one.
func (s *Sink) Rotate() error { return s.lj.Rotate() }

func (s *Sink) Close() error { return s.lj.Close() }
