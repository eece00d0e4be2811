package console

import (
	"fmt"
	"io"
	"os"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/sink"
)

// Sink prints each rendered batch on its own line.
type Sink struct {
	name string
	w    io.Writer
}

// New returns a console sink writing to stdout or stderr depending on stream.
// stream: "stdout" (default) or "stderr".
func New(name, stream string) *Sink {
	var w io.Writer = os.Stdout
	if stream == "stderr" {
		w = os.Stderr
	}
	return NewWriter(name, w)
}

// NewWriter returns a console sink writing to w.
func NewWriter(name string, w io.Writer) *Sink {
	return &Sink{name: name, w: w}
}

func (s *Sink) ProcessBatch(b command.Batch) error {
	if _, err := fmt.Fprintln(s.w, b.Render()); err != nil {
		return &sink.WriteError{Sink: s.name, Err: err}
	}
	return nil
}
