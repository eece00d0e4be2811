// Package pipeline wires the classifier, the accumulator and the dispatchers
// into one stage graph and drives it from a source.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/loykin/bulkmt/internal/accumulator"
	"github.com/loykin/bulkmt/internal/classifier"
	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/dispatcher"
	"github.com/loykin/bulkmt/internal/sink"
	"github.com/loykin/bulkmt/internal/source"
	"github.com/loykin/bulkmt/internal/stage"
)

// Group is one fan-out target: a dispatcher and the factory of its sinks.
type Group struct {
	Dispatcher dispatcher.Config
	Factory    sink.Factory
}

type Config struct {
	BulkSize   int
	Classifier classifier.Config
	Groups     []Group
}

// Pipeline is driven by a single goroutine: ProcessLine, Run and Stop must not
// be called concurrently.
type Pipeline struct {
	classifier  *classifier.Classifier
	accumulator *accumulator.Accumulator
	dispatchers []*dispatcher.Dispatcher

	stopOnce sync.Once
	stopErr  error
}

// New builds the stage graph. Sink workers are running when it returns.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Classifier.OpenToken == "" && cfg.Classifier.CloseToken == "" {
		cfg.Classifier.Default()
	}
	if err := cfg.Classifier.Validate(); err != nil {
		return nil, err
	}
	if cfg.BulkSize <= 0 {
		return nil, fmt.Errorf("bulk size must be a positive integer, got %d", cfg.BulkSize)
	}

	p := &Pipeline{}
	next := make([]stage.BatchProcessor, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		if g.Factory == nil {
			p.stopDispatchers()
			return nil, fmt.Errorf("group %q has no sink factory", g.Dispatcher.Name)
		}
		d, err := dispatcher.New(g.Dispatcher, g.Factory)
		if err != nil {
			p.stopDispatchers()
			return nil, fmt.Errorf("group %q: %w", g.Dispatcher.Name, err)
		}
		p.dispatchers = append(p.dispatchers, d)
		next = append(next, d)
	}

	acc, err := accumulator.New(cfg.BulkSize, next...)
	if err != nil {
		p.stopDispatchers()
		return nil, err
	}
	p.accumulator = acc
	p.classifier = classifier.New(cfg.Classifier, acc)
	return p, nil
}

func (p *Pipeline) stopDispatchers() {
	for _, d := range p.dispatchers {
		if err := d.Stop(); err != nil {
			slog.Warn("dispatcher teardown failed", "group", d.Name(), "error", err)
		}
	}
}

func (p *Pipeline) ProcessLine(line string) { p.classifier.ProcessLine(line) }

// Run feeds every line of src into the pipeline until the source is exhausted
// or ctx is done, then stops the pipeline. Cancellation is a normal end of input.
func (p *Pipeline) Run(ctx context.Context, src source.Source) error {
	// unblocks a Next stuck in a read
	stopClose := context.AfterFunc(ctx, func() { _ = src.Close() })
	defer stopClose()

	var readErr error
	for {
		line, err := src.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				readErr = fmt.Errorf("read input: %w", err)
			}
			break
		}
		p.ProcessLine(line)
	}
	return errors.Join(readErr, p.Stop(), src.Close())
}

// Stop flushes, drains every dispatcher and closes all sinks. It is idempotent.
func (p *Pipeline) Stop() error {
	p.stopOnce.Do(func() {
		p.stopErr = p.classifier.Stop()
	})
	return p.stopErr
}

// Counters returns the main stage totals: lines read, batches and commands flushed.
func (p *Pipeline) Counters() command.Counters {
	c := p.accumulator.Counters()
	c.Lines = p.classifier.Counters().Lines
	return c
}

// SinkCounters lists every sink of every group in registration order.
func (p *Pipeline) SinkCounters() []dispatcher.SinkCounters {
	var out []dispatcher.SinkCounters
	for _, d := range p.dispatchers {
		out = append(out, d.Counters()...)
	}
	return out
}

// Report prints the main counters followed by one line per sink.
func (p *Pipeline) Report(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "main: %s\n", p.Counters().WithLines()); err != nil {
		return err
	}
	for _, sc := range p.SinkCounters() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", sc.Name, sc.Counters); err != nil {
			return err
		}
	}
	return nil
}
