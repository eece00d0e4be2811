// Package bulkmt provides a simplified, stable root-level API for external users.
//
// Instead of importing internal subpackages, consumers can just:
//
//	import "github.com/loykin/bulkmt"
//
// and then build a pipeline with bulkmt.NewPipeline, feed it lines and stop it.
package bulkmt

import (
	"io"

	"github.com/loykin/bulkmt/internal/classifier"
	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/dispatcher"
	"github.com/loykin/bulkmt/internal/metrics"
	"github.com/loykin/bulkmt/internal/pipeline"
	"github.com/loykin/bulkmt/internal/sink"
	"github.com/loykin/bulkmt/internal/source"
	"github.com/prometheus/client_golang/prometheus"
)

// Config re-exports pipeline.Config for convenient use from the module root.
// This is a type alias, so it's fully compatible with the underlying type.
type Config = pipeline.Config

// Group re-exports pipeline.Group: one dispatcher and the factory of its sinks.
type Group = pipeline.Group

// GroupConfig re-exports the dispatcher settings of a group.
type GroupConfig = dispatcher.Config

// Pipeline re-exports pipeline.Pipeline so callers can keep the concrete type.
type Pipeline = pipeline.Pipeline

// TokenConfig re-exports the block token settings.
type TokenConfig = classifier.Config

// Batch, Command and Counters re-export the data model.
type (
	Batch    = command.Batch
	Command  = command.Command
	Counters = command.Counters
)

// Sink is what each worker writes batches to. Sinks may also implement SinkCloser.
type Sink = sink.Sink

type SinkCloser = sink.Closer

// SinkFactory builds one sink per worker, given the worker's sink name.
type SinkFactory = sink.Factory

// Source re-exports source.Source; see NewReaderSource.
type Source = source.Source

// Delivery modes re-exported for convenient configuration.
const (
	ModeRoundRobin = dispatcher.ModeRoundRobin
	ModeBroadcast  = dispatcher.ModeBroadcast
)

// ErrStopped is returned by strict submissions after a dispatcher stopped.
var ErrStopped = dispatcher.ErrStopped

// NewPipeline constructs a new Pipeline using the provided configuration.
// It is a thin wrapper around pipeline.New.
func NewPipeline(cfg Config) (*Pipeline, error) {
	return pipeline.New(cfg)
}

// SourceConfig re-exports source.Config.
type SourceConfig = source.Config

// DefaultSourceConfig returns the default input settings: stdin, newline separated.
func DefaultSourceConfig() SourceConfig { return source.Default() }

// NewSource opens the source described by cfg; stdin is read when cfg.Path is empty.
// Block tokens always pass the include/exclude filters.
func NewSource(cfg SourceConfig, stdin io.Reader, tokens TokenConfig) (Source, error) {
	if tokens.OpenToken == "" && tokens.CloseToken == "" {
		tokens.Default()
	}
	return source.Open(cfg, stdin, tokens.OpenToken, tokens.CloseToken)
}

// StartMetrics registers bulkmt metrics on the default Prometheus registry and starts an HTTP server.
// It returns a stop function to gracefully shut down the metrics server.
func StartMetrics(addr string) (func() error, error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}
	srv, err := metrics.Start(addr)
	if err != nil {
		return nil, err
	}
	return srv.Stop, nil
}
