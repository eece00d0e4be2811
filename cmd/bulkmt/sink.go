package main

import (
	"fmt"
	"strings"

	"github.com/loykin/bulkmt/internal/pipeline"
	"github.com/loykin/bulkmt/internal/sink"
	"github.com/loykin/bulkmt/internal/sink/clickhouse"
	"github.com/loykin/bulkmt/internal/sink/console"
	"github.com/loykin/bulkmt/internal/sink/journal"
	"github.com/loykin/bulkmt/internal/sink/opensearch"
	"github.com/loykin/bulkmt/internal/sink/report"
	"github.com/loykin/bulkmt/internal/sink/rotate"
)

// buildFactory returns the constructor used once per worker of group g.
func buildFactory(g GroupConfig) (sink.Factory, error) {
	switch g.Type {
	case "console":
		stream := strings.ToLower(g.Console.Stream)
		return func(name string) (sink.Sink, error) {
			return console.New(name, stream), nil
		}, nil
	case "report":
		dir := g.Report.Dir
		return func(name string) (sink.Sink, error) {
			s, err := report.New(name, dir)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case "rotate":
		cfg := g.Rotate
		return func(name string) (sink.Sink, error) {
			s, err := rotate.New(name, cfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case "journal":
		cfg := g.Journal
		return func(name string) (sink.Sink, error) {
			s, err := journal.New(name, cfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case "clickhouse":
		cfg := g.ClickHouse
		return func(name string) (sink.Sink, error) {
			s, err := clickhouse.New(name, cfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	case "opensearch":
		cfg := g.OpenSearch
		return func(name string) (sink.Sink, error) {
			s, err := opensearch.New(name, cfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported sink: %s", g.Type)
	}
}

// buildGroups turns the configured groups into pipeline groups.
func buildGroups(cfg *Config) ([]pipeline.Group, error) {
	groups := make([]pipeline.Group, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		f, err := buildFactory(g)
		if err != nil {
			return nil, err
		}
		groups = append(groups, pipeline.Group{Dispatcher: g.Config, Factory: f})
	}
	return groups, nil
}
