// Package opensearch bulk-indexes every command of a batch as one document.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/sink"
	osclient "github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchutil"
)

const defaultTimeout = 15 * time.Second

type Sink struct {
	name    string
	client  *osclient.Client
	index   string
	host    string
	labels  map[string]string
	timeout time.Duration
}

func New(name string, cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clientCfg := osclient.Config{Addresses: []string{cfg.URL}}
	if cfg.User != "" {
		clientCfg.Username = cfg.User
		clientCfg.Password = cfg.Password
	}
	cli, err := osclient.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}
	host := cfg.Host
	if host == "" {
		if h, err := os.Hostname(); err == nil {
			host = h
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Sink{
		name:    name,
		client:  cli,
		index:   cfg.Index,
		host:    host,
		labels:  cfg.Labels,
		timeout: timeout,
	}, nil
}

func (s *Sink) ProcessBatch(b command.Batch) error {
	if err := s.bulkIndex(b); err != nil {
		return &sink.WriteError{Sink: s.name, Target: s.index, Err: err}
	}
	return nil
}

func (s *Sink) bulkIndex(b command.Batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:     s.client,
		Index:      s.index,
		NumWorkers: 1,
	})
	if err != nil {
		return err
	}
	batchTS := b.Timestamp.UTC().Format(time.RFC3339Nano)
	for i, c := range b.Commands {
		doc := map[string]any{
			"@timestamp": c.Timestamp.UTC().Format(time.RFC3339Nano),
			"batch_ts":   batchTS,
			"sink":       s.name,
			"pos":        i,
			"message":    c.Text,
			"host":       s.host,
			"labels":     s.labels,
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(body),
			OnFailure: func(ctx context.Context, item opensearchutil.BulkIndexerItem, resp opensearchutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.Error("opensearch bulk item error", "sink", s.name, "error", err)
					return
				}
				slog.Error("opensearch bulk item failed", "sink", s.name, "status", resp.Status, "error", resp.Error)
			},
		})
		if err != nil {
			return err
		}
	}
	if err := bi.Close(ctx); err != nil {
		return err
	}
	if stats := bi.Stats(); stats.NumFailed > 0 {
		return fmt.Errorf("opensearch bulk failed items: %d", stats.NumFailed)
	}
	return nil
}
