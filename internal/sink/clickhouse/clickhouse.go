// Package clickhouse stores each command of a batch as a row in ClickHouse.
package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/sink"
)

type Sink struct {
	name   string
	conn   ch.Conn
	table  string
	host   string
	labels map[string]string
	seq    uint64
}

// Options converts cfg into clickhouse-go options, supporting HTTP and native addresses.
func Options(cfg Config) (*ch.Options, error) {
	auth := ch.Auth{Username: cfg.User, Password: cfg.Password, Database: cfg.Database}
	if !strings.Contains(cfg.Addr, "://") {
		return &ch.Options{Addr: []string{cfg.Addr}, Auth: auth}, nil
	}
	u, err := url.Parse(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid ch addr: %w", err)
	}
	opts := &ch.Options{Addr: []string{u.Host}, Protocol: ch.HTTP, Auth: auth}
	if u.Scheme == "https" {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// New connects to ClickHouse, ensures the table exists and returns the sink for name.
func New(name string, cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(opts, cfg.FullTable()); err != nil {
		return nil, err
	}
	conn, err := ch.Open(opts)
	if err != nil {
		return nil, err
	}
	host := cfg.Host
	if host == "" {
		if h, err := os.Hostname(); err == nil {
			host = h
		}
	}
	return &Sink{
		name:   name,
		conn:   conn,
		table:  cfg.FullTable(),
		host:   host,
		labels: cfg.Labels,
	}, nil
}

func (s *Sink) ProcessBatch(b command.Batch) error {
	s.seq++
	if err := s.insert(b); err != nil {
		return &sink.WriteError{Sink: s.name, Target: s.table, Err: err}
	}
	return nil
}

func (s *Sink) insert(b command.Batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table+" (ts, batch_ts, sink, seq, pos, host, labels, message)")
	if err != nil {
		return err
	}
	labels := s.labels
	if labels == nil {
		labels = map[string]string{}
	}
	for i, c := range b.Commands {
		if err := batch.Append(c.Timestamp, b.Timestamp, s.name, s.seq, uint32(i), s.host, labels, c.Text); err != nil {
			return err
		}
	}
	return batch.Send()
}

func (s *Sink) Close() error { return s.conn.Close() }
