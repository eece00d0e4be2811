// Package source supplies the raw input lines of the pipeline.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Source yields one logical line per call. Next returns io.EOF once the input is exhausted.
type Source interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Config selects and tunes the input source.
type Config struct {
	Path            string        `mapstructure:"path"` // empty or "-" reads stdin
	Follow          bool          `mapstructure:"follow"`
	Separator       string        `mapstructure:"separator"`
	PollInterval    time.Duration `mapstructure:"poll-interval"`
	MaxPollInterval time.Duration `mapstructure:"max-poll-interval"`
	Include         []string      `mapstructure:"include"`
	Exclude         []string      `mapstructure:"exclude"`
}

func Default() Config {
	return Config{
		Separator:       "\n",
		PollInterval:    100 * time.Millisecond,
		MaxPollInterval: 2 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Separator == "" {
		return errors.New("input.separator must not be empty")
	}
	if c.Follow {
		if c.Path == "" || c.Path == "-" {
			return errors.New("input.follow requires input.path")
		}
		if c.PollInterval <= 0 {
			return errors.New("input.poll-interval must be > 0")
		}
		if c.MaxPollInterval < c.PollInterval {
			return errors.New("input.max-poll-interval must be >= input.poll-interval")
		}
	}
	return nil
}

// Open builds the source described by cfg. Lines equal to any of the passthrough
// values bypass the include/exclude filters.
func Open(cfg Config, stdin io.Reader, passthrough ...string) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var src Source
	switch {
	case cfg.Follow:
		f, err := NewFollow(cfg.Path, cfg.Separator, cfg.PollInterval, cfg.MaxPollInterval)
		if err != nil {
			return nil, err
		}
		src = f
	case cfg.Path == "" || cfg.Path == "-":
		src = NewReader(stdin, cfg.Separator)
	default:
		f, err := os.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		src = NewReader(f, cfg.Separator)
	}
	if len(cfg.Include) == 0 && len(cfg.Exclude) == 0 {
		return src, nil
	}
	return NewFilter(src, cfg.Include, cfg.Exclude, passthrough...), nil
}
