package dispatcher

import (
	"fmt"
	"time"
)

// Mode selects how a group's workers share incoming batches.
type Mode string

const (
	// ModeRoundRobin hands each batch to exactly one worker, in rotating order.
	ModeRoundRobin Mode = "roundrobin"
	// ModeBroadcast hands every batch to every worker.
	ModeBroadcast Mode = "broadcast"
)

type Config struct {
	Name          string        `mapstructure:"name"`
	Workers       int           `mapstructure:"workers"`
	Mode          Mode          `mapstructure:"mode"`
	Retries       int           `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (c *Config) Default() {
	c.Workers = 1
	c.Mode = ModeRoundRobin
	c.Retries = 0
	c.RetryInterval = 100 * time.Millisecond
}

// Validate checks the group settings.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("dispatcher name must be set")
	}
	if c.Workers < 1 {
		return fmt.Errorf("dispatcher %s: workers must be >= 1", c.Name)
	}
	switch c.Mode {
	case "", ModeRoundRobin, ModeBroadcast:
	default:
		return fmt.Errorf("dispatcher %s: invalid mode %q", c.Name, c.Mode)
	}
	if c.Retries < 0 {
		return fmt.Errorf("dispatcher %s: retries must be >= 0", c.Name)
	}
	if c.Retries > 0 && c.RetryInterval <= 0 {
		return fmt.Errorf("dispatcher %s: retry-interval must be > 0", c.Name)
	}
	return nil
}

// SinkName returns the identity of worker i (0-based). A single-worker group
// uses the group name itself; larger groups number their workers from 1.
func (c Config) SinkName(i int) string {
	if c.Workers <= 1 {
		return c.Name
	}
	return fmt.Sprintf("%s%d", c.Name, i+1)
}
