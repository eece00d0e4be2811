// Package classifier turns raw input lines into block boundaries and commands.
package classifier

import (
	"errors"
	"time"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/metrics"
	"github.com/loykin/bulkmt/internal/stage"
)

const (
	DefaultOpenToken  = "{"
	DefaultCloseToken = "}"
)

type Config struct {
	OpenToken  string `mapstructure:"open-token"`
	CloseToken string `mapstructure:"close-token"`
}

func (c *Config) Default() {
	c.OpenToken = DefaultOpenToken
	c.CloseToken = DefaultCloseToken
}

func (c Config) Validate() error {
	if c.OpenToken == "" || c.CloseToken == "" {
		return errors.New("block tokens must not be empty")
	}
	if c.OpenToken == c.CloseToken {
		return errors.New("open and close block tokens must differ")
	}
	return nil
}

// Classifier tracks block nesting depth and forwards events downstream.
// It is driven by a single goroutine and needs no locking.
//
// Depth is never clamped: an unmatched close token drives it negative, and
// StartBlock/FinishBlock fire only on the 0->1 and 1->0 transitions.
type Classifier struct {
	cfg      Config
	next     []stage.CommandProcessor
	depth    int
	counters command.Counters
	clock    func() time.Time
}

// New returns a Classifier forwarding to next. The slice is copied.
func New(cfg Config, next ...stage.CommandProcessor) *Classifier {
	deps := make([]stage.CommandProcessor, len(next))
	copy(deps, next)
	return &Classifier{cfg: cfg, next: deps, clock: time.Now}
}

// ProcessLine classifies a single input line.
func (c *Classifier) ProcessLine(line string) {
	c.counters.Lines++
	metrics.IncLines()

	switch line {
	case c.cfg.OpenToken:
		c.depth++
		if c.depth == 1 {
			metrics.IncBlocks()
			for _, n := range c.next {
				n.StartBlock()
			}
		}
	case c.cfg.CloseToken:
		c.depth--
		if c.depth == 0 {
			for _, n := range c.next {
				n.FinishBlock()
			}
		}
	default:
		cmd := command.Command{Text: line, Timestamp: c.clock()}
		c.counters.Commands++
		metrics.IncCommands()
		for _, n := range c.next {
			n.ProcessCommand(cmd)
		}
	}
}

// Depth returns the current nesting depth.
func (c *Classifier) Depth() int { return c.depth }

// Counters returns the lines and commands seen so far.
func (c *Classifier) Counters() command.Counters { return c.counters }

// Stop stops every downstream stage in order and returns their joined errors.
func (c *Classifier) Stop() error {
	var errs []error
	for _, n := range c.next {
		if err := n.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
