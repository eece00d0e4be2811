package command

import (
	"strings"
	"time"
)

// BulkPrefix is prepended to every rendered batch.
const BulkPrefix = "bulk: "

// Separator joins command texts inside a rendered batch.
const Separator = ", "

// Command is a single input line together with its arrival time.
type Command struct {
	Text      string
	Timestamp time.Time
}

// New returns a Command stamped with the current time.
func New(text string) Command {
	return Command{Text: text, Timestamp: time.Now()}
}

// Batch is an ordered group of commands flushed together.
// Timestamp is taken from the first command.
type Batch struct {
	Commands  []Command
	Timestamp time.Time
}

// NewBatch copies cmds into a new Batch. It returns false when cmds is empty.
func NewBatch(cmds []Command) (Batch, bool) {
	if len(cmds) == 0 {
		return Batch{}, false
	}
	owned := make([]Command, len(cmds))
	copy(owned, cmds)
	return Batch{Commands: owned, Timestamp: owned[0].Timestamp}, true
}

// Len returns the number of commands in the batch.
func (b Batch) Len() int { return len(b.Commands) }

// Clone returns a batch that shares no memory with b.
func (b Batch) Clone() Batch {
	owned := make([]Command, len(b.Commands))
	copy(owned, b.Commands)
	return Batch{Commands: owned, Timestamp: b.Timestamp}
}

// Texts returns the command texts in order.
func (b Batch) Texts() []string {
	out := make([]string, len(b.Commands))
	for i, c := range b.Commands {
		out[i] = c.Text
	}
	return out
}

// Render formats the batch as "bulk: a, b, c".
func (b Batch) Render() string {
	var sb strings.Builder
	sb.WriteString(BulkPrefix)
	for i, c := range b.Commands {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}
