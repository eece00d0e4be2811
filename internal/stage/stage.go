// Package stage defines the contracts between pipeline stages.
//
// A pipeline is wired once at startup: each stage holds an immutable list of
// its downstream stages. Stages implement only the operations they care about
// and embed Nop for the rest.
package stage

import "github.com/loykin/bulkmt/internal/command"

// CommandProcessor receives classified input: block boundaries and commands.
type CommandProcessor interface {
	StartBlock()
	FinishBlock()
	ProcessCommand(c command.Command)
	// Stop flushes whatever the stage still holds and stops its dependents.
	// It blocks until every dependent has drained.
	Stop() error
}

// BatchProcessor receives flushed batches.
type BatchProcessor interface {
	ProcessBatch(b command.Batch)
	Stop() error
}

// Nop provides no-op defaults for every stage operation.
type Nop struct{}

func (Nop) StartBlock()                    {}
func (Nop) FinishBlock()                   {}
func (Nop) ProcessCommand(command.Command) {}
func (Nop) ProcessBatch(command.Batch)     {}
func (Nop) Stop() error                    { return nil }
