package accumulator

import (
	"errors"
	"strings"
	"testing"

	"github.com/loykin/bulkmt/internal/classifier"
	"github.com/loykin/bulkmt/internal/command"
	"github.com/loykin/bulkmt/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchRecorder struct {
	stage.Nop
	batches [][]string
	stopped bool
	err     error
}

func (r *batchRecorder) ProcessBatch(b command.Batch) {
	r.batches = append(r.batches, b.Texts())
}

func (r *batchRecorder) Stop() error {
	r.stopped = true
	return r.err
}

func run(t *testing.T, bulkSize int, lines ...string) (*batchRecorder, *Accumulator) {
	t.Helper()
	r := &batchRecorder{}
	acc, err := New(bulkSize, r)
	require.NoError(t, err)
	var cfg classifier.Config
	cfg.Default()
	c := classifier.New(cfg, acc)
	for _, l := range lines {
		c.ProcessLine(l)
	}
	require.NoError(t, c.Stop())
	return r, acc
}

func TestNew_InvalidBulkSize(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
	_, err = New(-3)
	assert.Error(t, err)
}

func TestScenario(t *testing.T) {
	r, acc := run(t, 2, "a", "b", "{", "c", "d", "}", "e", "f", "g")

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}, {"g"}}, r.batches)
	assert.True(t, r.stopped)
	assert.Equal(t, command.Counters{Blocks: 4, Commands: 7}, acc.Counters())
}

func TestSizeTrigger(t *testing.T) {
	const n, k = 3, 4
	var lines []string
	for i := 0; i < n*k; i++ {
		lines = append(lines, string(rune('a'+i)))
	}
	r, _ := run(t, n, lines...)

	require.Len(t, r.batches, k)
	for i, b := range r.batches {
		assert.Len(t, b, n)
		assert.Equal(t, lines[i*n:(i+1)*n], b)
	}
}

func TestBlockOverridesSize(t *testing.T) {
	r, _ := run(t, 2, "x", "{", "1", "2", "3", "4", "5", "}", "y")

	assert.Equal(t, [][]string{{"x"}, {"1", "2", "3", "4", "5"}, {"y"}}, r.batches)
}

func TestNestedBlockIsOneBatch(t *testing.T) {
	r, _ := run(t, 1, "{", "a", "{", "b", "}", "c", "}")

	assert.Equal(t, [][]string{{"a", "b", "c"}}, r.batches)
}

func TestEmptyBlockFlushesNothing(t *testing.T) {
	r, _ := run(t, 5, "{", "}")

	assert.Empty(t, r.batches)
}

func TestUnfinishedBlockIsDiscardedAtStop(t *testing.T) {
	r, acc := run(t, 5, "a", "{", "b", "c")

	assert.Equal(t, [][]string{{"a"}}, r.batches)
	assert.Equal(t, 0, acc.Pending())
	assert.True(t, acc.Forced())
}

func TestBatchCompleteness(t *testing.T) {
	input := strings.Split("a b { c { d } e } f g h i { } j", " ")
	r, _ := run(t, 3, input...)

	var got []string
	for _, b := range r.batches {
		got = append(got, b...)
	}
	var want []string
	for _, l := range input {
		if l != "{" && l != "}" {
			want = append(want, l)
		}
	}
	assert.Equal(t, want, got)
}

func TestStop_IdempotentAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	r1 := &batchRecorder{err: boom}
	r2 := &batchRecorder{}
	acc, err := New(2, r1, r2)
	require.NoError(t, err)

	acc.ProcessCommand(command.New("a"))
	err = acc.Stop()
	assert.ErrorIs(t, err, boom)
	assert.True(t, r2.stopped, "later dependents are still stopped")
	assert.Equal(t, [][]string{{"a"}}, r2.batches)

	assert.NoError(t, acc.Stop())
	assert.Len(t, r2.batches, 1)
}

func TestBatchesAreIndependentCopies(t *testing.T) {
	var got []command.Batch
	rec := &funcProcessor{fn: func(b command.Batch) { got = append(got, b) }}
	acc, err := New(1, rec)
	require.NoError(t, err)

	acc.ProcessCommand(command.New("first"))
	acc.ProcessCommand(command.New("second"))

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Commands[0].Text)
	assert.Equal(t, "second", got[1].Commands[0].Text)
}

type funcProcessor struct {
	stage.Nop
	fn func(command.Batch)
}

func (f *funcProcessor) ProcessBatch(b command.Batch) { f.fn(b) }
