package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loykin/bulkmt/internal/sink/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBulkSize(t *testing.T) {
	n, err := parseBulkSize("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"0", "-1", "abc", "", "1.5"} {
		_, err := parseBulkSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestRootCmd_InvalidArgs(t *testing.T) {
	for _, args := range [][]string{{}, {"0"}, {"x"}, {"1", "2"}} {
		cmd := newRootCmd(strings.NewReader(""))
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		assert.Error(t, cmd.Execute(), "%v", args)
	}
}

func writeReportConfig(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "bulkmt.toml")
	content := `[[groups]]
name = "file"
type = "report"
workers = 2
  [groups.report]
  dir = "` + filepath.ToSlash(filepath.Join(dir, "out")) + `"
`
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRootCmd_RunsPipeline(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeReportConfig(t, dir)
	in := "a\nb\n{\nc\nd\n}\ne\nf\ng\n"

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(in))
	cmd.SetArgs([]string{"2", "--config", cfgPath, "--log.level", "error"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Equal(t,
		"main: 9 lines, 4 blocks, 7 commands\n"+
			"file1: 2 blocks, 4 commands\n"+
			"file2: 2 blocks, 3 commands\n",
		out.String())

	files, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	var contents []string
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(dir, "out", f.Name()))
		require.NoError(t, err)
		contents = append(contents, string(b))
	}
	assert.ElementsMatch(t, []string{"bulk: a, b\n", "bulk: c, d\n", "bulk: e, f\n", "bulk: g\n"}, contents)
}

func TestRootCmd_InputFileAndFilters(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeReportConfig(t, dir)
	inPath := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(inPath, []byte("cmd1\nnoise\n{\ncmd2\n}\n"), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""))
	cmd.SetArgs([]string{"5", "--config", cfgPath, "--input.path", inPath, "--input.exclude", "noise", "--log.level", "error"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(out.String(), "main: 4 lines, 2 blocks, 2 commands\n"), out.String())
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	cmd := newRootCmd(strings.NewReader(""))
	cmd.SetArgs([]string{"2", "--log.level", "loud"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestJournalCmd_ListsBatches(t *testing.T) {
	p := filepath.Join(t.TempDir(), "journal.db")
	s, err := journal.New("journal", journal.Config{Path: p})
	require.NoError(t, err)
	require.NoError(t, s.ProcessBatch(testBatch("a", "b")))
	require.NoError(t, s.ProcessBatch(testBatch("c")))
	require.NoError(t, s.Close())

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""))
	cmd.SetArgs([]string{"journal", "--path", p, "--limit", "1"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "SINK")
	assert.Contains(t, got, "bulk: c")
	assert.NotContains(t, got, "bulk: a, b")
}

func TestPrintEntries(t *testing.T) {
	var out bytes.Buffer
	err := printEntries(&out, []journal.Entry{{ID: 7, Sink: "j", Seq: 2, Size: 1, Timestamp: time.Unix(0, 0).UTC(), Rendered: "bulk: x"}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "bulk: x")
	assert.Contains(t, out.String(), "7")
}
