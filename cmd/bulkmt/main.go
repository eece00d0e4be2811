package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/loykin/bulkmt/internal/metrics"
	"github.com/loykin/bulkmt/internal/pipeline"
	"github.com/loykin/bulkmt/internal/sink/journal"
	"github.com/loykin/bulkmt/internal/source"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdin).Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// parseBulkSize accepts only positive integers.
func parseBulkSize(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bulk size must be a positive integer, got %q", arg)
	}
	return n, nil
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	config := DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "bulkmt <bulk-size>",
		Short: "Groups commands into batches and fans them out to sinks",
		Long: `bulkmt reads one command per line and groups them into batches of <bulk-size>.
Lines "{" and "}" open and close a block: every command inside a block lands in one
batch regardless of size. Each batch is written concurrently to every sink group.

Examples:
  # Batches of 3 from stdin, printed and written to report files
  seq 1 10 | bulkmt 3

  # Follow a growing file until interrupted
  bulkmt 5 --input.path ./commands.log --input.follow

  # Custom block tokens and sink groups from a config file
  bulkmt 10 --config ./config/config.toml --tokens.open-token BEGIN --tokens.close-token END`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one argument <bulk-size>, got %d", len(args))
			}
			_, err := parseBulkSize(args[0])
			return err
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadFromViper(cmd); err != nil {
				return err
			}
			return config.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			bulkSize, _ := parseBulkSize(args[0])
			return runPipeline(cmd.Context(), config, bulkSize, stdin, cmd.OutOrStdout())
		},
	}

	config.SetupFlags(rootCmd)
	rootCmd.AddCommand(newJournalCmd())
	return rootCmd
}

func setupLogger(cfg LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// runPipeline returns only startup errors. Errors raised while the pipeline
// runs are logged and the run still ends with its counters report.
func runPipeline(ctx context.Context, config *Config, bulkSize int, stdin io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	setupLogger(config.Log)

	// Optionally start Prometheus metrics endpoint
	var metricsStop = func() error { return nil }
	if config.Prometheus.Enable {
		// Register our metrics explicitly to the default registry to avoid library init-time side effects
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("failed to register prometheus metrics: %w", err)
		}
		metricsServer, err := metrics.Start(config.Prometheus.Addr)
		if err != nil {
			return fmt.Errorf("failed to start prometheus endpoint: %w", err)
		}
		metricsStop = metricsServer.Stop
	}
	defer func() { _ = metricsStop() }()

	src, err := source.Open(config.Input, stdin, config.Tokens.OpenToken, config.Tokens.CloseToken)
	if err != nil {
		return err
	}

	groups, err := buildGroups(config)
	if err != nil {
		_ = src.Close()
		return err
	}
	p, err := pipeline.New(pipeline.Config{BulkSize: bulkSize, Classifier: config.Tokens, Groups: groups})
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("error creating pipeline: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx, src); err != nil {
		slog.Error("pipeline finished with errors", "error", err)
	}
	if err := p.Report(out); err != nil {
		slog.Error("failed to write report", "error", err)
	}
	return nil
}

func newJournalCmd() *cobra.Command {
	var (
		path  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List the most recent batches recorded by a journal sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := journal.NewSQLiteStore(path)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			entries, err := st.Recent(limit)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&path, "path", "bulkmt.db", "Path to the journal SQLite DB")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to list")
	return cmd
}

func printEntries(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTIME\tSINK\tSEQ\tSIZE\tBATCH")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			e.ID, e.Timestamp.Format(time.RFC3339), e.Sink, e.Seq, e.Size, e.Rendered)
	}
	return tw.Flush()
}
