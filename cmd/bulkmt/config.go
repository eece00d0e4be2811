package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/loykin/bulkmt/internal/classifier"
	"github.com/loykin/bulkmt/internal/dispatcher"
	"github.com/loykin/bulkmt/internal/sink/clickhouse"
	"github.com/loykin/bulkmt/internal/sink/console"
	"github.com/loykin/bulkmt/internal/sink/journal"
	"github.com/loykin/bulkmt/internal/sink/opensearch"
	"github.com/loykin/bulkmt/internal/sink/report"
	"github.com/loykin/bulkmt/internal/sink/rotate"
	"github.com/loykin/bulkmt/internal/source"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GroupConfig describes one sink group: its dispatcher settings and the
// backend its workers write to.
type GroupConfig struct {
	dispatcher.Config `mapstructure:",squash"`
	Type              string `mapstructure:"type"` // "console", "report", "rotate", "journal", "clickhouse", "opensearch"

	Console    console.Config    `mapstructure:"console"`
	Report     report.Config     `mapstructure:"report"`
	Rotate     rotate.Config     `mapstructure:"rotate"`
	Journal    journal.Config    `mapstructure:"journal"`
	ClickHouse clickhouse.Config `mapstructure:"clickhouse"`
	OpenSearch opensearch.Config `mapstructure:"opensearch"`
}

// applyDefaults fills settings a config file may leave out.
func (g *GroupConfig) applyDefaults() {
	if g.Workers == 0 {
		g.Workers = 1
	}
	if g.Mode == "" {
		g.Mode = dispatcher.ModeRoundRobin
	}
	if g.RetryInterval == 0 {
		g.RetryInterval = 100 * time.Millisecond
	}
	if g.Type == "rotate" && g.Rotate.MaxSizeMB == 0 {
		def := rotate.Config{}
		def.Default()
		if g.Rotate.Dir == "" {
			g.Rotate.Dir = def.Dir
		}
		g.Rotate.MaxSizeMB = def.MaxSizeMB
		if g.Rotate.MaxBackups == 0 {
			g.Rotate.MaxBackups = def.MaxBackups
		}
		if g.Rotate.MaxAgeDays == 0 {
			g.Rotate.MaxAgeDays = def.MaxAgeDays
		}
	}
}

func (g GroupConfig) Validate() error {
	if err := g.Config.Validate(); err != nil {
		return err
	}
	var err error
	switch g.Type {
	case "console":
		err = g.Console.Validate()
	case "report":
		err = g.Report.Validate()
	case "rotate":
		err = g.Rotate.Validate()
	case "journal":
		err = g.Journal.Validate()
	case "clickhouse":
		err = g.ClickHouse.Validate()
	case "opensearch":
		err = g.OpenSearch.Validate()
	default:
		return fmt.Errorf("group %s: invalid type: %q", g.Name, g.Type)
	}
	if err != nil {
		return fmt.Errorf("group %s: %w", g.Name, err)
	}
	return nil
}

// PrometheusConfig holds metrics endpoint options.
type PrometheusConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
}

// LogConfig selects the slog handler installed at startup.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// Config holds all configuration options for the bulkmt application.
type Config struct {
	// Optional config file path (flag/env only)
	ConfigFile string
	Input      source.Config     `mapstructure:"input"`
	Tokens     classifier.Config `mapstructure:"tokens"`
	Groups     []GroupConfig     `mapstructure:"groups"`
	Prometheus PrometheusConfig  `mapstructure:"prometheus"`
	Log        LogConfig         `mapstructure:"log"`
}

// LoadFromViper binds flags to viper, reads file/env, and populates the Config fields via mapstructure.
func (c *Config) LoadFromViper(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("BULKMT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// --config flag or BULKMT_CONFIG env; no auto-defaults
	if c.ConfigFile == "" {
		c.ConfigFile = v.GetString("config")
	}
	if c.ConfigFile != "" {
		v.SetConfigFile(c.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// groups from a file replace the defaults instead of merging into them
	if v.IsSet("groups") {
		c.Groups = nil
	}
	if err := v.Unmarshal(c); err != nil {
		return err
	}
	for i := range c.Groups {
		c.Groups[i].applyDefaults()
	}
	return nil
}

// DefaultConfig returns a Config with default values: a two-worker report group
// and a single console group.
func DefaultConfig() *Config {
	cfg := &Config{
		Input:      source.Default(),
		Prometheus: PrometheusConfig{Enable: false, Addr: ":2112"},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
	cfg.Tokens.Default()

	logGroup := GroupConfig{Type: "console", Console: console.Config{Stream: "stdout"}}
	logGroup.Config.Default()
	logGroup.Name = "log"

	fileGroup := GroupConfig{Type: "report", Report: report.Config{Dir: "."}}
	fileGroup.Config.Default()
	fileGroup.Name = "file"
	fileGroup.Workers = 2

	cfg.Groups = []GroupConfig{logGroup, fileGroup}
	return cfg
}

// SetupFlags adds all command line flags to the provided cobra command
func (c *Config) SetupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.ConfigFile, "config", c.ConfigFile, "Path to config file (yaml/json/toml)")

	// Input flags
	cmd.Flags().StringVarP(&c.Input.Path, "input.path", "i", c.Input.Path, "Input file; empty or - reads stdin")
	cmd.Flags().BoolVarP(&c.Input.Follow, "input.follow", "f", c.Input.Follow, "Keep reading data appended to input.path until interrupted")
	cmd.Flags().StringVar(&c.Input.Separator, "input.separator", c.Input.Separator, "Command separator (supports multi-byte like \\\"\\r\\n\\\" or tokens like <END>)")
	cmd.Flags().DurationVar(&c.Input.PollInterval, "input.poll-interval", c.Input.PollInterval, "Initial poll interval while following an idle input")
	cmd.Flags().DurationVar(&c.Input.MaxPollInterval, "input.max-poll-interval", c.Input.MaxPollInterval, "Maximum poll interval while following an idle input")
	cmd.Flags().StringSliceVarP(&c.Input.Include, "input.include", "I", c.Input.Include, "Only accept commands containing one of these substrings")
	cmd.Flags().StringSliceVarP(&c.Input.Exclude, "input.exclude", "E", c.Input.Exclude, "Drop commands containing one of these substrings")

	// Block tokens
	cmd.Flags().StringVar(&c.Tokens.OpenToken, "tokens.open-token", c.Tokens.OpenToken, "Line that opens a block")
	cmd.Flags().StringVar(&c.Tokens.CloseToken, "tokens.close-token", c.Tokens.CloseToken, "Line that closes a block")

	// Sink groups are intentionally not exposed as command-line flags.
	// Configure them via config file (--config or BULKMT_CONFIG).

	cmd.Flags().BoolVar(&c.Prometheus.Enable, "prometheus.enable", c.Prometheus.Enable, "Enable Prometheus metrics HTTP endpoint")
	cmd.Flags().StringVar(&c.Prometheus.Addr, "prometheus.addr", c.Prometheus.Addr, "Prometheus metrics listen address (e.g., :2112)")

	cmd.Flags().StringVar(&c.Log.Level, "log.level", c.Log.Level, "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&c.Log.Format, "log.format", c.Log.Format, "Log format (text or json)")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("invalid input config: %w", err)
	}
	if err := c.Tokens.Validate(); err != nil {
		return fmt.Errorf("invalid tokens config: %w", err)
	}

	if len(c.Groups) == 0 {
		return fmt.Errorf("at least one sink group must be configured")
	}
	seen := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		if err := g.Validate(); err != nil {
			return err
		}
		if _, dup := seen[g.Name]; dup {
			return fmt.Errorf("duplicate group name: %s", g.Name)
		}
		seen[g.Name] = struct{}{}
	}

	if c.Prometheus.Enable && c.Prometheus.Addr == "" {
		return fmt.Errorf("prometheus.addr must be set when prometheus.enable is true")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format: %s", c.Log.Format)
	}
	return nil
}
