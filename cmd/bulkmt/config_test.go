package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/loykin/bulkmt/internal/dispatcher"
	"github.com/spf13/cobra"
)

func TestDefaultConfigAndValidate(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Prometheus.Enable {
		t.Fatal("prometheus.enable should default to false")
	}
	if cfg.Tokens.OpenToken != "{" || cfg.Tokens.CloseToken != "}" {
		t.Fatalf("default tokens = %q/%q, want {/}", cfg.Tokens.OpenToken, cfg.Tokens.CloseToken)
	}

	// classic topology: one console sink and two report workers
	if len(cfg.Groups) != 2 {
		t.Fatalf("default groups = %d, want 2", len(cfg.Groups))
	}
	if g := cfg.Groups[0]; g.Name != "log" || g.Type != "console" || g.Workers != 1 {
		t.Fatalf("unexpected log group: %+v", g)
	}
	if g := cfg.Groups[1]; g.Name != "file" || g.Type != "report" || g.Workers != 2 || g.Mode != dispatcher.ModeRoundRobin {
		t.Fatalf("unexpected file group: %+v", g)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got error: %v", err)
	}
}

func TestValidate_Groups(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups[0].Type = "does-not-exist"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid group type, got nil")
	}

	cfg = DefaultConfig()
	cfg.Groups[1].Report.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when report.dir is empty")
	}

	cfg = DefaultConfig()
	cfg.Groups[1].Name = "log"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate group names")
	}

	cfg = DefaultConfig()
	cfg.Groups = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without groups")
	}

	cfg = DefaultConfig()
	cfg.Groups[1].Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero workers")
	}

	cfg = DefaultConfig()
	cfg.Tokens.CloseToken = cfg.Tokens.OpenToken
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for identical tokens")
	}

	cfg = DefaultConfig()
	cfg.Log.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}

	cfg = DefaultConfig()
	cfg.Prometheus.Enable = true
	cfg.Prometheus.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when prometheus is enabled without addr")
	}
}

func TestGroupConfig_ApplyDefaults(t *testing.T) {
	g := GroupConfig{Type: "rotate"}
	g.Name = "archive"
	g.applyDefaults()

	if g.Workers != 1 || g.Mode != dispatcher.ModeRoundRobin || g.RetryInterval <= 0 {
		t.Fatalf("dispatcher defaults not applied: %+v", g.Config)
	}
	if g.Rotate.Dir != "." || g.Rotate.MaxSizeMB != 100 {
		t.Fatalf("rotate defaults not applied: %+v", g.Rotate)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromViper_WithEnvConfigAndFlags(t *testing.T) {
	cfg := DefaultConfig()
	cmd := &cobra.Command{Use: "bulkmt-test"}
	cfg.SetupFlags(cmd)

	candidates := []string{
		filepath.Join(".", "config", "config.toml"),
		filepath.Join("..", "config", "config.toml"),
		filepath.Join("..", "..", "config", "config.toml"),
	}
	var configPath string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			configPath = p
			break
		}
	}
	if configPath == "" {
		t.Fatalf("missing test config file: tried %v", candidates)
	}

	t.Setenv("BULKMT_CONFIG", configPath)
	t.Setenv("BULKMT_LOG_LEVEL", "debug")

	if err := cmd.Flags().Set("prometheus.enable", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := cmd.Flags().Set("prometheus.addr", "127.0.0.1:0"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	customExcludes := []string{"debug", "trace"}
	if err := cmd.Flags().Set("input.exclude", customExcludes[0]+","+customExcludes[1]); err != nil {
		t.Fatalf("set exclude flag: %v", err)
	}
	if err := cmd.Flags().Set("tokens.open-token", "BEGIN"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	if err := cfg.LoadFromViper(cmd); err != nil {
		t.Fatalf("LoadFromViper failed: %v", err)
	}

	// Flags should take precedence over file
	if !cfg.Prometheus.Enable {
		t.Fatal("prometheus.enable should be true from flag override")
	}
	if got := cfg.Prometheus.Addr; got != "127.0.0.1:0" {
		t.Fatalf("prometheus.addr = %q, want 127.0.0.1:0", got)
	}
	if !reflect.DeepEqual(cfg.Input.Exclude, customExcludes) {
		t.Fatalf("input.exclude = %#v, want %#v (flags override file)", cfg.Input.Exclude, customExcludes)
	}
	if cfg.Tokens.OpenToken != "BEGIN" || cfg.Tokens.CloseToken != "}" {
		t.Fatalf("tokens = %q/%q, want BEGIN/}", cfg.Tokens.OpenToken, cfg.Tokens.CloseToken)
	}

	// Env should take precedence over file
	if cfg.Log.Level != "debug" {
		t.Fatalf("log.level = %q, want debug from env", cfg.Log.Level)
	}

	// Groups come from the file
	if len(cfg.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(cfg.Groups))
	}
	if g := cfg.Groups[1]; g.Name != "file" || g.Retries != 2 || g.Report.Dir != "." {
		t.Fatalf("unexpected file group from config: %+v", g)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed after LoadFromViper: %v", err)
	}
}

func TestLoadFromViper_GroupsReplaceDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "one.toml")
	content := "[[groups]]\nname = \"archive\"\ntype = \"rotate\"\n  [groups.rotate]\n  dir = \"" + filepath.ToSlash(dir) + "\"\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cmd := &cobra.Command{Use: "bulkmt-test"}
	cfg.SetupFlags(cmd)
	if err := cmd.Flags().Set("config", p); err != nil {
		t.Fatal(err)
	}
	if err := cfg.LoadFromViper(cmd); err != nil {
		t.Fatalf("LoadFromViper failed: %v", err)
	}

	if len(cfg.Groups) != 1 {
		t.Fatalf("groups = %d, want only the configured one", len(cfg.Groups))
	}
	g := cfg.Groups[0]
	if g.Name != "archive" || g.Workers != 1 || g.Rotate.MaxSizeMB != 100 {
		t.Fatalf("unexpected group: %+v", g)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
