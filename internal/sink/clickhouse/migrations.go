package clickhouse

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ReadEmbeddedMigration exposes embedded migration content for testing purposes.
func ReadEmbeddedMigration(name string) (string, error) {
	b, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// renderMigrations writes the embedded migrations into dir with the table name injected.
func renderMigrations(dir, fullTable string) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		b, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		content := strings.ReplaceAll(string(b), "__TABLE_FULL__", fullTable)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// runMigrations injects the configured table into embedded SQL and applies it via goose.
func runMigrations(opts *ch.Options, fullTable string) error {
	db := ch.OpenDB(opts)
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return err
	}
	if err := goose.SetDialect("clickhouse"); err != nil {
		return err
	}
	// migrations are rendered to disk, not read from another package's embedded FS
	goose.SetBaseFS(nil)
	goose.SetTableName("bulkmt_db_version")

	tmpDir, err := os.MkdirTemp("", "bulkmt_ch_mig_*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	if err := renderMigrations(tmpDir, fullTable); err != nil {
		return err
	}
	if err := goose.Up(db, tmpDir); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}
