package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loykin/bulkmt/internal/command"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Store records flushed batches and their commands.
type Store interface {
	// Append stores batch b flushed by sink as its seq-th batch and returns the row id.
	Append(sink string, seq int, b command.Batch) (int64, error)

	// Recent returns up to limit batches, newest first.
	Recent(limit int) ([]Entry, error)

	// Commands returns the command texts of a stored batch in order.
	Commands(batchID int64) ([]string, error)

	// Count returns the number of batches stored for sink.
	Count(sink string) (int, error)

	// Close closes the store and releases any resources
	Close() error
}

// Entry is one stored batch.
type Entry struct {
	ID        int64
	Sink      string
	Seq       int
	Timestamp time.Time
	Size      int
	Rendered  string
}

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the journal at dbPath and applies migrations.
func NewSQLiteStore(dbPath string) (Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := ensureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	// Several workers may share one journal file.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	InitMigrations()

	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}

	goose.SetTableName("bulkmt_db_version")

	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Append(sink string, seq int, b command.Batch) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO batches (sink, seq, ts, size, rendered) VALUES (?, ?, ?, ?, ?)`,
		sink, seq, b.Timestamp.Unix(), b.Len(), b.Render())
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read batch id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO commands (batch_id, pos, text, ts) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare command insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, c := range b.Commands {
		if _, err := stmt.Exec(id, i, c.Text, c.Timestamp.UnixNano()); err != nil {
			return 0, fmt.Errorf("failed to insert command: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return id, nil
}

func (s *sqliteStore) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT id, sink, seq, ts, size, rendered FROM batches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Sink, &e.Seq, &ts, &e.Size, &e.Rendered); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Commands(batchID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT text FROM commands WHERE batch_id = ? ORDER BY pos`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Count(sink string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM batches WHERE sink = ?`, sink).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// ensureDir makes sure a directory exists
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
