// v0
// internal/sink/sqlite.go
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// SQLiteSink keeps one table per collection.
type SQLiteSink struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		path = "footfall.db"
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

// Table returns the table backing collection.
func (s *SQLiteSink) Table(collection string) string {
	return "series_" + safeName(collection)
}

func (s *SQLiteSink) Write(ctx context.Context, b Batch) error {
	if err := b.validate(); err != nil {
		return err
	}
	entries, err := encode(b)
	if err != nil {
		return err
	}
	table := s.Table(b.Collection)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		epoch_ms INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		doc TEXT NOT NULL
	)`, table)
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (epoch_ms)`, table+"_epoch", table)); err != nil {
		return fmt.Errorf("index %s: %w", table, err)
	}
	if !b.Update {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (epoch_ms, run_id, doc) VALUES (?, ?, ?)`, table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.at.UnixMilli(), b.RunID, string(e.raw)); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of rows stored for collection.
func (s *SQLiteSink) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, s.Table(collection))).Scan(&n)
	return n, err
}

func (s *SQLiteSink) Close() error { return s.db.Close() }
