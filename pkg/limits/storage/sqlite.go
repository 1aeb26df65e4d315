package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend persists limiter snapshots in a SQLite database, one row
// per tenant. Suitable for single-instance deployments; SQLite's single
// writer is not a constraint because Save replaces the whole snapshot in
// one transaction.
type SQLiteBackend struct {
	db        *sql.DB
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewSQLiteBackend opens (and if necessary initializes) the database at
// dbPath. WAL mode keeps reads cheap while a save is in flight.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	const schema = `
CREATE TABLE IF NOT EXISTS rate_windows (
	tenant_id  TEXT PRIMARY KEY,
	stamps     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Save replaces the persisted snapshot in a single transaction.
func (s *SQLiteBackend) Save(ctx context.Context, snap map[string][]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_windows`); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	now := time.Now().Unix()
	for tenantID, stamps := range snap {
		encoded, err := json.Marshal(stamps)
		if err != nil {
			return fmt.Errorf("failed to encode stamps for %q: %w", tenantID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rate_windows (tenant_id, stamps, updated_at) VALUES (?, ?, ?)`,
			tenantID, string(encoded), now)
		if err != nil {
			return fmt.Errorf("failed to save window for %q: %w", tenantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Load returns the persisted snapshot.
func (s *SQLiteBackend) Load(ctx context.Context) (map[string][]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT tenant_id, stamps FROM rate_windows`)
	if err != nil {
		return nil, fmt.Errorf("failed to query windows: %w", err)
	}
	defer rows.Close()

	snap := make(map[string][]time.Time)
	for rows.Next() {
		var tenantID, encoded string
		if err := rows.Scan(&tenantID, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan window row: %w", err)
		}
		var stamps []time.Time
		if err := json.Unmarshal([]byte(encoded), &stamps); err != nil {
			return nil, fmt.Errorf("failed to decode stamps for %q: %w", tenantID, err)
		}
		snap[tenantID] = stamps
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read window rows: %w", err)
	}
	return snap, nil
}

// Close closes the database. Safe to call more than once.
func (s *SQLiteBackend) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
