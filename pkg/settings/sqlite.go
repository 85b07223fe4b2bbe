package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver "sqlite"

	"skyline-hq/anarchy/pkg/config"
	"skyline-hq/anarchy/pkg/errorcheck"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS check_policies (
	idx        INTEGER PRIMARY KEY,
	policy     INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore persists entries in a SQLite table, one row per index.
type SQLiteStore struct {
	db     *sql.DB
	driver string
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	loadStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path with the
// configured driver.
func NewSQLiteStore(cfg *config.SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, newStoreError(BackendSQLite, "open", fmt.Errorf("db path cannot be empty"))
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.DefaultSQLiteDriver
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout == 0 {
		busyTimeout = config.DefaultSQLiteBusyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newStoreError(BackendSQLite, "mkdir", err)
		}
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, newStoreError(BackendSQLite, "open", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		driver: driver,
		path:   cfg.Path,
		logger: logger.With("component", "settings.sqlite", "driver", driver),
	}
	if err := s.initialize(busyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("SQLite settings store initialized", "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStore) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return newStoreError(BackendSQLite, "enable_wal", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return newStoreError(BackendSQLite, "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return newStoreError(BackendSQLite, "create_schema", err)
	}

	var err error
	s.loadStmt, err = s.db.Prepare(`SELECT idx, policy FROM check_policies ORDER BY idx`)
	if err != nil {
		return newStoreError(BackendSQLite, "prepare", err)
	}
	return nil
}

// Load returns every stored row ordered by index.
func (s *SQLiteStore) Load(ctx context.Context) ([]errorcheck.PolicyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.loadStmt.QueryContext(ctx)
	if err != nil {
		return nil, newStoreError(BackendSQLite, "load", err)
	}
	defer rows.Close()

	var entries []errorcheck.PolicyEntry
	for rows.Next() {
		var idx, policy int
		if err := rows.Scan(&idx, &policy); err != nil {
			return nil, newStoreError(BackendSQLite, "scan", err)
		}
		entries = append(entries, errorcheck.PolicyEntry{Index: idx, Policy: errorcheck.DisablePolicy(policy)})
	}
	if err := rows.Err(); err != nil {
		return nil, newStoreError(BackendSQLite, "load", err)
	}
	return entries, nil
}

// Save replaces every row in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, entries []errorcheck.PolicyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newStoreError(BackendSQLite, "begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM check_policies`); err != nil {
		return newStoreError(BackendSQLite, "clear", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO check_policies (idx, policy, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return newStoreError(BackendSQLite, "prepare", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Index, int(e.Policy), now); err != nil {
			return newStoreError(BackendSQLite, "insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return newStoreError(BackendSQLite, "commit", err)
	}
	return nil
}

// Backend returns "sqlite".
func (s *SQLiteStore) Backend() string { return BackendSQLite }

// Driver returns the database/sql driver in use.
func (s *SQLiteStore) Driver() string { return s.driver }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadStmt != nil {
		s.loadStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return newStoreError(BackendSQLite, "close", err)
	}
	return nil
}
