package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"skyline-hq/anarchy/pkg/config"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown settings backend")

// StoreError describes a failed store operation.
type StoreError struct {
	Backend string
	Op      string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("settings %s %s: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

func newStoreError(backend, op string, err error) error {
	return &StoreError{Backend: backend, Op: op, Cause: err}
}

// Store persists the user policy table as flat (index, policy) pairs.
// Every Store satisfies errorcheck.Persister.
type Store interface {
	// Load returns the persisted entries. A store that has never been saved
	// returns no entries and no error.
	Load(ctx context.Context) ([]errorcheck.PolicyEntry, error)

	// Save replaces the persisted entries.
	Save(ctx context.Context, entries []errorcheck.PolicyEntry) error

	// Backend returns the backend name.
	Backend() string

	// Close releases resources held by the store.
	Close() error
}

// Open creates the store selected by cfg.
func Open(cfg *config.SettingsConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return NewFileStore(cfg.FilePath, logger), nil
	case BackendSQLite:
		return NewSQLiteStore(&cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Restore loads the persisted entries from store into registry. Unknown
// indices are ignored and missing indices take the catalog default.
func Restore(ctx context.Context, store Store, registry *errorcheck.Registry) error {
	entries, err := store.Load(ctx)
	if err != nil {
		return err
	}
	registry.ApplyEntries(entries)
	return nil
}

// instrumented records save outcomes for a store.
type instrumented struct {
	Store
	metrics *metrics.Collector
}

// Instrument wraps store so every Save is counted. A nil collector returns
// store unchanged.
func Instrument(store Store, m *metrics.Collector) Store {
	if m == nil {
		return store
	}
	return &instrumented{Store: store, metrics: m}
}

func (s *instrumented) Save(ctx context.Context, entries []errorcheck.PolicyEntry) error {
	err := s.Store.Save(ctx, entries)
	s.metrics.RecordSave(s.Store.Backend(), err)
	return err
}

func cloneEntries(entries []errorcheck.PolicyEntry) []errorcheck.PolicyEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]errorcheck.PolicyEntry, len(entries))
	copy(out, entries)
	return out
}
