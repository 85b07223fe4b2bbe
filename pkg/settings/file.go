package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"skyline-hq/anarchy/pkg/errorcheck"
)

// fileVersion is the document version written by FileStore.
const fileVersion = 1

// document is the on-disk YAML layout.
type document struct {
	Version int                      `yaml:"version"`
	Checks  []errorcheck.PolicyEntry `yaml:"checks"`
}

// FileStore persists entries as a YAML document. Writes go to a temporary
// file in the same directory and are renamed into place.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger.With("component", "settings.file", "path", path),
	}
}

// Path returns the settings file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the settings file. A missing file yields no entries.
func (s *FileStore) Load(_ context.Context) ([]errorcheck.PolicyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, newStoreError(BackendFile, "read", err)
	}
	return decodeDocument(data)
}

func decodeDocument(data []byte) ([]errorcheck.PolicyEntry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newStoreError(BackendFile, "parse", err)
	}
	if doc.Version > fileVersion {
		return nil, newStoreError(BackendFile, "parse",
			fmt.Errorf("unsupported settings version %d", doc.Version))
	}
	return doc.Checks, nil
}

// Save writes entries atomically.
func (s *FileStore) Save(ctx context.Context, entries []errorcheck.PolicyEntry) error {
	if err := ctx.Err(); err != nil {
		return newStoreError(BackendFile, "save", err)
	}

	data, err := yaml.Marshal(document{Version: fileVersion, Checks: entries})
	if err != nil {
		return newStoreError(BackendFile, "encode", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newStoreError(BackendFile, "mkdir", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return newStoreError(BackendFile, "create", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return newStoreError(BackendFile, "write", err)
	}
	if err := tmp.Close(); err != nil {
		return newStoreError(BackendFile, "write", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return newStoreError(BackendFile, "rename", err)
	}

	s.logger.Debug("settings saved", "entries", len(entries))
	return nil
}

// Backend returns "file".
func (s *FileStore) Backend() string { return BackendFile }

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
