package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"skyline-hq/anarchy/pkg/config"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/telemetry/logging"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

var sampleEntries = []errorcheck.PolicyEntry{
	{Index: 0, Policy: errorcheck.Never},
	{Index: 2, Policy: errorcheck.Always},
	{Index: 5, Policy: errorcheck.WithAnarchy},
}

func openSQLite(t *testing.T, driver string) Store {
	t.Helper()
	s, err := NewSQLiteStore(&config.SQLiteConfig{
		Path:   filepath.Join(t.TempDir(), "data", "anarchy.db"),
		Driver: driver,
	}, logging.Discard())
	if err != nil {
		if driver == "sqlite3" {
			// The cgo driver is a stub when built with CGO_ENABLED=0.
			t.Logf("sqlite3 driver unavailable: %v", err)
			return nil
		}
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory":  NewMemoryStore(),
		"file":    NewFileStore(filepath.Join(t.TempDir(), "nested", "settings.yaml"), logging.Discard()),
		"sqlite":  openSQLite(t, "sqlite"),
		"sqlite3": openSQLite(t, "sqlite3"),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if s == nil {
				t.Skip("backend unavailable")
			}
			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load() on empty store error = %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("Load() on empty store = %v", got)
			}

			if err := s.Save(ctx, sampleEntries); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err = s.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, sampleEntries) {
				t.Errorf("Load() = %v, want %v", got, sampleEntries)
			}

			// A second save replaces rather than merges.
			if err := s.Save(ctx, sampleEntries[:1]); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, _ = s.Load(ctx)
			if len(got) != 1 {
				t.Errorf("Load() after replace = %v, want 1 entry", got)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.SettingsConfig
		backend string
		wantErr error
	}{
		{name: "memory", cfg: config.SettingsConfig{Backend: "memory"}, backend: BackendMemory},
		{name: "file", cfg: config.SettingsConfig{Backend: "file", FilePath: filepath.Join(dir, "s.yaml")}, backend: BackendFile},
		{
			name:    "sqlite",
			cfg:     config.SettingsConfig{Backend: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "s.db")}},
			backend: BackendSQLite,
		},
		{name: "unknown", cfg: config.SettingsConfig{Backend: "etcd"}, wantErr: ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(&tt.cfg, logging.Discard())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer s.Close()
			if s.Backend() != tt.backend {
				t.Errorf("Backend() = %q, want %q", s.Backend(), tt.backend)
			}
		})
	}
}

func TestRestore_UnknownAndMissingIndices(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Save(ctx, []errorcheck.PolicyEntry{
		{Index: 0, Policy: errorcheck.Always},
		{Index: 999, Policy: errorcheck.Always},
	})

	registry := errorcheck.NewDefaultRegistry(nil, logging.Discard())
	_ = registry.SetPolicyByIndex(ctx, 1, errorcheck.Always)

	if err := Restore(ctx, store, registry); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	checks := registry.All()
	if checks[0].Policy != errorcheck.Always {
		t.Errorf("index 0 policy = %v, want Always", checks[0].Policy)
	}
	if checks[1].Policy != checks[1].DefaultPolicy {
		t.Errorf("index 1 policy = %v, want default %v", checks[1].Policy, checks[1].DefaultPolicy)
	}
}

func TestRegistry_PersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewFileStore(path, logging.Discard())

	registry := errorcheck.NewDefaultRegistry(store, logging.Discard())
	if err := registry.SetPolicy(ctx, errorcheck.InWater, errorcheck.Always); err != nil {
		t.Fatalf("SetPolicy() error = %v", err)
	}

	fresh := errorcheck.NewDefaultRegistry(nil, logging.Discard())
	if err := Restore(ctx, store, fresh); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if p, _ := fresh.Policy(errorcheck.InWater); p != errorcheck.Always {
		t.Errorf("restored policy = %v, want Always", p)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "policy: Always") {
		t.Errorf("settings file does not name policies:\n%s", data)
	}
}

func TestFileStore_Load_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "checks: [\n"},
		{name: "bad policy", content: "checks:\n  - index: 0\n    policy: sometimes\n"},
		{name: "future version", content: "version: 9\nchecks: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewFileStore(path, logging.Discard()).Load(context.Background())
			var se *StoreError
			if !errors.As(err, &se) || se.Backend != BackendFile {
				t.Errorf("Load() error = %v, want file StoreError", err)
			}
		})
	}
}

func TestInstrument_RecordsSaves(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, reg)
	store := Instrument(NewMemoryStore(), m)

	_ = store.Save(context.Background(), sampleEntries)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = store.Save(ctx, sampleEntries)

	want := `
# HELP anarchy_settings_saves_total Total number of policy table saves
# TYPE anarchy_settings_saves_total counter
anarchy_settings_saves_total{backend="memory",result="error"} 1
anarchy_settings_saves_total{backend="memory",result="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "anarchy_settings_saves_total"); err != nil {
		t.Errorf("save metrics mismatch: %v", err)
	}

	if Instrument(NewMemoryStore(), nil).Backend() != BackendMemory {
		t.Error("Instrument with nil collector changed the store")
	}
}

func TestWatcher_ReloadStagesUntilApplied(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store := NewFileStore(path, logging.Discard())
	registry := errorcheck.NewDefaultRegistry(nil, logging.Discard())

	w, err := NewWatcher(store, 10*time.Millisecond, nil, logging.Discard())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	_ = store.Save(ctx, []errorcheck.PolicyEntry{{Index: 0, Policy: errorcheck.Always}})
	if err := w.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if !w.Pending() {
		t.Fatal("Pending() = false after reload")
	}
	if registry.All()[0].Policy == errorcheck.Always {
		t.Fatal("entries applied before ApplyPending")
	}
	if !w.ApplyPending(registry) {
		t.Error("ApplyPending() = false, want table changed")
	}
	if registry.All()[0].Policy != errorcheck.Always {
		t.Error("staged entries not applied")
	}
	if w.Pending() || w.ApplyPending(registry) {
		t.Error("staged entries applied twice")
	}
}

func TestWatcher_Watch_PicksUpExternalEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	store := NewFileStore(path, logging.Discard())
	registry := errorcheck.NewDefaultRegistry(nil, logging.Discard())

	w, err := NewWatcher(store, 10*time.Millisecond, nil, logging.Discard())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Watch(ctx) }()

	select {
	case <-w.Started():
	case err := <-errCh:
		t.Fatalf("Watch() error = %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not start")
	}

	// An unrelated file in the same directory is ignored.
	_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644)

	content := "version: 1\nchecks:\n  - index: 1\n    policy: Always\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !w.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("edit not staged")
		}
		time.Sleep(10 * time.Millisecond)
	}
	w.ApplyPending(registry)
	if registry.All()[1].Policy != errorcheck.Always {
		t.Errorf("index 1 policy = %v, want Always", registry.All()[1].Policy)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	calls := make(chan int, 10)
	for i := 0; i < 5; i++ {
		n := i
		d.Trigger(func() { calls <- n })
	}

	select {
	case n := <-calls:
		if n != 4 {
			t.Errorf("callback %d ran, want the last one", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}

	select {
	case n := <-calls:
		t.Errorf("extra callback %d ran", n)
	case <-time.After(60 * time.Millisecond):
	}
}
