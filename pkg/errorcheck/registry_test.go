package errorcheck

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type recordingPersister struct {
	mu    sync.Mutex
	saves [][]PolicyEntry
	err   error
}

func (p *recordingPersister) Save(_ context.Context, entries []PolicyEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, entries)
	return p.err
}

func newABCRegistry(t *testing.T, persister Persister) *Registry {
	t.Helper()
	r := NewRegistry(persister, nil)
	for _, e := range []CatalogEntry{{"A", Never}, {"B", WithAnarchy}, {"C", Always}} {
		if err := r.Register(e.Category, e.DefaultPolicy); err != nil {
			t.Fatalf("Register(%s) error = %v", e.Category, err)
		}
	}
	return r
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(nil, nil)

	if r.Len() != len(Catalog) {
		t.Fatalf("Len() = %d, want %d", r.Len(), len(Catalog))
	}

	for i, check := range r.All() {
		if check.Index != i {
			t.Errorf("record %s index = %d, want %d", check.Category, check.Index, i)
		}
		if check.Category != Catalog[i].Category {
			t.Errorf("record %d category = %s, want %s", i, check.Category, Catalog[i].Category)
		}
		if check.Policy == Always {
			t.Errorf("default policy for %s is Always", check.Category)
		}
		if check.LocaleKey == "" {
			t.Errorf("record %s has empty locale key", check.Category)
		}
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := newABCRegistry(t, nil)

	err := r.Register("A", Always)
	if !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("Register(duplicate) error = %v, want ErrDuplicateCategory", err)
	}
	if p, _ := r.Policy("A"); p != Never {
		t.Errorf("Policy(A) = %s after duplicate register, want Never", p)
	}
}

func TestRegistry_SetPolicy(t *testing.T) {
	persister := &recordingPersister{}
	r := newABCRegistry(t, persister)
	ctx := context.Background()

	if err := r.SetPolicy(ctx, "A", Always); err != nil {
		t.Fatalf("SetPolicy() error = %v", err)
	}

	p, err := r.Policy("A")
	if err != nil {
		t.Fatalf("Policy() error = %v", err)
	}
	if p != Always {
		t.Errorf("Policy(A) = %s, want Always", p)
	}
	if len(persister.saves) != 1 {
		t.Fatalf("persisted %d times, want 1", len(persister.saves))
	}
	if got := persister.saves[0][0]; got.Index != 0 || got.Policy != Always {
		t.Errorf("persisted entry = %+v, want {0 Always}", got)
	}

	// Setting the same value again is not persisted.
	if err := r.SetPolicy(ctx, "A", Always); err != nil {
		t.Fatalf("SetPolicy() error = %v", err)
	}
	if len(persister.saves) != 1 {
		t.Errorf("persisted %d times after no-op set, want 1", len(persister.saves))
	}
}

func TestRegistry_SetPolicy_Unknown(t *testing.T) {
	r := newABCRegistry(t, nil)

	err := r.SetPolicy(context.Background(), "Z", Always)
	if !errors.Is(err, ErrUnknownErrorCategory) {
		t.Fatalf("SetPolicy(Z) error = %v, want ErrUnknownErrorCategory", err)
	}

	var regErr *RegistryError
	if !errors.As(err, &regErr) {
		t.Fatalf("error type = %T, want *RegistryError", err)
	}
	if regErr.Category != "Z" {
		t.Errorf("RegistryError.Category = %q, want Z", regErr.Category)
	}

	if _, err := r.Policy("Z"); !errors.Is(err, ErrUnknownErrorCategory) {
		t.Errorf("Policy(Z) error = %v, want ErrUnknownErrorCategory", err)
	}
}

func TestRegistry_SetPolicyByIndex_OutOfRange(t *testing.T) {
	r := newABCRegistry(t, nil)
	before := r.Entries()

	for _, p := range []DisablePolicy{Always, DisablePolicy(9)} {
		err := r.SetPolicyByIndex(context.Background(), 5, p)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("SetPolicyByIndex(5, %d) error = %v, want ErrIndexOutOfRange", int(p), err)
		}
	}

	after := r.Entries()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("entry %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestRegistry_SetPolicy_InvalidPolicy(t *testing.T) {
	r := newABCRegistry(t, nil)

	err := r.SetPolicy(context.Background(), "A", DisablePolicy(7))
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("SetPolicy(7) error = %v, want ErrInvalidPolicy", err)
	}
}

func TestRegistry_PersistError(t *testing.T) {
	persister := &recordingPersister{err: errors.New("disk full")}
	r := newABCRegistry(t, persister)

	err := r.SetPolicy(context.Background(), "B", Never)
	if err == nil {
		t.Fatal("SetPolicy() error = nil, want persist error")
	}
	// The in-memory change stands even if persistence failed.
	if p, _ := r.Policy("B"); p != Never {
		t.Errorf("Policy(B) = %s, want Never", p)
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := newABCRegistry(t, nil)
	snap := r.Snapshot()

	if err := r.SetPolicy(context.Background(), "A", Always); err != nil {
		t.Fatalf("SetPolicy() error = %v", err)
	}

	if snap.Disables("A", true) {
		t.Error("old snapshot observed a later SetPolicy")
	}
	if !r.Snapshot().Disables("A", false) {
		t.Error("new snapshot does not observe SetPolicy")
	}
}

func TestRegistry_ApplyEntries(t *testing.T) {
	r := newABCRegistry(t, nil)
	if err := r.SetPolicy(context.Background(), "B", Always); err != nil {
		t.Fatalf("SetPolicy() error = %v", err)
	}

	r.ApplyEntries([]PolicyEntry{
		{Index: 0, Policy: WithAnarchy},
		{Index: 42, Policy: Always},
		{Index: -1, Policy: Always},
		{Index: 2, Policy: DisablePolicy(9)},
	})

	want := []DisablePolicy{WithAnarchy, WithAnarchy, Always}
	for i, check := range r.All() {
		if check.Policy != want[i] {
			t.Errorf("record %s policy = %s, want %s", check.Category, check.Policy, want[i])
		}
	}
}

func TestSnapshot_DisabledSet(t *testing.T) {
	r := newABCRegistry(t, nil)
	snap := r.Snapshot()

	tests := []struct {
		name    string
		anarchy bool
		want    []Category
	}{
		{"anarchy off", false, []Category{"C"}},
		{"anarchy on", true, []Category{"B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snap.DisabledSet(tt.anarchy)
			if len(got) != len(tt.want) {
				t.Fatalf("DisabledSet() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("DisabledSet()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DisablePolicy
		wantErr bool
	}{
		{"Never", Never, false},
		{"withanarchy", WithAnarchy, false},
		{"with-anarchy", WithAnarchy, false},
		{"ALWAYS", Always, false},
		{"2", Always, false},
		{"sometimes", Never, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePolicy(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewDefaultRegistry(nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.SetPolicyByIndex(ctx, i%r.Len(), DisablePolicy(i%3))
		}(i)
		go func() {
			defer wg.Done()
			snap := r.Snapshot()
			_ = snap.DisabledSet(true)
		}()
	}
	wg.Wait()

	if r.Len() != len(Catalog) {
		t.Errorf("Len() = %d after concurrent access, want %d", r.Len(), len(Catalog))
	}
}

func TestRegistry_ConcurrentSetPersistsLatest(t *testing.T) {
	p := &recordingPersister{}
	r := NewDefaultRegistry(p, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.SetPolicyByIndex(ctx, i%r.Len(), DisablePolicy((i+1)%3))
		}(i)
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) == 0 {
		t.Fatal("no saves recorded")
	}
	if last := p.saves[len(p.saves)-1]; !reflect.DeepEqual(last, r.Entries()) {
		t.Errorf("last save = %v, want current table %v", last, r.Entries())
	}
}
