package errorcheck

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Persister receives the full policy table whenever a user changes it.
type Persister interface {
	Save(ctx context.Context, entries []PolicyEntry) error
}

// Registry is the thread-safe policy table. Writes are serialized and publish
// a new immutable Snapshot; reads never block.
type Registry struct {
	mu        sync.Mutex
	current   atomic.Pointer[Snapshot]
	persister Persister
	logger    *slog.Logger

	// saveMu orders saves so the last one written is the newest table.
	saveMu sync.Mutex
}

// NewRegistry creates an empty registry. persister may be nil.
func NewRegistry(persister Persister, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		persister: persister,
		logger:    logger.With("component", "errorcheck.registry"),
	}
	r.current.Store(newSnapshot(nil))
	return r
}

// NewDefaultRegistry creates a registry populated from Catalog.
func NewDefaultRegistry(persister Persister, logger *slog.Logger) *Registry {
	r := NewRegistry(persister, logger)
	for _, entry := range Catalog {
		// Catalog has no duplicates.
		_ = r.Register(entry.Category, entry.DefaultPolicy)
	}
	return r
}

// Register appends a category with its default policy. The category receives
// the next display index.
func (r *Registry) Register(category Category, defaultPolicy DisablePolicy) error {
	if category == "" {
		return &RegistryError{Operation: "register", Index: -1, Cause: ErrUnknownErrorCategory}
	}
	if !defaultPolicy.Valid() {
		return &RegistryError{Operation: "register", Category: category, Index: -1, Cause: ErrInvalidPolicy}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	if _, ok := old.byCategory[category]; ok {
		return &RegistryError{Operation: "register", Category: category, Index: -1, Cause: ErrDuplicateCategory}
	}

	checks := old.cloneChecks()
	checks = append(checks, ErrorCheck{
		Category:      category,
		LocaleKey:     localeKey(category),
		Policy:        defaultPolicy,
		DefaultPolicy: defaultPolicy,
		Index:         len(checks),
	})
	r.current.Store(newSnapshot(checks))
	return nil
}

// Snapshot returns the current immutable view of the table.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Policy returns the active policy for a category.
func (r *Registry) Policy(category Category) (DisablePolicy, error) {
	check, ok := r.Snapshot().Get(category)
	if !ok {
		return Never, &RegistryError{Operation: "get_policy", Category: category, Index: -1, Cause: ErrUnknownErrorCategory}
	}
	return check.Policy, nil
}

// All returns every record ordered by display index.
func (r *Registry) All() []ErrorCheck {
	return r.Snapshot().All()
}

// Len returns the number of registered categories.
func (r *Registry) Len() int {
	return r.Snapshot().Len()
}

// SetPolicy changes the policy of a category and persists the table.
// The change is visible from the next Snapshot call.
func (r *Registry) SetPolicy(ctx context.Context, category Category, policy DisablePolicy) error {
	if !policy.Valid() {
		return &RegistryError{Operation: "set_policy", Category: category, Index: -1, Cause: ErrInvalidPolicy}
	}

	r.mu.Lock()
	idx, ok := r.current.Load().byCategory[category]
	if !ok {
		r.mu.Unlock()
		return &RegistryError{Operation: "set_policy", Category: category, Index: -1, Cause: ErrUnknownErrorCategory}
	}
	changed := r.setLocked(idx, policy)
	r.mu.Unlock()

	if !changed {
		return nil
	}
	return r.persist(ctx)
}

// SetPolicyByIndex changes the policy of the record at a display index. The
// index is checked before the policy.
func (r *Registry) SetPolicyByIndex(ctx context.Context, index int, policy DisablePolicy) error {
	r.mu.Lock()
	if index < 0 || index >= r.current.Load().Len() {
		r.mu.Unlock()
		return &RegistryError{Operation: "set_policy", Index: index, Cause: ErrIndexOutOfRange}
	}
	if !policy.Valid() {
		r.mu.Unlock()
		return &RegistryError{Operation: "set_policy", Index: index, Cause: ErrInvalidPolicy}
	}
	changed := r.setLocked(index, policy)
	r.mu.Unlock()

	if !changed {
		return nil
	}
	return r.persist(ctx)
}

// ApplyEntries replaces the table with persisted user values. Unknown indices
// are ignored and missing indices fall back to each category's default.
// ApplyEntries does not persist; it is the load path.
func (r *Registry) ApplyEntries(entries []PolicyEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	checks := r.current.Load().cloneChecks()
	for i := range checks {
		checks[i].Policy = checks[i].DefaultPolicy
	}
	for _, entry := range entries {
		if entry.Index < 0 || entry.Index >= len(checks) {
			r.logger.Warn("ignoring persisted policy for unknown index",
				"index", entry.Index,
			)
			continue
		}
		if !entry.Policy.Valid() {
			r.logger.Warn("ignoring invalid persisted policy",
				"index", entry.Index,
				"policy", int(entry.Policy),
			)
			continue
		}
		checks[entry.Index].Policy = entry.Policy
	}
	r.current.Store(newSnapshot(checks))
}

// ResetDefaults restores every category to its built-in policy and persists.
func (r *Registry) ResetDefaults(ctx context.Context) error {
	r.ApplyEntries(nil)
	return r.persist(ctx)
}

// Entries returns the table as flat (index, policy) pairs.
func (r *Registry) Entries() []PolicyEntry {
	return r.Snapshot().Entries()
}

func (r *Registry) setLocked(index int, policy DisablePolicy) bool {
	old := r.current.Load()
	if old.checks[index].Policy == policy {
		return false
	}
	checks := old.cloneChecks()
	checks[index].Policy = policy
	r.current.Store(newSnapshot(checks))

	r.logger.Info("error check policy changed",
		"category", checks[index].Category,
		"index", index,
		"policy", policy.String(),
	)
	return true
}

// persist saves the table as it is once any earlier save has finished, so a
// save never overwrites a newer table.
func (r *Registry) persist(ctx context.Context) error {
	if r.persister == nil {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if err := r.persister.Save(ctx, r.Entries()); err != nil {
		r.logger.Error("failed to persist error check policies", "error", err)
		return &RegistryError{Operation: "persist", Index: -1, Cause: err}
	}
	return nil
}
