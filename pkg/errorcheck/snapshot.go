package errorcheck

// Snapshot is an immutable view of the policy table.
type Snapshot struct {
	checks     []ErrorCheck
	byCategory map[Category]int
}

func newSnapshot(checks []ErrorCheck) *Snapshot {
	s := &Snapshot{
		checks:     checks,
		byCategory: make(map[Category]int, len(checks)),
	}
	for i, c := range checks {
		s.byCategory[c.Category] = i
	}
	return s
}

func (s *Snapshot) cloneChecks() []ErrorCheck {
	out := make([]ErrorCheck, len(s.checks), len(s.checks)+1)
	copy(out, s.checks)
	return out
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.checks)
}

// Get returns the record for a category.
func (s *Snapshot) Get(category Category) (ErrorCheck, bool) {
	idx, ok := s.byCategory[category]
	if !ok {
		return ErrorCheck{}, false
	}
	return s.checks[idx], true
}

// ByIndex returns the record at a display index.
func (s *Snapshot) ByIndex(index int) (ErrorCheck, error) {
	if index < 0 || index >= len(s.checks) {
		return ErrorCheck{}, &RegistryError{Operation: "by_index", Index: index, Cause: ErrIndexOutOfRange}
	}
	return s.checks[index], nil
}

// All returns a copy of every record ordered by display index.
func (s *Snapshot) All() []ErrorCheck {
	out := make([]ErrorCheck, len(s.checks))
	copy(out, s.checks)
	return out
}

// Disables reports whether category is suppressed this frame. Unknown
// categories are never suppressed.
func (s *Snapshot) Disables(category Category, anarchyApplies bool) bool {
	check, ok := s.Get(category)
	if !ok {
		return false
	}
	return check.Policy.Disables(anarchyApplies)
}

// DisabledSet returns the categories suppressed for the given anarchy state,
// in display order.
func (s *Snapshot) DisabledSet(anarchyApplies bool) []Category {
	var out []Category
	for _, c := range s.checks {
		if c.Policy.Disables(anarchyApplies) {
			out = append(out, c.Category)
		}
	}
	return out
}

// Entries returns the table as flat (index, policy) pairs.
func (s *Snapshot) Entries() []PolicyEntry {
	out := make([]PolicyEntry, len(s.checks))
	for i, c := range s.checks {
		out[i] = PolicyEntry{Index: c.Index, Policy: c.Policy}
	}
	return out
}

// States returns the policy of each record as an int, in display order.
// This is the shape the options UI binds to.
func (s *Snapshot) States() []int {
	out := make([]int, len(s.checks))
	for i, c := range s.checks {
		out[i] = int(c.Policy)
	}
	return out
}
