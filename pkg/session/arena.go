package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/placement"
)

// Config configures an Arena.
type Config struct {
	// Steps is the elevation step table; sorted descending on use.
	// Default: DefaultSteps
	Steps []float64

	// Range is the initial elevation range.
	Range ElevationRange

	// MaxSlope bounds the grade.
	// Default: DefaultMaxSlope
	MaxSlope float64
}

// Arena stores session records indexed by session id.
type Arena struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record

	steps    []float64
	maxSlope float64
	rng      atomic.Pointer[ElevationRange]
	now      func() time.Time
}

// NewArena creates an empty arena.
func NewArena(cfg Config) *Arena {
	if cfg.Range.DefaultBound <= 0 {
		cfg.Range.DefaultBound = DefaultElevationBound
	}
	if cfg.Range.ExpandedBound < cfg.Range.DefaultBound {
		cfg.Range.ExpandedBound = ExpandedElevationBound
	}
	if cfg.MaxSlope <= 0 {
		cfg.MaxSlope = DefaultMaxSlope
	}

	a := &Arena{
		records:  make(map[uuid.UUID]*Record),
		steps:    normalizeSteps(cfg.Steps),
		maxSlope: cfg.MaxSlope,
		now:      time.Now,
	}
	rng := cfg.Range
	a.rng.Store(&rng)
	return a
}

// Steps returns a copy of the step table.
func (a *Arena) Steps() []float64 {
	out := make([]float64, len(a.steps))
	copy(out, a.steps)
	return out
}

// Range returns the active elevation range.
func (a *Arena) Range() ElevationRange {
	return *a.rng.Load()
}

// SetExpandedRange switches between the default and expanded bound. Offsets
// of live sessions are clamped to the new bound.
func (a *Arena) SetExpandedRange(expanded bool) {
	next := a.Range()
	next.Expanded = expanded
	a.rng.Store(&next)

	a.mu.Lock()
	records := make([]*Record, 0, len(a.records))
	for _, rec := range a.records {
		records = append(records, rec)
	}
	a.mu.Unlock()

	for _, rec := range records {
		rec.clampElevation(next)
	}
}

// Begin starts a new tool session and returns its id.
func (a *Arena) Begin(tool string) uuid.UUID {
	id := uuid.New()
	a.mu.Lock()
	a.records[id] = a.newRecord(id, tool)
	a.mu.Unlock()
	return id
}

// Acquire returns the record for id, creating a zero record on first use.
func (a *Arena) Acquire(id uuid.UUID, tool string) *Record {
	a.mu.Lock()
	rec, ok := a.records[id]
	if !ok {
		rec = a.newRecord(id, tool)
		a.records[id] = rec
	}
	a.mu.Unlock()

	rec.touch()
	return rec
}

// Get returns the record for id without creating it.
func (a *Arena) Get(id uuid.UUID) (*Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.records[id]
	return rec, ok
}

// End evicts a session. It reports whether the session existed.
func (a *Arena) End(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.records[id]; !ok {
		return false
	}
	delete(a.records, id)
	return true
}

// Sweep evicts sessions last used before cutoff and returns how many.
func (a *Arena) Sweep(cutoff time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	evicted := 0
	for id, rec := range a.records {
		if rec.lastUsed().Before(cutoff) {
			delete(a.records, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

func (a *Arena) newRecord(id uuid.UUID, tool string) *Record {
	rec := &Record{id: id, tool: tool, arena: a}
	rec.used.Store(a.now().UnixNano())
	return rec
}

// Record is the state of one tool session. Methods are safe for concurrent
// use so UI triggers can adjust a session between frames.
type Record struct {
	id    uuid.UUID
	tool  string
	arena *Arena
	used  atomic.Int64

	mu          sync.Mutex
	elevation   ElevationState
	grade       GradeState
	composition placement.Composition
}

// ID returns the session id.
func (r *Record) ID() uuid.UUID {
	return r.id
}

// Tool returns the tool that opened the session.
func (r *Record) Tool() string {
	return r.tool
}

// Composition returns the requested composition flags.
func (r *Record) Composition() placement.Composition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.composition
}

// ToggleComposition flips a requested flag and returns the new set.
func (r *Record) ToggleComposition(flag placement.Composition) placement.Composition {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.composition ^= flag
	return r.composition
}

// SetComposition replaces the requested flags.
func (r *Record) SetComposition(flags placement.Composition) {
	r.touch()
	r.mu.Lock()
	r.composition = flags
	r.mu.Unlock()
}

func (r *Record) touch() {
	r.used.Store(r.arena.now().UnixNano())
}

func (r *Record) lastUsed() time.Time {
	return time.Unix(0, r.used.Load())
}
