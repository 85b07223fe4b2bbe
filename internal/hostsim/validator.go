package hostsim

import (
	"math"
	"sort"
	"sync"

	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/placement"
)

// Limits are the host validator's own placement rules.
type Limits struct {
	// MinSegmentLength raises ShortDistance below it.
	MinSegmentLength float64 `yaml:"min_segment_length"`

	// MaxSegmentLength raises LongDistance above it.
	MaxSegmentLength float64 `yaml:"max_segment_length"`

	// MaxGrade raises SteepSlope above it.
	MaxGrade float64 `yaml:"max_grade"`
}

// DefaultLimits returns the stock host limits.
func DefaultLimits() Limits {
	return Limits{
		MinSegmentLength: 8,
		MaxSegmentLength: 1000,
		MaxGrade:         0.12,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MinSegmentLength <= 0 {
		l.MinSegmentLength = d.MinSegmentLength
	}
	if l.MaxSegmentLength <= 0 {
		l.MaxSegmentLength = d.MaxSegmentLength
	}
	if l.MaxGrade <= 0 {
		l.MaxGrade = d.MaxGrade
	}
	return l
}

// Validator is the host validator. It raises error results on temp entities
// for every category that is not disabled, and applies the host's own
// consequences of a validated frame: overlapped entities are marked for
// replacement and composition on sloped segments is cleared.
type Validator struct {
	terrain Terrain
	limits  Limits

	mu       sync.Mutex
	disabled map[errorcheck.Category]bool
	disables int
}

// NewValidator creates a validator with every check enabled.
func NewValidator(terrain Terrain, limits Limits) *Validator {
	return &Validator{
		terrain:  terrain,
		limits:   limits.withDefaults(),
		disabled: make(map[errorcheck.Category]bool),
	}
}

// DisableCheck stops the validator from raising c.
func (v *Validator) DisableCheck(c errorcheck.Category) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disabled[c] = true
	v.disables++
}

// EnableCheck re-enables c.
func (v *Validator) EnableCheck(c errorcheck.Category) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.disabled, c)
}

// CheckDisabled reports whether c is disabled.
func (v *Validator) CheckDisabled(c errorcheck.Category) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disabled[c]
}

// Disabled returns the disabled categories, sorted.
func (v *Validator) Disabled() []errorcheck.Category {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]errorcheck.Category, 0, len(v.disabled))
	for c := range v.disabled {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Disables returns how many times DisableCheck was called.
func (v *Validator) Disables() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disables
}

// Validate recomputes the error results of every temp entity in ws.
func (v *Validator) Validate(ws *placement.WorkingSet) {
	existing := ws.Select(func(e *placement.Entity) bool { return !e.IsTemp() && e.Active() })

	for _, t := range ws.Select(func(e *placement.Entity) bool { return e.IsTemp() }) {
		t.Errors = nil
		if t.Flags.Has(placement.FlagDeleted) {
			continue
		}
		switch t.Kind {
		case placement.KindObject:
			v.validateObject(t, existing)
		case placement.KindSegment:
			v.validateSegment(ws, t)
		}
	}
}

func (v *Validator) raise(e *placement.Entity, c errorcheck.Category, sev errorcheck.Severity) {
	if v.CheckDisabled(c) {
		return
	}
	e.Errors = append(e.Errors, placement.ErrorResult{Category: c, Severity: sev, Source: e.ID})
}

func (v *Validator) validateObject(t *placement.Entity, existing []*placement.Entity) {
	pos := t.Transform.Position

	for _, e := range existing {
		if !overlaps(t, e) {
			continue
		}
		if samePlacement(t, e) {
			v.raise(t, errorcheck.AlreadyExists, errorcheck.SeverityError)
			continue
		}
		if !v.CheckDisabled(errorcheck.OverlapExisting) {
			v.raise(t, errorcheck.OverlapExisting, errorcheck.SeverityError)
			continue
		}
		// Overlap is allowed, so the host replaces what it overlaps.
		e.Flags |= placement.FlagOverridden
		if t.Overrides == 0 {
			t.Overrides = e.ID
		}
	}

	if v.terrain.InWater(pos.X, pos.Z) {
		v.raise(t, errorcheck.InWater, errorcheck.SeverityError)
	}
	if !v.terrain.InsideLimits(pos.X, pos.Z) {
		v.raise(t, errorcheck.ExceedsCityLimits, errorcheck.SeverityError)
	}
	if pos.Y < t.TerrainHeight {
		v.raise(t, errorcheck.LowElevation, errorcheck.SeverityError)
	}
}

func (v *Validator) validateSegment(ws *placement.WorkingSet, t *placement.Entity) {
	switch {
	case t.Length < v.limits.MinSegmentLength:
		v.raise(t, errorcheck.ShortDistance, errorcheck.SeverityWarning)
	case t.Length > v.limits.MaxSegmentLength:
		v.raise(t, errorcheck.LongDistance, errorcheck.SeverityError)
	}

	grade := t.Grade
	if a, ok := ws.Node(t.StartNode); ok {
		if b, ok := ws.Node(t.EndNode); ok && t.Length > 0 {
			grade = (b.Position.Y - a.Position.Y) / t.Length
			for _, n := range []*placement.Node{a, b} {
				if !v.terrain.InsideLimits(n.Position.X, n.Position.Z) {
					v.raise(t, errorcheck.ExceedsCityLimits, errorcheck.SeverityError)
					break
				}
			}
		}
	}
	if math.Abs(grade) > v.limits.MaxGrade {
		v.raise(t, errorcheck.SteepSlope, errorcheck.SeverityError)
	}

	// The host only builds composition on flat segments.
	if grade != 0 {
		t.Composition = 0
	}
}

func samePlacement(a, b *placement.Entity) bool {
	return a.Transform.ApproxEqual(b.Transform) && a.Radius == b.Radius
}
