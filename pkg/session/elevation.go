package session

import (
	"errors"
	"math"
	"sort"
)

// ErrLocked is returned when adjusting a locked value.
var ErrLocked = errors.New("value is locked")

// DefaultSteps is the descending elevation step table.
var DefaultSteps = []float64{10, 2.5, 1.0, 0.1}

// Default elevation bounds.
const (
	DefaultElevationBound  = 50.0
	ExpandedElevationBound = 1000.0
)

// ElevationRange is the permitted offset bound. The same value drives the
// clamp applied to adjustments and the UI range predicate.
type ElevationRange struct {
	DefaultBound  float64
	ExpandedBound float64
	Expanded      bool
}

// Bound returns the active absolute bound.
func (r ElevationRange) Bound() float64 {
	if r.Expanded {
		return r.ExpandedBound
	}
	return r.DefaultBound
}

// Contains reports whether an offset is inside the bound.
func (r ElevationRange) Contains(v float64) bool {
	b := r.Bound()
	return v >= -b && v <= b
}

// Clamp limits an offset to the bound.
func (r ElevationRange) Clamp(v float64) float64 {
	b := r.Bound()
	return math.Max(-b, math.Min(b, v))
}

// ElevationState is the carried-forward elevation of one session.
type ElevationState struct {
	Offset    float64
	StepIndex int
	Locked    bool

	// LockedHeight is the absolute height held while locked. HasLockedHeight
	// is false until the first locked frame captures it.
	LockedHeight    float64
	HasLockedHeight bool
}

// normalizeSteps returns a copy of steps sorted descending without
// non-positive entries, or DefaultSteps if nothing remains.
func normalizeSteps(steps []float64) []float64 {
	out := make([]float64, 0, len(steps))
	for _, s := range steps {
		if s > 0 {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultSteps...)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

// roundOffset removes float drift from repeated small steps.
func roundOffset(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Elevation returns a copy of the elevation state.
func (r *Record) Elevation() ElevationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elevation
}

// Step returns the current step size.
func (r *Record) Step() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arena.steps[r.elevation.StepIndex]
}

// IncreaseElevation raises the offset by the current step.
func (r *Record) IncreaseElevation() (float64, error) {
	return r.adjustElevation(1)
}

// DecreaseElevation lowers the offset by the current step.
func (r *Record) DecreaseElevation() (float64, error) {
	return r.adjustElevation(-1)
}

func (r *Record) adjustElevation(dir float64) (float64, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.elevation.Locked {
		return r.elevation.Offset, ErrLocked
	}
	step := r.arena.steps[r.elevation.StepIndex]
	next := roundOffset(r.elevation.Offset + dir*step)
	r.elevation.Offset = r.arena.Range().Clamp(next)
	return r.elevation.Offset, nil
}

// SetElevation sets the offset directly, clamped to the active range.
func (r *Record) SetElevation(v float64) (float64, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.elevation.Locked {
		return r.elevation.Offset, ErrLocked
	}
	r.elevation.Offset = r.arena.Range().Clamp(roundOffset(v))
	return r.elevation.Offset, nil
}

func (r *Record) clampElevation(rng ElevationRange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elevation.Offset = rng.Clamp(r.elevation.Offset)
}

// CycleStep advances to the next smaller step, wrapping to the largest.
func (r *Record) CycleStep() float64 {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.elevation.StepIndex = (r.elevation.StepIndex + 1) % len(r.arena.steps)
	return r.arena.steps[r.elevation.StepIndex]
}

// SelectStep selects the step equal to size. It returns false if the table
// has no such step.
func (r *Record) SelectStep(size float64) bool {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.arena.steps {
		if s == size {
			r.elevation.StepIndex = i
			return true
		}
	}
	return false
}

// ToggleElevationLock flips the lock and returns the new value. Locking
// discards any previously captured absolute height.
func (r *Record) ToggleElevationLock() bool {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.elevation.Locked = !r.elevation.Locked
	r.elevation.HasLockedHeight = false
	r.elevation.LockedHeight = 0
	return r.elevation.Locked
}

// ResetElevation restores a zero, unlocked offset.
func (r *Record) ResetElevation() {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.elevation.Offset = 0
	r.elevation.Locked = false
	r.elevation.HasLockedHeight = false
	r.elevation.LockedHeight = 0
}

// HoldHeight returns the absolute height to hold while locked. The first call
// after locking captures candidate; later calls return the captured height.
func (r *Record) HoldHeight(candidate float64) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.elevation.Locked {
		return candidate, false
	}
	if !r.elevation.HasLockedHeight {
		r.elevation.LockedHeight = candidate
		r.elevation.HasLockedHeight = true
	}
	return r.elevation.LockedHeight, true
}
