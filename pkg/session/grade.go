package session

import "math"

// DefaultMaxSlope is the steepest grade accepted (rise over run).
const DefaultMaxSlope = 0.3

// GradeState is the carried-forward grade of one session.
type GradeState struct {
	Slope  float64
	Locked bool
}

// Grade returns a copy of the grade state.
func (r *Record) Grade() GradeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grade
}

// SetSlope sets the grade, clamped to the arena's maximum slope.
func (r *Record) SetSlope(slope float64) (float64, error) {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grade.Locked {
		return r.grade.Slope, ErrLocked
	}
	limit := r.arena.maxSlope
	r.grade.Slope = roundOffset(math.Max(-limit, math.Min(limit, slope)))
	return r.grade.Slope, nil
}

// AdjustSlope adds delta to the grade.
func (r *Record) AdjustSlope(delta float64) (float64, error) {
	current := r.Grade()
	return r.SetSlope(current.Slope + delta)
}

// ToggleGradeLock flips the grade lock and returns the new value.
func (r *Record) ToggleGradeLock() bool {
	r.touch()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.grade.Locked = !r.grade.Locked
	return r.grade.Locked
}
