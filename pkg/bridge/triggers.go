package bridge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"skyline-hq/anarchy/pkg/errorcheck"
)

// Trigger names accepted by Invoke.
const (
	TriggerToggleAnarchy       = "ToggleAnarchy"
	TriggerChangeDisabledState = "ChangeDisabledState"
	TriggerAdjustElevation     = "AdjustElevation"
	TriggerCycleElevationStep  = "CycleElevationStep"
	TriggerToggleElevationLock = "ToggleElevationLock"
	TriggerResetElevation      = "ResetElevation"
	TriggerSetGrade            = "SetGrade"
	TriggerToggleComposition   = "ToggleComposition"
)

var (
	// ErrUnknownTrigger is returned by Invoke for an unknown trigger name.
	ErrUnknownTrigger = errors.New("unknown trigger")

	// ErrTriggerArgs is returned by Invoke when arguments are missing or
	// malformed.
	ErrTriggerArgs = errors.New("invalid trigger arguments")
)

// Triggers returns every trigger name Invoke accepts.
func Triggers() []string {
	return []string{
		TriggerToggleAnarchy,
		TriggerChangeDisabledState,
		TriggerAdjustElevation,
		TriggerCycleElevationStep,
		TriggerToggleElevationLock,
		TriggerResetElevation,
		TriggerSetGrade,
		TriggerToggleComposition,
	}
}

// Invoke runs a trigger by name with string arguments, as delivered by the
// UI layer or a scenario file.
//
//	ChangeDisabledState <index> <state>   state is 0..2 or a policy name
//	AdjustElevation up|down
//	SetGrade <slope>
//	ToggleComposition <flag>
func (b *Bridge) Invoke(ctx context.Context, name string, args ...string) error {
	switch name {
	case TriggerToggleAnarchy:
		b.ToggleAnarchy()
		return nil

	case TriggerChangeDisabledState:
		if len(args) != 2 {
			return fmt.Errorf("%w: %s wants index and state", ErrTriggerArgs, name)
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: index %q", ErrTriggerArgs, args[0])
		}
		policy, err := errorcheck.ParsePolicy(args[1])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTriggerArgs, err)
		}
		return b.ChangeDisabledState(ctx, index, int(policy))

	case TriggerAdjustElevation:
		if len(args) != 1 {
			return fmt.Errorf("%w: %s wants up or down", ErrTriggerArgs, name)
		}
		switch strings.ToLower(args[0]) {
		case "up", "+":
			_, err := b.AdjustElevation(true)
			return err
		case "down", "-":
			_, err := b.AdjustElevation(false)
			return err
		default:
			return fmt.Errorf("%w: direction %q", ErrTriggerArgs, args[0])
		}

	case TriggerCycleElevationStep:
		_, err := b.CycleElevationStep()
		return err

	case TriggerToggleElevationLock:
		_, err := b.ToggleElevationLock()
		return err

	case TriggerResetElevation:
		return b.ResetElevation()

	case TriggerSetGrade:
		if len(args) != 1 {
			return fmt.Errorf("%w: %s wants a slope", ErrTriggerArgs, name)
		}
		slope, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("%w: slope %q", ErrTriggerArgs, args[0])
		}
		_, err = b.SetGrade(slope)
		return err

	case TriggerToggleComposition:
		if len(args) != 1 {
			return fmt.Errorf("%w: %s wants a flag name", ErrTriggerArgs, name)
		}
		_, err := b.ToggleComposition(args[0])
		return err

	default:
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, name)
	}
}

// RecordingSink keeps the latest value of every binding.
type RecordingSink struct {
	mu     sync.Mutex
	values map[string]any
	pushes int
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{values: make(map[string]any)}
}

// Push stores value under name.
func (s *RecordingSink) Push(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	s.pushes++
}

// Value returns the latest value pushed under name.
func (s *RecordingSink) Value(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Values returns a copy of every binding.
func (s *RecordingSink) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Pushes returns the number of pushes received.
func (s *RecordingSink) Pushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes
}
