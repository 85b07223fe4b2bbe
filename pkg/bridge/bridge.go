package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/anarchy"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/pipeline"
	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/session"
)

var (
	// ErrBridgeUninitialized is returned when no Sink is attached.
	ErrBridgeUninitialized = errors.New("UI bridge is not initialized")

	// ErrNoSession is returned by session triggers when no tool session is
	// active.
	ErrNoSession = errors.New("no active tool session")

	// ErrUnknownComposition is returned for an unknown composition flag name.
	ErrUnknownComposition = errors.New("unknown composition flag")
)

// Binding names pushed to the Sink.
const (
	BindAnarchyEnabled       = "anarchy.enabled"
	BindDisabledStates       = "checks.disabled_states"
	BindElevationValue       = "elevation.value"
	BindElevationStep        = "elevation.step"
	BindElevationLocked      = "elevation.locked"
	BindElevationRange       = "elevation.range"
	BindGradeSlope           = "grade.slope"
	BindCompositionFlags     = "composition.flags"
	BindCompositionConflicts = "composition.conflicts"
)

// Sink receives one-directional value updates for the UI layer.
type Sink interface {
	Push(name string, value any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, value any)

// Push calls f.
func (f SinkFunc) Push(name string, value any) { f(name, value) }

// Bridge exposes core state to the UI and applies UI triggers to it. Values
// are pushed only when they change.
type Bridge struct {
	mode     *anarchy.State
	registry *errorcheck.Registry
	arena    *session.Arena
	logger   *slog.Logger

	mu      sync.Mutex
	sink    Sink
	session uuid.UUID
	tool    anarchy.ToolID
	last    map[string]any
}

// New creates a bridge. It is uninitialized until Attach is called.
func New(mode *anarchy.State, registry *errorcheck.Registry, arena *session.Arena, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		mode:     mode,
		registry: registry,
		arena:    arena,
		logger:   logger.With("component", "bridge"),
		last:     make(map[string]any),
	}
}

// Attach connects the UI sink and pushes every value.
func (b *Bridge) Attach(sink Sink) {
	b.mu.Lock()
	b.sink = sink
	b.last = make(map[string]any)
	b.mu.Unlock()
	b.Refresh()
}

// Initialized reports whether a sink is attached.
func (b *Bridge) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink != nil
}

// RegisterTool marks an external tool anarchy-eligible.
func (b *Bridge) RegisterTool(id anarchy.ToolID) error {
	if !b.Initialized() {
		return ErrBridgeUninitialized
	}
	if err := b.mode.RegisterTool(id); err != nil {
		return err
	}
	b.logger.Info("tool registered", "tool", string(id))
	return nil
}

// UnregisterTool removes a tool from the eligible set.
func (b *Bridge) UnregisterTool(id anarchy.ToolID) {
	b.mode.UnregisterTool(id)
}

// SetActiveSession selects the tool session the elevation and composition
// triggers act on. uuid.Nil clears it.
func (b *Bridge) SetActiveSession(id uuid.UUID, tool anarchy.ToolID) {
	b.mu.Lock()
	b.session = id
	b.tool = tool
	b.mu.Unlock()
	b.Refresh()
}

func (b *Bridge) activeRecord() (*session.Record, error) {
	b.mu.Lock()
	id, tool := b.session, b.tool
	b.mu.Unlock()
	if id == uuid.Nil {
		return nil, ErrNoSession
	}
	return b.arena.Acquire(id, string(tool)), nil
}

// ToggleAnarchy flips anarchy mode and returns the new value.
func (b *Bridge) ToggleAnarchy() bool {
	on := b.mode.Toggle()
	b.logger.Info("anarchy toggled", "enabled", on)
	b.Refresh()
	return on
}

// ChangeDisabledState sets the policy of the check at a display index. An
// index outside the registry fails with errorcheck.ErrIndexOutOfRange and
// leaves the registry unchanged.
func (b *Bridge) ChangeDisabledState(ctx context.Context, index, state int) error {
	err := b.registry.SetPolicyByIndex(ctx, index, errorcheck.DisablePolicy(state))
	if errors.Is(err, errorcheck.ErrIndexOutOfRange) || errors.Is(err, errorcheck.ErrInvalidPolicy) {
		b.logger.Warn("ignoring disabled state change", "index", index, "state", state, "error", err)
		return err
	}
	b.Refresh()
	return err
}

// AdjustElevation raises or lowers the active session's elevation by one
// step.
func (b *Bridge) AdjustElevation(up bool) (float64, error) {
	rec, err := b.activeRecord()
	if err != nil {
		return 0, err
	}
	var v float64
	if up {
		v, err = rec.IncreaseElevation()
	} else {
		v, err = rec.DecreaseElevation()
	}
	b.Refresh()
	return v, err
}

// CycleElevationStep selects the next step size.
func (b *Bridge) CycleElevationStep() (float64, error) {
	rec, err := b.activeRecord()
	if err != nil {
		return 0, err
	}
	step := rec.CycleStep()
	b.Refresh()
	return step, nil
}

// ToggleElevationLock flips the elevation lock.
func (b *Bridge) ToggleElevationLock() (bool, error) {
	rec, err := b.activeRecord()
	if err != nil {
		return false, err
	}
	locked := rec.ToggleElevationLock()
	b.Refresh()
	return locked, nil
}

// ResetElevation restores a zero, unlocked elevation.
func (b *Bridge) ResetElevation() error {
	rec, err := b.activeRecord()
	if err != nil {
		return err
	}
	rec.ResetElevation()
	b.Refresh()
	return nil
}

// SetGrade sets the active session's slope, clamped to the arena maximum.
func (b *Bridge) SetGrade(slope float64) (float64, error) {
	rec, err := b.activeRecord()
	if err != nil {
		return 0, err
	}
	v, err := rec.SetSlope(slope)
	b.Refresh()
	return v, err
}

// ToggleComposition flips one composition flag by name.
func (b *Bridge) ToggleComposition(name string) (placement.Composition, error) {
	flag, ok := placement.ParseComposition(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownComposition, name)
	}
	rec, err := b.activeRecord()
	if err != nil {
		return 0, err
	}
	flags := rec.ToggleComposition(flag)
	b.Refresh()
	return flags, nil
}

// SetExpandedRange switches between the default and expanded elevation
// bounds.
func (b *Bridge) SetExpandedRange(expanded bool) {
	b.arena.SetExpandedRange(expanded)
	b.Refresh()
}

// InRange reports whether an elevation offset is inside the active bound.
func (b *Bridge) InRange(v float64) bool {
	return b.arena.Range().Contains(v)
}

// Publish pushes the outcome of a frame.
func (b *Bridge) Publish(report *pipeline.Report) {
	conflicts := make([]string, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		conflicts = append(conflicts, c.Error())
	}
	b.mu.Lock()
	b.pushLocked(BindCompositionConflicts, conflicts)
	b.mu.Unlock()
	b.Refresh()
}

// Refresh pushes every value that changed since the last push.
func (b *Bridge) Refresh() {
	values := b.values()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range []string{
		BindAnarchyEnabled,
		BindDisabledStates,
		BindElevationValue,
		BindElevationStep,
		BindElevationLocked,
		BindElevationRange,
		BindGradeSlope,
		BindCompositionFlags,
	} {
		if v, ok := values[name]; ok {
			b.pushLocked(name, v)
		}
	}
}

func (b *Bridge) values() map[string]any {
	checks := b.registry.All()
	states := make([]int, len(checks))
	for i, c := range checks {
		states[i] = int(c.Policy)
	}

	values := map[string]any{
		BindAnarchyEnabled: b.mode.Enabled(),
		BindDisabledStates: states,
		BindElevationRange: b.arena.Range().Bound(),
	}

	b.mu.Lock()
	id := b.session
	b.mu.Unlock()
	if rec, ok := b.arena.Get(id); ok && id != uuid.Nil {
		elevation := rec.Elevation()
		values[BindElevationValue] = elevation.Offset
		values[BindElevationStep] = rec.Step()
		values[BindElevationLocked] = elevation.Locked
		values[BindGradeSlope] = rec.Grade().Slope
		names := []string{}
		for _, f := range rec.Composition().Flags() {
			names = append(names, f.String())
		}
		values[BindCompositionFlags] = names
	}
	return values
}

func (b *Bridge) pushLocked(name string, value any) {
	if b.sink == nil {
		return
	}
	if prev, ok := b.last[name]; ok && reflect.DeepEqual(prev, value) {
		return
	}
	b.last[name] = value
	b.sink.Push(name, value)
}
