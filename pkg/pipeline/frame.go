package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"skyline-hq/anarchy/pkg/anarchy"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/placement"
)

// Phase is a host scheduling phase.
type Phase int

const (
	PhaseToolUpdate Phase = iota
	PhaseModification
	PhaseValidation
	PhasePostValidation
	PhaseRendering
)

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{PhaseToolUpdate, PhaseModification, PhaseValidation, PhasePostValidation, PhaseRendering}
}

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseToolUpdate:
		return "tool_update"
	case PhaseModification:
		return "modification"
	case PhaseValidation:
		return "validation"
	case PhasePostValidation:
		return "post_validation"
	case PhaseRendering:
		return "rendering"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Valid reports whether p is a defined phase.
func (p Phase) Valid() bool {
	return p >= PhaseToolUpdate && p <= PhaseRendering
}

// Slot declares where a pass runs: a phase plus ordering constraints against
// named host systems or other passes.
type Slot struct {
	Name   string
	Phase  Phase
	After  []string
	Before []string

	// Requires names passes this pass is scheduled only together with. If
	// any of them is disabled, so is this pass.
	Requires []string
}

// Pass is one step of the frame.
type Pass interface {
	Name() string
	Run(ctx context.Context, f *Frame) error
}

// Mandatory is implemented by passes that must run on every exit path.
type Mandatory interface {
	Mandatory() bool
}

// PassFunc adapts a function to Pass.
type PassFunc struct {
	name string
	fn   func(ctx context.Context, f *Frame) error
}

// NewPassFunc creates a named pass from fn.
func NewPassFunc(name string, fn func(ctx context.Context, f *Frame) error) *PassFunc {
	return &PassFunc{name: name, fn: fn}
}

// Name returns the pass name.
func (p *PassFunc) Name() string { return p.name }

// Run calls the wrapped function.
func (p *PassFunc) Run(ctx context.Context, f *Frame) error { return p.fn(ctx, f) }

// Registration binds a pass to its slot.
type Registration struct {
	Slot Slot
	Pass Pass
}

// Frame carries the inputs every pass reads for one frame.
type Frame struct {
	Number uint64
	Tool   anarchy.ToolID

	// AnarchyApplies is fixed at frame start.
	AnarchyApplies bool

	// Checks is the policy snapshot taken at frame start.
	Checks *errorcheck.Snapshot

	Set    *placement.WorkingSet
	Report *Report
	Logger *slog.Logger
}

func (f *Frame) log() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// PassRun records one pass execution.
type PassRun struct {
	Name     string        `json:"name"`
	Phase    string        `json:"phase"`
	Skipped  bool          `json:"skipped,omitempty"`
	Disabled bool          `json:"disabled,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of one frame.
type Report struct {
	Frame          uint64         `json:"frame"`
	Tool           anarchy.ToolID `json:"tool"`
	AnarchyApplies bool           `json:"anarchy_applies"`

	Passes []PassRun    `json:"passes"`
	Faults []*PassError `json:"-"`

	Suppressed []errorcheck.Category           `json:"suppressed,omitempty"`
	Filtered   []placement.ErrorResult         `json:"filtered,omitempty"`
	Corrected  []placement.EntityID            `json:"corrected,omitempty"`
	Preserved  []placement.EntityID            `json:"preserved,omitempty"`
	Restored   []placement.EntityID            `json:"restored,omitempty"`
	Unculled   []placement.EntityID            `json:"unculled,omitempty"`
	Conflicts  []CompositionConflict           `json:"conflicts,omitempty"`
	Reverted   []placement.CompositionSnapshot `json:"reverted,omitempty"`
}

// FaultMessages returns the faults as strings.
func (r *Report) FaultMessages() []string {
	out := make([]string, 0, len(r.Faults))
	for _, f := range r.Faults {
		out = append(out, f.Error())
	}
	return out
}

// Ran reports whether a pass executed (not skipped or disabled).
func (r *Report) Ran(name string) bool {
	for _, p := range r.Passes {
		if p.Name == name {
			return !p.Skipped && !p.Disabled
		}
	}
	return false
}
