package pipeline

import (
	"errors"
	"log/slog"

	"skyline-hq/anarchy/pkg/anarchy"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/placement"
	"skyline-hq/anarchy/pkg/session"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
)

// Config holds the numeric limits the passes enforce.
type Config struct {
	// MaxNodeElevationDelta bounds the rise across a segment touching an
	// intersection for curb and shoulder requests.
	MaxNodeElevationDelta float64

	// MaxTrackElevation bounds the elevation above terrain at which an extra
	// track may be requested.
	MaxTrackElevation float64
}

// Deps are the long-lived state objects the passes read.
type Deps struct {
	Registry *errorcheck.Registry
	Mode     *anarchy.State
	Sessions *session.Arena

	// Validator is the host validator. A nil validator disables the
	// suppression passes.
	Validator Validator

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Pipeline owns one instance of every pass.
type Pipeline struct {
	registry *errorcheck.Registry
	mode     *anarchy.State
	logger   *slog.Logger

	transform         *TransformConsistency
	elevationCapture  *ElevationCapture
	elevationApply    *ElevationApply
	gradeCapture      *GradeCapture
	gradeApply        *GradeApply
	compositionModify *CompositionModify
	compositionReset  *CompositionReset
	suppressor        *Suppressor
	preventOverride   *PreventOverride
	removeOverridden  *RemoveOverridden
	preventCulling    *PreventCulling
}

// New builds the pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Registry == nil {
		return nil, errors.New("pipeline: registry is required")
	}
	if deps.Mode == nil {
		return nil, errors.New("pipeline: anarchy state is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("pipeline: session arena is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics

	return &Pipeline{
		registry:          deps.Registry,
		mode:              deps.Mode,
		logger:            logger.With("component", "pipeline"),
		transform:         &TransformConsistency{metrics: m},
		elevationCapture:  &ElevationCapture{sessions: deps.Sessions},
		elevationApply:    &ElevationApply{sessions: deps.Sessions, metrics: m},
		gradeCapture:      &GradeCapture{sessions: deps.Sessions},
		gradeApply:        &GradeApply{sessions: deps.Sessions, metrics: m},
		compositionModify: &CompositionModify{cfg: cfg, sessions: deps.Sessions, metrics: m},
		compositionReset:  &CompositionReset{metrics: m},
		suppressor:        NewSuppressor(deps.Validator, m, logger),
		preventOverride:   &PreventOverride{metrics: m},
		removeOverridden:  &RemoveOverridden{metrics: m},
		preventCulling:    &PreventCulling{metrics: m},
	}, nil
}

// BeginFrame fixes the inputs of one frame: the anarchy decision for the
// active tool and the policy snapshot. Settings changed after this call take
// effect on the next frame.
func (p *Pipeline) BeginFrame(number uint64, tool anarchy.ToolID, set *placement.WorkingSet) *Frame {
	applies := p.mode.Applies(tool)
	if set == nil {
		set = placement.NewWorkingSet()
	}
	return &Frame{
		Number:         number,
		Tool:           tool,
		AnarchyApplies: applies,
		Checks:         p.registry.Snapshot(),
		Set:            set,
		Report: &Report{
			Frame:          number,
			Tool:           tool,
			AnarchyApplies: applies,
		},
		Logger: p.logger,
	}
}

// Suppressor returns the suppression state machine.
func (p *Pipeline) Suppressor() *Suppressor {
	return p.suppressor
}

// Registrations returns every pass with its slot.
func (p *Pipeline) Registrations() []Registration {
	return []Registration{
		{
			Slot: Slot{
				Name:   PassElevationCapture,
				Phase:  PhaseToolUpdate,
				After:  []string{SystemRaycastInit},
				Before: []string{SystemTooltip},
			},
			Pass: p.elevationCapture,
		},
		{
			Slot: Slot{
				Name:   PassGradeCapture,
				Phase:  PhaseToolUpdate,
				After:  []string{PassElevationCapture},
				Before: []string{SystemTooltip},
			},
			Pass: p.gradeCapture,
		},
		{
			Slot: Slot{
				Name:   PassTransform,
				Phase:  PhaseModification,
				After:  []string{SystemTempCreation},
				Before: []string{SystemTransformReset},
			},
			Pass: p.transform,
		},
		{
			Slot: Slot{
				Name:   PassElevationApply,
				Phase:  PhaseModification,
				After:  []string{PassTransform},
				Before: []string{SystemTransformReset},
			},
			Pass: p.elevationApply,
		},
		{
			Slot: Slot{
				Name:   PassGradeApply,
				Phase:  PhaseModification,
				After:  []string{PassElevationApply},
				Before: []string{SystemTransformReset},
			},
			Pass: p.gradeApply,
		},
		{
			Slot: Slot{
				Name:  PassCompositionModify,
				Phase: PhaseModification,
				After: []string{PassGradeApply},
			},
			Pass: p.compositionModify,
		},
		{
			Slot: Slot{
				Name:     PassSuppress,
				Phase:    PhaseModification,
				After:    []string{PassCompositionModify, SystemTransformReset},
				Requires: []string{PassRestore},
			},
			Pass: p.suppressor.SuppressPass(),
		},
		{
			Slot: Slot{
				Name:  PassRestore,
				Phase: PhasePostValidation,
				After: []string{SystemValidation},
			},
			Pass: p.suppressor.RestorePass(),
		},
		{
			Slot: Slot{
				Name:  PassCompositionReset,
				Phase: PhasePostValidation,
				After: []string{PassRestore},
			},
			Pass: p.compositionReset,
		},
		{
			Slot: Slot{
				Name:  PassPreventOverride,
				Phase: PhasePostValidation,
				After: []string{PassCompositionReset},
			},
			Pass: p.preventOverride,
		},
		{
			Slot: Slot{
				Name:  PassRemoveOverridden,
				Phase: PhasePostValidation,
				After: []string{PassPreventOverride},
			},
			Pass: p.removeOverridden,
		},
		{
			Slot: Slot{
				Name:   PassPreventCulling,
				Phase:  PhaseRendering,
				Before: []string{SystemCulling},
			},
			Pass: p.preventCulling,
		},
	}
}
