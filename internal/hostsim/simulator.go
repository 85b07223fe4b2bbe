package hostsim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"skyline-hq/anarchy/pkg/anarchy"
	"skyline-hq/anarchy/pkg/bridge"
	"skyline-hq/anarchy/pkg/errorcheck"
	"skyline-hq/anarchy/pkg/frame"
	"skyline-hq/anarchy/pkg/pipeline"
	"skyline-hq/anarchy/pkg/session"
	"skyline-hq/anarchy/pkg/settings"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
	"skyline-hq/anarchy/pkg/telemetry/tracing"
)

// Deps are the core objects a Simulator drives. Registry, Mode and Sessions
// are required.
type Deps struct {
	Registry *errorcheck.Registry
	Mode     *anarchy.State
	Sessions *session.Arena
	Pipeline pipeline.Config

	// Watcher, when set, stages external settings edits that are applied
	// between frames.
	Watcher *settings.Watcher

	// Sink receives bridge values. Default: a RecordingSink.
	Sink bridge.Sink

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
}

// FrameResult is the outcome of one simulated frame.
type FrameResult struct {
	Number   uint64           `json:"frame"`
	Tool     anarchy.ToolID   `json:"tool"`
	Report   *pipeline.Report `json:"report"`
	Outcome  Outcome          `json:"outcome"`
	Tooltips []string         `json:"tooltips,omitempty"`
	Faults   []string         `json:"faults,omitempty"`

	// TriggerErrors are UI triggers the core rejected. They do not stop the
	// frame.
	TriggerErrors []string `json:"trigger_errors,omitempty"`

	// StillDisabled lists validator checks disabled after the frame ended.
	StillDisabled []errorcheck.Category `json:"still_disabled,omitempty"`

	// SettingsReloaded is set when staged settings were applied before the
	// frame.
	SettingsReloaded bool `json:"settings_reloaded,omitempty"`

	// SessionsEnded lists tools whose session ended during the frame.
	SessionsEnded []anarchy.ToolID `json:"sessions_ended,omitempty"`
}

// Summary renders the result as one line.
func (r *FrameResult) Summary() string {
	var b strings.Builder
	mode := "off"
	if r.Report.AnarchyApplies {
		mode = "on"
	}
	fmt.Fprintf(&b, "frame %d tool=%s anarchy=%s", r.Number, r.Tool, mode)
	count := func(name string, n int) {
		if n > 0 {
			fmt.Fprintf(&b, " %s=%d", name, n)
		}
	}
	count("suppressed", len(r.Report.Suppressed))
	count("filtered", len(r.Report.Filtered))
	count("corrected", len(r.Report.Corrected))
	count("preserved", len(r.Report.Preserved))
	count("restored", len(r.Report.Restored))
	count("unculled", len(r.Report.Unculled))
	count("conflicts", len(r.Report.Conflicts))
	count("committed", len(r.Outcome.Committed))
	count("rejected", len(r.Outcome.Rejected))
	count("destroyed", len(r.Outcome.Destroyed))
	count("hidden", len(r.Outcome.Hidden))
	count("faults", len(r.Faults))
	return b.String()
}

// Simulator runs frames of the pipeline against a Host.
type Simulator struct {
	deps     Deps
	host     *Host
	pipeline *pipeline.Pipeline
	schedule *frame.Schedule
	runner   *frame.Runner
	bridge   *bridge.Bridge
	sink     bridge.Sink
	logger   *slog.Logger

	sessions map[anarchy.ToolID]uuid.UUID
	active   anarchy.ToolID
	frame    uint64
}

// NewSimulator wires the pipeline, the host systems and the UI bridge.
func NewSimulator(world *World, limits Limits, deps Deps) (*Simulator, error) {
	if deps.Registry == nil || deps.Mode == nil || deps.Sessions == nil {
		return nil, errors.New("hostsim: registry, anarchy state and session arena are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	validator := NewValidator(world.Terrain, limits)
	host := NewHost(world, validator, logger)

	p, err := pipeline.New(deps.Pipeline, pipeline.Deps{
		Registry:  deps.Registry,
		Mode:      deps.Mode,
		Sessions:  deps.Sessions,
		Validator: validator,
		Metrics:   deps.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	scheduler := frame.NewScheduler(logger)
	for _, reg := range host.Systems() {
		if err := scheduler.AddHostSystem(reg); err != nil {
			return nil, err
		}
	}
	if err := scheduler.RegisterAll(p.Registrations()); err != nil {
		return nil, err
	}
	schedule, err := scheduler.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build frame schedule: %w", err)
	}

	sink := deps.Sink
	if sink == nil {
		sink = bridge.NewRecordingSink()
	}
	b := bridge.New(deps.Mode, deps.Registry, deps.Sessions, logger)
	b.Attach(sink)

	return &Simulator{
		deps:     deps,
		host:     host,
		pipeline: p,
		schedule: schedule,
		runner: frame.NewRunner(schedule, frame.Options{
			Metrics: deps.Metrics,
			Tracer:  deps.Tracer,
			Logger:  logger,
		}),
		bridge:   b,
		sink:     sink,
		logger:   logger.With("component", "hostsim.simulator"),
		sessions: make(map[anarchy.ToolID]uuid.UUID),
	}, nil
}

// Host returns the simulated host.
func (s *Simulator) Host() *Host { return s.host }

// Bridge returns the UI bridge.
func (s *Simulator) Bridge() *bridge.Bridge { return s.bridge }

// Sink returns the bridge sink.
func (s *Simulator) Sink() bridge.Sink { return s.sink }

// Schedule returns the resolved frame schedule.
func (s *Simulator) Schedule() *frame.Schedule { return s.schedule }

// Session returns the session id of a tool, starting one on first use.
func (s *Simulator) Session(tool anarchy.ToolID) uuid.UUID {
	id, ok := s.sessions[tool]
	if !ok {
		id = s.deps.Sessions.Begin(string(tool))
		s.sessions[tool] = id
	}
	return id
}

// EndSession ends the session of a tool and evicts its state from the
// arena. It reports whether the tool had a session.
func (s *Simulator) EndSession(tool anarchy.ToolID) bool {
	id, ok := s.sessions[tool]
	if !ok {
		return false
	}
	delete(s.sessions, tool)
	s.deps.Sessions.End(id)
	s.logger.Debug("tool session ended", "tool", string(tool), "session", id.String())
	return true
}

// Setup applies the scenario's starting toggles and policies.
func (s *Simulator) Setup(ctx context.Context, sc *Scenario) error {
	if sc.Anarchy != nil {
		s.deps.Mode.SetEnabled(*sc.Anarchy)
	}
	for c, p := range sc.Policies {
		if err := s.deps.Registry.SetPolicy(ctx, c, p); err != nil {
			return fmt.Errorf("%w: policy for %s: %v", ErrInvalidScenario, c, err)
		}
	}
	if sc.ExpandedRange {
		s.bridge.SetExpandedRange(true)
	}
	s.bridge.Refresh()
	return nil
}

// Step runs one frame.
func (s *Simulator) Step(ctx context.Context, fr Frame) (*FrameResult, error) {
	s.frame++
	tool := anarchy.ToolID(fr.Tool)
	if tool == "" {
		tool = anarchy.ToolObject
	}
	res := &FrameResult{Number: s.frame, Tool: tool}

	if s.active != "" && s.active != tool && s.EndSession(s.active) {
		res.SessionsEnded = append(res.SessionsEnded, s.active)
	}
	s.active = tool

	if s.deps.Watcher != nil && s.deps.Watcher.ApplyPending(s.deps.Registry) {
		res.SettingsReloaded = true
		s.bridge.Refresh()
	}

	id := s.Session(tool)
	s.bridge.SetActiveSession(id, tool)
	for _, t := range fr.Triggers {
		if err := s.bridge.Invoke(ctx, t.Name, t.Args...); err != nil {
			res.TriggerErrors = append(res.TriggerErrors, fmt.Sprintf("%s: %v", t.Name, err))
		}
	}

	ws, err := s.host.BeginFrame(id, fr.Place)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", s.frame, err)
	}
	f := s.pipeline.BeginFrame(s.frame, tool, ws)

	runCtx := ctx
	if fr.Cancel {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		runCtx = cancelled
	}
	res.Report = s.runner.Run(runCtx, f)
	res.Outcome = s.host.EndFrame(ws, fr.Commit)
	res.Tooltips = s.host.Tooltips()
	res.Faults = res.Report.FaultMessages()
	res.StillDisabled = s.host.Validator().Disabled()

	s.bridge.Publish(res.Report)
	if fr.EndSession && s.EndSession(tool) {
		res.SessionsEnded = append(res.SessionsEnded, tool)
	}
	return res, nil
}

// Run sets up sc and runs every frame, calling fn after each. It stops at the
// first error from fn or when ctx is cancelled between frames.
func (s *Simulator) Run(ctx context.Context, sc *Scenario, fn func(*FrameResult) error) error {
	if err := s.Setup(ctx, sc); err != nil {
		return err
	}
	for _, fr := range sc.Frames {
		repeat := max(fr.Repeat, 1)
		for i := 0; i < repeat; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Step(ctx, fr)
			if err != nil {
				return err
			}
			if fn != nil {
				if err := fn(res); err != nil {
					return err
				}
			}
		}
	}
	s.logger.Info("scenario finished", "scenario", sc.Name, "frames", s.frame, "entities", s.host.World().Len())
	return nil
}

// Frames returns the total number of frames sc runs.
func Frames(sc *Scenario) int {
	n := 0
	for _, f := range sc.Frames {
		n += max(f.Repeat, 1)
	}
	return n
}
