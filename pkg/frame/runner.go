package frame

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"skyline-hq/anarchy/pkg/pipeline"
	"skyline-hq/anarchy/pkg/telemetry/logging"
	"skyline-hq/anarchy/pkg/telemetry/metrics"
	"skyline-hq/anarchy/pkg/telemetry/tracing"
)

// Pass results recorded in metrics.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultPanic    = "panic"
	ResultSkipped  = "skipped"
	ResultDisabled = "disabled"
)

// Options configures a Runner.
type Options struct {
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
}

// Runner executes a Schedule once per frame. A failing or panicking step is
// recorded and the frame continues. When the context is cancelled only
// mandatory passes still run.
type Runner struct {
	schedule *Schedule
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger

	mu sync.Mutex
}

// NewRunner creates a runner for schedule.
func NewRunner(schedule *Schedule, opts Options) *Runner {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.Noop()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		schedule: schedule,
		metrics:  opts.Metrics,
		tracer:   tracer,
		logger:   logger.With("component", "frame.runner"),
	}
}

// Order returns the execution order.
func (r *Runner) Order() []string {
	return r.schedule.Order()
}

// Run executes every step against f and returns its report. Frames run one
// at a time.
func (r *Runner) Run(ctx context.Context, f *pipeline.Frame) *pipeline.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Report == nil {
		f.Report = &pipeline.Report{Frame: f.Number, Tool: f.Tool, AnarchyApplies: f.AnarchyApplies}
	}

	ctx = logging.WithFrame(ctx, f.Number)
	ctx = logging.WithTool(ctx, string(f.Tool))
	ctx, span := r.tracer.StartFrame(ctx, f.Number, string(f.Tool), f.AnarchyApplies)
	defer span.End()
	if id := tracing.TraceID(ctx); id != "" {
		ctx = logging.WithTraceID(ctx, id)
	}

	r.metrics.RecordFrame(f.AnarchyApplies)

	for _, d := range r.schedule.disabled {
		f.Report.Passes = append(f.Report.Passes, pipeline.PassRun{
			Name:     d.Name,
			Phase:    d.Phase.String(),
			Disabled: true,
			Error:    d.Err.Error(),
		})
		r.metrics.RecordPass(d.Name, ResultDisabled, 0)
	}

	for _, st := range r.schedule.steps {
		name := st.reg.Slot.Name
		phase := st.reg.Slot.Phase.String()

		if ctx.Err() != nil && !st.mandatory {
			f.Report.Passes = append(f.Report.Passes, pipeline.PassRun{Name: name, Phase: phase, Skipped: true})
			if !st.host {
				r.metrics.RecordPass(name, ResultSkipped, 0)
			}
			continue
		}

		stepCtx := ctx
		if st.mandatory {
			stepCtx = context.WithoutCancel(ctx)
		}
		run := r.runStep(stepCtx, st, f)
		f.Report.Passes = append(f.Report.Passes, run)
	}

	if n := len(f.Report.Faults); n > 0 {
		tracing.SetStatus(span, fmt.Errorf("%d pass faults", n))
	} else {
		tracing.SetStatus(span, nil)
	}
	return f.Report
}

// runStep runs one step with panic isolation.
func (r *Runner) runStep(ctx context.Context, st step, f *pipeline.Frame) pipeline.PassRun {
	name := st.reg.Slot.Name
	phase := st.reg.Slot.Phase.String()

	ctx = logging.WithPass(ctx, name)
	ctx, span := r.tracer.StartPass(ctx, name, phase)
	defer span.End()

	start := time.Now()
	panicked, err := r.invoke(ctx, st.reg.Pass, f)
	elapsed := time.Since(start)

	run := pipeline.PassRun{Name: name, Phase: phase, Duration: elapsed}
	result := ResultOK

	if err != nil {
		pe := &pipeline.PassError{Pass: name, Frame: f.Number, Panicked: panicked, Cause: err}
		f.Report.Faults = append(f.Report.Faults, pe)
		run.Error = pe.Error()
		result = ResultError
		if panicked {
			result = ResultPanic
		}
		r.logger.ErrorContext(ctx, "pass failed",
			"error", err,
			"panicked", panicked,
		)
	}
	tracing.SetStatus(span, err)

	if !st.host {
		r.metrics.RecordPass(name, result, elapsed)
	}
	return run
}

// invoke calls pass.Run and converts a panic into an error.
func (r *Runner) invoke(ctx context.Context, pass pipeline.Pass, f *pipeline.Frame) (panicked bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.DebugContext(ctx, "pass panic stack", "stack", string(debug.Stack()))
			panicked = true
			err = fmt.Errorf("%v", rec)
		}
	}()
	return false, pass.Run(ctx, f)
}
