// Package frame schedules and runs the per-frame passes.
//
// A Scheduler collects host systems (owned by the host and never disabled)
// and pipeline registrations, then resolves them into a Schedule: phases run
// in order, and within a phase the After/Before constraints are satisfied
// with ties kept in registration order. A pass whose constraints name an
// unknown system, or whose Ready method fails, is disabled with a single
// warning instead of aborting the build.
//
// A Runner executes the schedule against one pipeline.Frame at a time:
//
//	sched, err := scheduler.Build()
//	if err != nil {
//		return err
//	}
//	runner := frame.NewRunner(sched, frame.Options{Metrics: m, Tracer: t, Logger: logger})
//	report := runner.Run(ctx, p.BeginFrame(n, tool, set))
//
// Faults and panics are recorded on the report and the frame continues.
// Once the context is cancelled only mandatory passes run, so checks the
// suppressor disabled are always re-enabled.
package frame
