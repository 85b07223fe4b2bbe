package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"skyline-hq/anarchy/internal/hostsim"
	"skyline-hq/anarchy/pkg/bridge"
	"skyline-hq/anarchy/pkg/cli"
	"skyline-hq/anarchy/pkg/pipeline"
	"skyline-hq/anarchy/pkg/telemetry/health"
)

var simulateFlags struct {
	scenario    string
	output      string
	progress    bool
	metricsAddr string
	persist     bool
	failOnFault bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scenario through the pipeline",
	Long: `Run a scripted scenario through the anarchy pipeline against a simulated host.

The scenario file describes the starting world (terrain, nodes, objects and
segments) and a list of tool frames. Each frame may fire UI triggers, place
objects or segments, and commit or discard the result.

Policy overrides in the scenario change the policy table for the run only,
unless --persist is given.

Examples:
  # Run a scenario and print one line per frame
  anarchy simulate --scenario overlap.yaml

  # Full JSON report
  anarchy simulate --scenario overlap.yaml --output json

  # Serve /metrics, /health and /ready while the scenario runs
  anarchy simulate --scenario overlap.yaml --metrics-addr :9090`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simulateFlags.scenario, "scenario", "s", "", "scenario file (required)")
	simulateCmd.Flags().StringVarP(&simulateFlags.output, "output", "o", "text", "output format: text, json, yaml, csv")
	simulateCmd.Flags().BoolVar(&simulateFlags.progress, "progress", false, "show a progress bar on stderr")
	simulateCmd.Flags().StringVar(&simulateFlags.metricsAddr, "metrics-addr", "", "serve metrics and health endpoints on this address")
	simulateCmd.Flags().BoolVar(&simulateFlags.persist, "persist", false, "save policy changes to the settings store")
	simulateCmd.Flags().BoolVar(&simulateFlags.failOnFault, "fail-on-fault", false, "exit non-zero when a pass faulted")
}

// simulationReport is the structured output of a run.
type simulationReport struct {
	Scenario string                 `json:"scenario" yaml:"scenario"`
	Frames   []*hostsim.FrameResult `json:"frames" yaml:"frames"`
	Entities int                    `json:"entities" yaml:"entities"`
	Faults   int                    `json:"faults" yaml:"faults"`
}

// Header returns the CSV and text table columns.
func (r *simulationReport) Header() []string {
	return []string{"frame", "tool", "anarchy", "suppressed", "corrected", "preserved", "restored", "conflicts", "committed", "rejected", "faults"}
}

// Rows returns one row per frame.
func (r *simulationReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Frames))
	n := strconv.Itoa
	for _, f := range r.Frames {
		rows = append(rows, []string{
			strconv.FormatUint(f.Number, 10),
			string(f.Tool),
			strconv.FormatBool(f.Report.AnarchyApplies),
			n(len(f.Report.Suppressed)),
			n(len(f.Report.Corrected)),
			n(len(f.Report.Preserved)),
			n(len(f.Report.Restored)),
			n(len(f.Report.Conflicts)),
			n(len(f.Outcome.Committed)),
			n(len(f.Outcome.Rejected)),
			n(len(f.Faults)),
		})
	}
	return rows
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateFlags.scenario == "" {
		return cli.NewConfigError("--scenario", "a scenario file is required")
	}
	format, err := cli.ParseFormat(simulateFlags.output)
	if err != nil {
		return cli.NewConfigError("--output", err.Error())
	}

	sc, err := hostsim.LoadScenario(simulateFlags.scenario)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}
	world, err := sc.BuildWorld()
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	a, err := newApp(ctx, cmd.ErrOrStderr(), appOptions{persist: simulateFlags.persist, background: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sim, err := hostsim.NewSimulator(world, sc.Limits, hostsim.Deps{
		Registry: a.registry,
		Mode:     a.mode,
		Sessions: a.sessions,
		Pipeline: pipeline.Config{
			MaxNodeElevationDelta: a.cfg.Composition.MaxNodeElevationDelta,
			MaxTrackElevation:     a.cfg.Composition.MaxTrackElevation,
		},
		Watcher: a.watcher,
		Sink: bridge.SinkFunc(func(name string, value any) {
			a.logger.Debug("ui binding updated", "binding", name, "value", value)
		}),
		Metrics: a.metrics,
		Tracer:  a.tracer,
		Logger:  a.logger,
	})
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}
	for _, d := range sim.Schedule().Disabled() {
		a.logger.Warn("pass disabled", "pass", d.Name, "phase", d.Phase.String(), "error", d.Err)
	}

	if simulateFlags.metricsAddr != "" {
		shutdown := serveTelemetry(a, sim, simulateFlags.metricsAddr)
		defer shutdown()
	}

	out := cmd.OutOrStdout()
	report := &simulationReport{Scenario: sc.Name}

	var progress cli.ProgressReporter
	if simulateFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		progress.Start(int64(hostsim.Frames(sc)))
	}

	err = sim.Run(ctx, sc, func(res *hostsim.FrameResult) error {
		report.Frames = append(report.Frames, res)
		report.Faults += len(res.Faults)
		if progress != nil {
			progress.Update(int64(len(report.Frames)))
		} else if format == cli.FormatText {
			fmt.Fprintln(out, res.Summary())
		}
		return nil
	})
	if err != nil {
		if progress != nil {
			progress.Error(err)
		}
		if errors.Is(err, hostsim.ErrInvalidScenario) {
			return cli.NewConfigError(simulateFlags.scenario, err.Error())
		}
		return cli.NewCommandError("simulate", err)
	}
	if progress != nil {
		progress.Finish()
	}
	report.Entities = sim.Host().World().Len()

	if format != cli.FormatText || progress != nil {
		if err := cli.NewFormatter(format).FormatTo(out, report); err != nil {
			return cli.NewCommandError("simulate", err)
		}
	}

	if simulateFlags.failOnFault && report.Faults > 0 {
		return cli.NewCommandError("simulate", fmt.Errorf("%d pass faults", report.Faults))
	}
	return nil
}

// serveTelemetry serves /metrics beside the health endpoints and returns a
// function that shuts the server down.
func serveTelemetry(a *app, sim *hostsim.Simulator, addr string) func() {
	mux := http.NewServeMux()
	if a.metrics != nil {
		mux.Handle("/metrics", a.metrics.Handler())
	}

	checker := health.New(2 * time.Second)
	checker.RegisterCheck("settings", func(ctx context.Context) error {
		_, err := a.store.Load(ctx)
		return err
	})
	checker.RegisterCheck("schedule", func(context.Context) error {
		for _, d := range sim.Schedule().Disabled() {
			if d.Name == pipeline.PassRestore {
				return fmt.Errorf("%s disabled: %v", d.Name, d.Err)
			}
		}
		return nil
	})
	checker.RegisterCheck("validator", func(context.Context) error {
		if disabled := sim.Host().Validator().Disabled(); len(disabled) > 0 {
			return fmt.Errorf("checks left disabled: %v", disabled)
		}
		return nil
	})
	checker.Register(mux, Version, GitCommit, BuildDate)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("telemetry server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("telemetry server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry server shutdown failed", "error", err)
		}
	}
}
