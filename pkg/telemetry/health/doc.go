// Package health serves liveness, readiness and version endpoints next to
// the metrics endpoint of a long-running simulation.
//
// Readiness aggregates named component checks:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("settings", func(ctx context.Context) error {
//	    _, err := store.Load(ctx)
//	    return err
//	})
//	checker.Register(mux, version, commit, buildTime)
//
// /ready answers 503 with status "degraded" while any check fails.
package health
