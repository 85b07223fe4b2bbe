// Package settings persists the user's error check policies.
//
// The policy table is stored as a flat list of (index, policy) pairs. Three
// backends implement Store:
//
//   - memory: process-local, for tests and throwaway runs
//   - file: a YAML document written atomically
//   - sqlite: one row per index, using the pure Go "sqlite" driver or the
//     cgo "sqlite3" driver
//
// Every Store satisfies errorcheck.Persister, so a registry created with a
// store saves on each policy change:
//
//	store, err := settings.Open(&cfg.Settings, logger)
//	if err != nil {
//		return err
//	}
//	store = settings.Instrument(store, collector)
//	registry := errorcheck.NewDefaultRegistry(store, logger)
//	if err := settings.Restore(ctx, store, registry); err != nil {
//		logger.Warn("using default policies", "error", err)
//	}
//
// With the file backend a Watcher can pick up external edits. Reloaded
// entries are staged and applied between frames by ApplyPending.
package settings
