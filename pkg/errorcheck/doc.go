// Package errorcheck holds the policy table that decides, per host validation
// error category, whether a failure may be suppressed.
//
// Every category known to the host validator has exactly one ErrorCheck
// record. A record carries a DisablePolicy:
//
//   - Never: the check is never suppressed.
//   - WithAnarchy: the check is suppressed while anarchy mode applies to the
//     active tool.
//   - Always: the check is suppressed on every frame.
//
// Records are ordered by a dense, zero-based display index. The index is bound
// to the category through the catalog order in catalog.go, which is
// append-only, so persisted (index, policy) pairs stay valid across releases.
//
// # Snapshots
//
// The Registry is copy-on-write. Readers call Snapshot once per frame and use
// the immutable view for the whole frame; setters publish a new snapshot that
// becomes visible on the next frame:
//
//	registry := errorcheck.NewDefaultRegistry(store, logger)
//	snap := registry.Snapshot()
//	if snap.Disables(errorcheck.OverlapExisting, anarchyApplies) {
//	    // overlap is allowed this frame
//	}
package errorcheck
