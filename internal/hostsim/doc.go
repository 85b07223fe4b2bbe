// Package hostsim is a reference host for the anarchy pipeline.
//
// It stands in for the game engine around the passes: a persistent World of
// committed entities and network nodes over simple terrain, the host systems
// the passes order themselves against (raycast_init, tooltip, temp_creation,
// transform_reset, validation, culling), and a Validator that raises error
// results per category unless the category is disabled.
//
// The host behaves the way the engine does without overrides: temp objects
// are nudged off overlapping geometry, heights snap to terrain, overlapping
// placements replace what they overlap on commit and the validator rewrites
// composition on sloped segments. The passes undo exactly that.
//
// A Simulator drives the host frame by frame from a YAML Scenario.
package hostsim
