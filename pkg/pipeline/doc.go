// Package pipeline implements the per-frame override passes that run around
// the host engine's placement validation.
//
// # Phases
//
// Every frame is split into phases. Host-owned systems and the passes in this
// package are ordered inside a phase by explicit Before/After constraints
// (see Slot); phases themselves always run in this order:
//
//	PhaseToolUpdate       elevation.capture, grade.capture
//	PhaseModification     transform.consistency, elevation.apply, grade.apply,
//	                      composition.modify, errorcheck.suppress
//	PhaseValidation       host validation
//	PhasePostValidation   errorcheck.restore, composition.reset,
//	                      override.prevent, override.remove_overridden
//	PhaseRendering        override.prevent_culling
//
// Passes only communicate through component state on the frame's
// placement.WorkingSet and through the frame Report.
//
// # Anarchy off
//
// When anarchy mode does not apply to the active tool every pass leaves the
// working set untouched, except that checks whose policy is Always are still
// suppressed. The default policy table contains no Always entries.
//
// # Restoration
//
// errorcheck.restore is mandatory: the frame runner executes it even if an
// earlier pass failed, panicked, or the frame context was cancelled, so the
// host validator never carries disabled checks into the next frame.
package pipeline
