package pipeline

import "skyline-hq/anarchy/pkg/errorcheck"

// Names of host-owned systems passes order themselves against.
const (
	SystemRaycastInit    = "raycast_init"
	SystemTooltip        = "tooltip"
	SystemTempCreation   = "temp_creation"
	SystemTransformReset = "transform_reset"
	SystemValidation     = "validation"
	SystemCulling        = "culling"
)

// Pass names.
const (
	PassElevationCapture  = "elevation.capture"
	PassGradeCapture      = "grade.capture"
	PassTransform         = "transform.consistency"
	PassElevationApply    = "elevation.apply"
	PassGradeApply        = "grade.apply"
	PassCompositionModify = "composition.modify"
	PassSuppress          = "errorcheck.suppress"
	PassRestore           = "errorcheck.restore"
	PassCompositionReset  = "composition.reset"
	PassPreventOverride   = "override.prevent"
	PassRemoveOverridden  = "override.remove_overridden"
	PassPreventCulling    = "override.prevent_culling"
)

// Validator is the host validator's active check configuration.
type Validator interface {
	// DisableCheck stops the validator from raising a category.
	DisableCheck(c errorcheck.Category)

	// EnableCheck re-enables a category.
	EnableCheck(c errorcheck.Category)

	// CheckDisabled reports whether a category is currently disabled.
	CheckDisabled(c errorcheck.Category) bool
}

// Readier is implemented by passes that need a host system. A pass whose
// Ready returns an error is disabled when the schedule is built.
type Readier interface {
	Ready() error
}
