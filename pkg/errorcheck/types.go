package errorcheck

import (
	"fmt"
	"strings"
)

// Category identifies a validation rule evaluated by the host engine.
type Category string

// String returns the category identifier.
func (c Category) String() string {
	return string(c)
}

// DisablePolicy governs when a check may be suppressed.
type DisablePolicy int

const (
	// Never keeps the check enabled in every mode.
	Never DisablePolicy = iota

	// WithAnarchy suppresses the check while anarchy mode applies.
	WithAnarchy

	// Always suppresses the check on every frame.
	Always
)

// String returns the policy name.
func (p DisablePolicy) String() string {
	switch p {
	case Never:
		return "Never"
	case WithAnarchy:
		return "WithAnarchy"
	case Always:
		return "Always"
	default:
		return fmt.Sprintf("DisablePolicy(%d)", int(p))
	}
}

// Valid reports whether p is one of the defined policies.
func (p DisablePolicy) Valid() bool {
	return p >= Never && p <= Always
}

// Disables reports whether a check with this policy is suppressed given the
// anarchy state of the current frame.
func (p DisablePolicy) Disables(anarchyApplies bool) bool {
	switch p {
	case Always:
		return true
	case WithAnarchy:
		return anarchyApplies
	default:
		return false
	}
}

// ParsePolicy parses a policy by name (case-insensitive) or by its numeric
// value ("0", "1", "2").
func ParsePolicy(s string) (DisablePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never", "0":
		return Never, nil
	case "withanarchy", "with_anarchy", "with-anarchy", "1":
		return WithAnarchy, nil
	case "always", "2":
		return Always, nil
	default:
		return Never, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// MarshalYAML encodes the policy by name.
func (p DisablePolicy) MarshalYAML() (interface{}, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPolicy, int(p))
	}
	return p.String(), nil
}

// UnmarshalYAML decodes a policy name or number.
func (p *DisablePolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParsePolicy(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Severity classifies a raised validation result.
type Severity int

const (
	// SeverityWarning results do not block placement.
	SeverityWarning Severity = iota

	// SeverityError results block placement.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// ErrorCheck is the policy record for one category.
type ErrorCheck struct {
	// Category is the host validation rule this record governs.
	Category Category

	// LocaleKey is the localization key used by the options UI.
	LocaleKey string

	// Policy is the active disable policy.
	Policy DisablePolicy

	// DefaultPolicy is the built-in policy restored when no user value exists.
	DefaultPolicy DisablePolicy

	// Index is the stable display ordinal.
	Index int
}

// PolicyEntry is the persisted form of one user policy: a flat
// (index, policy) pair.
type PolicyEntry struct {
	Index  int           `yaml:"index"`
	Policy DisablePolicy `yaml:"policy"`
}

func localeKey(c Category) string {
	return fmt.Sprintf("Anarchy.ErrorCheck[%s]", c)
}
