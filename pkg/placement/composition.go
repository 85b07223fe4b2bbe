package placement

import (
	"math/bits"
	"strings"
)

// Composition is the cross-section flag set of a network segment.
type Composition uint32

const (
	CompositionWideShoulder Composition = 1 << iota
	CompositionLoweredCurb
	CompositionExtraTrack
	CompositionNoCrosswalk
)

// compositionNames is ordered by bit.
var compositionNames = []struct {
	flag Composition
	name string
}{
	{CompositionWideShoulder, "wide_shoulder"},
	{CompositionLoweredCurb, "lowered_curb"},
	{CompositionExtraTrack, "extra_track"},
	{CompositionNoCrosswalk, "no_crosswalk"},
}

// Has reports whether all bits of f are set.
func (c Composition) Has(f Composition) bool {
	return c&f == f
}

// Count returns the number of set flags.
func (c Composition) Count() int {
	return bits.OnesCount32(uint32(c))
}

// Flags returns each set flag individually, lowest bit first.
func (c Composition) Flags() []Composition {
	var out []Composition
	for _, n := range compositionNames {
		if c.Has(n.flag) {
			out = append(out, n.flag)
		}
	}
	return out
}

// String renders the flags as "a|b".
func (c Composition) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range compositionNames {
		if c.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseComposition returns the flag for a name, and false if unknown.
func ParseComposition(name string) (Composition, bool) {
	for _, n := range compositionNames {
		if n.name == name {
			return n.flag, true
		}
	}
	return 0, false
}

// CompositionSnapshot is the author-intended flag set of one segment,
// captured before validation and restored after it.
type CompositionSnapshot struct {
	Entity EntityID
	Flags  Composition
}
