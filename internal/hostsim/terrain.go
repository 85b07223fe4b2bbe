package hostsim

import "math"

// Disc is a circular terrain feature.
type Disc struct {
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
	Radius float64 `yaml:"radius"`

	// Height is the plateau height of a hill. Unused for water.
	Height float64 `yaml:"height"`
}

func (d Disc) contains(x, z float64) bool {
	return math.Hypot(x-d.X, z-d.Z) <= d.Radius
}

// Terrain is a flat ground plane with plateaus, water bodies and a square
// city limit centred on the origin.
type Terrain struct {
	Ground    float64 `yaml:"ground"`
	Hills     []Disc  `yaml:"hills"`
	Water     []Disc  `yaml:"water"`
	CityLimit float64 `yaml:"city_limit"`
}

// HeightAt returns the ground height. Overlapping hills take the highest.
func (t Terrain) HeightAt(x, z float64) float64 {
	h := t.Ground
	for _, hill := range t.Hills {
		if hill.contains(x, z) {
			h = math.Max(h, t.Ground+hill.Height)
		}
	}
	return h
}

// InWater reports whether a point lies inside a water body.
func (t Terrain) InWater(x, z float64) bool {
	for _, w := range t.Water {
		if w.contains(x, z) {
			return true
		}
	}
	return false
}

// InsideLimits reports whether a point is inside the city limit. A zero
// limit is unbounded.
func (t Terrain) InsideLimits(x, z float64) bool {
	if t.CityLimit <= 0 {
		return true
	}
	return math.Abs(x) <= t.CityLimit && math.Abs(z) <= t.CityLimit
}
