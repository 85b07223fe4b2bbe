package errorcheck

// Host validation categories. The order of Catalog below is the display index
// and must only ever be appended to.
const (
	OverlapExisting   Category = "OverlapExisting"
	InvalidShape      Category = "InvalidShape"
	LongDistance      Category = "LongDistance"
	TightCurve        Category = "TightCurve"
	AlreadyUpgraded   Category = "AlreadyUpgraded"
	InWater           Category = "InWater"
	NoWater           Category = "NoWater"
	ExceedsCityLimits Category = "ExceedsCityLimits"
	NotOnShoreline    Category = "NotOnShoreline"
	AlreadyExists     Category = "AlreadyExists"
	ShortDistance     Category = "ShortDistance"
	LowElevation      Category = "LowElevation"
	SmallArea         Category = "SmallArea"
	SteepSlope        Category = "SteepSlope"
	NotOnBorder       Category = "NotOnBorder"
	NoGroundWater     Category = "NoGroundWater"
	OnFire            Category = "OnFire"
	ExceedsLotLimits  Category = "ExceedsLotLimits"
)

// CatalogEntry is a category with its built-in default policy.
type CatalogEntry struct {
	Category      Category
	DefaultPolicy DisablePolicy
}

// Catalog is the closed set of categories the host validator knows about.
// None of the defaults is Always, so a fresh install with anarchy mode off
// behaves exactly like the unmodified validator.
var Catalog = []CatalogEntry{
	{OverlapExisting, WithAnarchy},
	{InvalidShape, WithAnarchy},
	{LongDistance, WithAnarchy},
	{TightCurve, WithAnarchy},
	{AlreadyUpgraded, Never},
	{InWater, WithAnarchy},
	{NoWater, WithAnarchy},
	{ExceedsCityLimits, WithAnarchy},
	{NotOnShoreline, WithAnarchy},
	{AlreadyExists, Never},
	{ShortDistance, WithAnarchy},
	{LowElevation, WithAnarchy},
	{SmallArea, WithAnarchy},
	{SteepSlope, WithAnarchy},
	{NotOnBorder, WithAnarchy},
	{NoGroundWater, WithAnarchy},
	{OnFire, Never},
	{ExceedsLotLimits, WithAnarchy},
}
