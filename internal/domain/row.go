package domain

import "time"

// Level is the geographic granularity of an indicator row.
type Level int

const (
	LevelRegional Level = 1
	LevelCountry  Level = 2
	LevelRegion   Level = 3
	LevelLocalite Level = 6
)

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelRegional, LevelCountry, LevelRegion, LevelLocalite:
		return true
	}
	return false
}

// Phase identifies the program iteration that produced a value.
type Phase string

const (
	PhaseLegacy  Phase = "PRAPS1"
	PhaseCurrent Phase = "PRAPS2"

	// LastLegacyYear is the final year attributed to the legacy phase.
	LastLegacyYear = 2021
)

// PhaseForYear returns the phase a year belongs to.
func PhaseForYear(year int) Phase {
	if year <= LastLegacyYear {
		return PhaseLegacy
	}
	return PhaseCurrent
}

// Unit is the value-type tag carried by indicator metadata.
type Unit string

const (
	UnitCount   Unit = "count"
	UnitWeight  Unit = "weight"
	UnitSurface Unit = "surface"
	UnitPercent Unit = "percent"
	UnitBoolean Unit = "boolean"
)

// Additive reports whether values of this unit are summed.
func (u Unit) Additive() bool {
	return u == UnitCount || u == UnitWeight || u == UnitSurface
}

// Valid reports whether u is a known unit tag.
func (u Unit) Valid() bool {
	return u.Additive() || u == UnitPercent || u == UnitBoolean
}

// RegionalCountry is the synthetic country of level-1 rows.
const RegionalCountry = "Régional"

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Row is the canonical indicator row flowing through every stage. Pointer
// fields are nullable; Region is nil for rows above level 3.
type Row struct {
	Code  string
	Name  *string
	Unit  *Unit
	Date  time.Time
	Year  int
	Phase Phase
	Level Level

	Country     string
	Region      *string
	Province    *string
	Commune     *string
	Localite    *string
	Coordinates *Coordinates

	Numerator   *float64
	Denominator *float64
	Value       *float64

	CumulatedNumerator    *float64
	CumulatedDenominator  *float64
	CumulatedValue        *float64
	CumulatedValueCurrent *float64
}

// HasFraction reports whether both numerator and denominator are present.
func (r Row) HasFraction() bool {
	return r.Numerator != nil && r.Denominator != nil
}

// UnitIs reports whether the row carries the given unit.
func (r Row) UnitIs(u Unit) bool {
	return r.Unit != nil && *r.Unit == u
}

// RegionKey returns the region or "" for rows without one.
func (r Row) RegionKey() string {
	if r.Region == nil {
		return ""
	}
	return *r.Region
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// UnitPtr returns a pointer to u.
func UnitPtr(u Unit) *Unit { return &u }

// CompareStrPtr orders nil before any string.
func CompareStrPtr(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
