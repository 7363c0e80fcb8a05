package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		assert.InDelta(t, 111.19, Haversine(0, 0, 0, 1), 0.5)
	})

	t.Run("same point", func(t *testing.T) {
		assert.Equal(t, 0.0, Haversine(14.69, -17.44, 14.69, -17.44))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, Haversine(12.37, -1.52, 13.51, 2.11), Haversine(13.51, 2.11, 12.37, -1.52), 1e-9)
	})
}

func TestAssignIdentities(t *testing.T) {
	// 0.006 degrees of latitude is about 0.67 km.
	pt := func(lat float64) *Coordinates { return &Coordinates{Lat: lat, Lon: 0} }

	t.Run("transitive merge", func(t *testing.T) {
		sites := []Site{
			{Localite: "Dori", Coordinates: pt(0)},
			{Localite: "Dori", Coordinates: pt(0.006)},
			{Localite: "Dori", Coordinates: pt(0.012)},
		}
		require.Greater(t, Haversine(0, 0, 0.012, 0), 1.0)

		assert.Equal(t, []int{0, 0, 0}, AssignIdentities(sites, 1.0))
	})

	t.Run("different localite never merges", func(t *testing.T) {
		sites := []Site{
			{Localite: "Dori", Coordinates: pt(0)},
			{Localite: "Gorom", Coordinates: pt(0.001)},
		}
		assert.Equal(t, []int{0, 1}, AssignIdentities(sites, 1.0))
	})

	t.Run("empty localite and missing coordinates are left alone", func(t *testing.T) {
		sites := []Site{
			{Localite: "", Coordinates: pt(0)},
			{Localite: "", Coordinates: pt(0)},
			{Localite: "Dori", Coordinates: nil},
			{Localite: "Dori", Coordinates: pt(0)},
		}
		assert.Equal(t, []int{0, 1, 2, 3}, AssignIdentities(sites, 1.0))
	})

	t.Run("group takes smallest index", func(t *testing.T) {
		sites := []Site{
			{Localite: "Kaya", Coordinates: pt(5)},
			{Localite: "Dori", Coordinates: pt(0)},
			{Localite: "Kaya", Coordinates: pt(10)},
			{Localite: "Dori", Coordinates: pt(0.002)},
			{Localite: "Kaya", Coordinates: pt(10.001)},
		}
		assert.Equal(t, []int{0, 1, 2, 1, 2}, AssignIdentities(sites, 1.0))
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		sites := []Site{
			{Localite: "Dori", Coordinates: pt(0)},
			{Localite: "Dori", Coordinates: pt(0.01)},
		}
		d := Haversine(0, 0, 0.01, 0)
		assert.Equal(t, []int{0, 0}, AssignIdentities(sites, d))
	})
}

func TestDeduplicate(t *testing.T) {
	g := Geography{Localite: "LPE5", Coordinates: "LPE7"}
	src := NewTable(SurveyWaterPoints, []Record{
		{"LPE5": "Dori", "LPE7": map[string]any{"coordinates": []any{14.0, -0.03}}},
		{"LPE5": "Dori", "LPE7": "14.001 -0.03 300 5"},
		{"LPE5": "Dori"},
	})

	out := Deduplicate(src, g, DefaultDedupDistanceKm)

	require.Len(t, out.Records, 3)
	assert.Equal(t, 0, out.Records[0][InfrastructureIDColumn])
	assert.Equal(t, 0, out.Records[1][InfrastructureIDColumn])
	assert.Equal(t, 2, out.Records[2][InfrastructureIDColumn])
	assert.True(t, out.HasColumns(InfrastructureIDColumn))
	assert.NotContains(t, src.Records[0], InfrastructureIDColumn, "input must not be mutated")
}
