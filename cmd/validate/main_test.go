package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cdr-indicators-etl/internal/adapter/file"
	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
	"github.com/couchcryptid/cdr-indicators-etl/internal/rollup"
)

// published runs the roll-up stages over a small count indicator with one
// legacy and two current-phase values.
func published() []domain.OutputRow {
	unit := domain.UnitPtr(domain.UnitCount)
	row := func(year int, phase domain.Phase, level domain.Level, country string, region *string, v float64) domain.Row {
		return domain.Row{
			Code: "IRI-6", Name: domain.Str("Points d'eau"), Unit: unit,
			Date: domain.YearStart(year), Year: year, Phase: phase, Level: level,
			Country: country, Region: region, Value: domain.Float(v),
		}
	}
	rows := []domain.Row{
		row(2020, domain.PhaseLegacy, domain.LevelCountry, "Niger", nil, 10),
		row(2022, domain.PhaseCurrent, domain.LevelLocalite, "Niger", domain.Str("Tahoua"), 3),
		row(2023, domain.PhaseCurrent, domain.LevelLocalite, "Niger", domain.Str("Tahoua"), 4),
	}
	return rollup.Project(rollup.Cumulate(rollup.Fill(rollup.Aggregate(rows))))
}

func failed(phases []*phase) map[string][]string {
	out := make(map[string][]string)
	for _, p := range phases {
		if !p.passed() {
			out[p.name] = p.errors
		}
	}
	return out
}

func TestValidate_PublishedTablePasses(t *testing.T) {
	rows := published()
	require.NotEmpty(t, rows)
	assert.Empty(t, failed(validate(rows)))
}

func TestValidate_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]domain.OutputRow) []domain.OutputRow
		phase  string
	}{
		{"locality level", func(r []domain.OutputRow) []domain.OutputRow {
			r[0].Level = 6
			return r
		}, "Schema values"},
		{"bad date", func(r []domain.OutputRow) []domain.OutputRow {
			r[0].Date = "2022-03-14"
			return r
		}, "Schema values"},
		{"duplicate key", func(r []domain.OutputRow) []domain.OutputRow {
			return append(r, r[0])
		}, "Key uniqueness"},
		{"no reset", func(r []domain.OutputRow) []domain.OutputRow {
			for i := range r {
				if r[i].Project == "PRAPS1" {
					r[i].CumulativeValuePRAPS2 = r[i].CumulativeValue
				}
			}
			return r
		}, "Current-phase cumulative reset"},
		{"wrong total", func(r []domain.OutputRow) []domain.OutputRow {
			last := len(r) - 1
			r[last].CumulativeValue = domain.Float(*r[last].CumulativeValue + 1)
			return r
		}, "Cumulative totals"},
		{"missing filler", func(r []domain.OutputRow) []domain.OutputRow {
			out := r[:0]
			for _, row := range r {
				if !(row.Level == 1 && row.Year == 2022) {
					out = append(out, row)
				}
			}
			return out
		}, "Filler completeness"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := failed(validate(tt.mutate(published())))
			assert.Contains(t, got, tt.phase)
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	w := file.NewWriter(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.Load(context.Background(), published()))

	assert.Equal(t, 0, run(filepath.Join(dir, file.JSONFile)))
	assert.Equal(t, 1, run(filepath.Join(dir, "missing.json")))

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`[{"indicator_code":"X","level":9,"year":2022,"date":"2022-01-01"}]`), 0o600))
	assert.Equal(t, 1, run(broken))
}
