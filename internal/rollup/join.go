// Package rollup turns combined indicator rows into the published table:
// metadata join, spatial aggregation, gap filling and cumulation.
package rollup

import (
	"cmp"
	"slices"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// JoinMetadata attaches the display name and unit of each row's code and
// normalizes its date to a year. Codes without metadata keep null name and
// unit; no row is dropped.
func JoinMetadata(rows []domain.Row, meta []domain.Metadata) []domain.Row {
	byCode := make(map[string]domain.Metadata, len(meta))
	for _, m := range meta {
		if _, dup := byCode[m.Code]; !dup {
			byCode[m.Code] = m
		}
	}

	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		r.Name, r.Unit = nil, nil
		if m, ok := byCode[r.Code]; ok {
			r.Name = domain.Str(m.Designation)
			if m.Unit != "" {
				r.Unit = domain.UnitPtr(m.Unit)
			}
		}
		if !r.Date.IsZero() {
			r.Year = r.Date.Year()
		}
		r.Date = domain.YearStart(r.Year)
		out[i] = r
	}
	return out
}

// compareKey orders rows by code, year, country and region with null
// regions first.
func compareKey(a, b domain.Row) int {
	return cmp.Or(
		cmp.Compare(a.Code, b.Code),
		cmp.Compare(a.Year, b.Year),
		cmp.Compare(a.Country, b.Country),
		domain.CompareStrPtr(a.Region, b.Region),
	)
}

// uniqueKey identifies a row by code, year, country and region, optionally
// with its level.
type uniqueKey struct {
	code      string
	year      int
	level     domain.Level
	country   string
	region    string
	hasRegion bool
}

func keyOf(r domain.Row, withLevel bool) uniqueKey {
	k := uniqueKey{code: r.Code, year: r.Year, country: r.Country}
	if withLevel {
		k.level = r.Level
	}
	if r.Region != nil {
		k.region, k.hasRegion = *r.Region, true
	}
	return k
}

// unique keeps the first row of every key, preserving order.
func unique(rows []domain.Row, withLevel bool) []domain.Row {
	seen := make(map[uniqueKey]bool, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		k := keyOf(r, withLevel)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func sortStable(rows []domain.Row, cmpFn func(a, b domain.Row) int) {
	slices.SortStableFunc(rows, cmpFn)
}
