package rollup

import (
	"cmp"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

var cumulatedLevels = []domain.Level{domain.LevelRegional, domain.LevelCountry, domain.LevelRegion}

type seriesKey struct {
	code      string
	country   string
	region    string
	hasRegion bool
}

func seriesOf(r domain.Row) seriesKey {
	k := seriesKey{code: r.Code, country: r.Country}
	if r.Region != nil {
		k.region, k.hasRegion = *r.Region, true
	}
	return k
}

func byYear(a, b domain.Row) int { return cmp.Compare(a.Year, b.Year) }

func selectRows(rows []domain.Row, keep func(domain.Row) bool) []domain.Row {
	var out []domain.Row
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// cumulateCounts adds running totals to additive indicators. The current
// phase total ignores legacy values and is null on legacy rows.
func cumulateCounts(rows []domain.Row) []domain.Row {
	var out []domain.Row
	for _, level := range cumulatedLevels {
		batch := selectRows(rows, func(r domain.Row) bool {
			return r.Level == level && r.Unit != nil && r.Unit.Additive()
		})
		sortStable(batch, byYear)

		total := make(map[seriesKey]float64)
		current := make(map[seriesKey]float64)
		for i := range batch {
			r := &batch[i]
			k := seriesOf(*r)
			var v float64
			if r.Value != nil {
				v = *r.Value
			}
			total[k] += v
			if r.Phase == domain.PhaseCurrent {
				current[k] += v
			}
			r.CumulatedValue = domain.Float(total[k])
			if r.Phase == domain.PhaseLegacy {
				r.CumulatedValueCurrent = nil
			} else {
				r.CumulatedValueCurrent = domain.Float(current[k])
			}
		}
		out = append(out, batch...)
	}
	return out
}

// cumulateRatios adds running numerator and denominator sums to current
// phase percent rows. Legacy percent rows keep their own value and get no
// cumulative figures.
func cumulateRatios(rows []domain.Row) []domain.Row {
	var out []domain.Row
	for _, level := range cumulatedLevels {
		batch := selectRows(rows, func(r domain.Row) bool {
			return r.Level == level && r.UnitIs(domain.UnitPercent) && r.Phase == domain.PhaseCurrent
		})
		sortStable(batch, byYear)

		nums := make(map[seriesKey]float64)
		dens := make(map[seriesKey]float64)
		for i := range batch {
			r := &batch[i]
			k := seriesOf(*r)
			if r.Numerator != nil {
				nums[k] += *r.Numerator
			}
			if r.Denominator != nil {
				dens[k] += *r.Denominator
			}
			r.CumulatedNumerator = domain.Float(nums[k])
			r.CumulatedDenominator = domain.Float(dens[k])
			r.CumulatedValue = domain.Quotient(nums[k], dens[k])
			r.CumulatedValueCurrent = r.CumulatedValue
		}
		out = append(out, batch...)
	}
	for _, r := range rows {
		if r.UnitIs(domain.UnitPercent) && r.Phase == domain.PhaseLegacy {
			r.CumulatedNumerator, r.CumulatedDenominator = nil, nil
			r.CumulatedValue, r.CumulatedValueCurrent = nil, nil
			out = append(out, r)
		}
	}
	return out
}

// cumulateBooleans echoes each period's value; booleans do not accumulate.
func cumulateBooleans(rows []domain.Row) []domain.Row {
	out := selectRows(rows, func(r domain.Row) bool { return r.UnitIs(domain.UnitBoolean) })
	for i := range out {
		out[i].CumulatedValue = out[i].Value
		out[i].CumulatedValueCurrent = out[i].Value
	}
	return out
}

// Cumulate computes running figures per code, country and region over the
// years, with semantics chosen by unit. Rows without a unit are dropped.
// The result is sorted by code, country, region and year.
func Cumulate(rows []domain.Row) []domain.Row {
	var out []domain.Row
	out = append(out, cumulateCounts(rows)...)
	out = append(out, cumulateRatios(rows)...)
	out = append(out, cumulateBooleans(rows)...)
	sortStable(out, func(a, b domain.Row) int {
		return cmp.Or(
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.Country, b.Country),
			domain.CompareStrPtr(a.Region, b.Region),
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.Level, b.Level),
		)
	})
	return out
}

// Project converts cumulated rows to the published schema.
func Project(rows []domain.Row) []domain.OutputRow {
	out := make([]domain.OutputRow, len(rows))
	for i, r := range rows {
		out[i] = r.Output()
	}
	return out
}
