package rollup

import (
	"slices"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// aggKind selects the aggregation function of a group.
type aggKind int

const (
	aggSum aggKind = iota
	aggWeightedRatio
	aggMeanRatio
	aggAll
)

func kindOf(r domain.Row) (aggKind, bool) {
	if r.Unit == nil {
		return 0, false
	}
	switch u := *r.Unit; {
	case u.Additive():
		return aggSum, true
	case u == domain.UnitPercent && r.HasFraction():
		return aggWeightedRatio, true
	case u == domain.UnitPercent:
		return aggMeanRatio, true
	case u == domain.UnitBoolean:
		return aggAll, true
	}
	return 0, false
}

type groupKey struct {
	kind      aggKind
	code      string
	name      string
	unit      domain.Unit
	year      int
	phase     domain.Phase
	country   string
	region    string
	hasRegion bool
}

type group struct {
	first   domain.Row
	values  []float64
	num     float64
	den     float64
	allTrue bool
}

// roll aggregates the rows of level from into level to. Rows without a unit
// are not aggregated.
func roll(rows []domain.Row, from, to domain.Level) []domain.Row {
	groups := make(map[groupKey]*group)
	var order []groupKey

	for _, r := range rows {
		if r.Level != from {
			continue
		}
		kind, ok := kindOf(r)
		if !ok {
			continue
		}
		k := groupKey{kind: kind, code: r.Code, unit: *r.Unit, year: r.Year, phase: r.Phase}
		if r.Name != nil {
			k.name = *r.Name
		}
		if to != domain.LevelRegional {
			k.country = r.Country
		}
		if to == domain.LevelRegion && r.Region != nil {
			k.region, k.hasRegion = *r.Region, true
		}

		g, ok := groups[k]
		if !ok {
			g = &group{first: r, allTrue: true}
			groups[k] = g
			order = append(order, k)
		}
		if r.Value != nil {
			g.values = append(g.values, *r.Value)
			if *r.Value == 0 {
				g.allTrue = false
			}
		}
		if r.HasFraction() {
			g.num += *r.Numerator
			g.den += *r.Denominator
		}
	}

	// Kinds are emitted in a fixed order so the weighted ratio of a mixed
	// percent group wins the later de-duplication.
	slices.SortStableFunc(order, func(a, b groupKey) int { return int(a.kind) - int(b.kind) })

	out := make([]domain.Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		row := domain.Row{
			Code:  g.first.Code,
			Name:  g.first.Name,
			Unit:  g.first.Unit,
			Year:  g.first.Year,
			Date:  domain.YearStart(g.first.Year),
			Phase: g.first.Phase,
			Level: to,
		}
		switch to {
		case domain.LevelRegional:
			row.Country = domain.RegionalCountry
		case domain.LevelRegion:
			row.Country = g.first.Country
			row.Region = g.first.Region
		default:
			row.Country = g.first.Country
		}

		switch k.kind {
		case aggSum:
			var total float64
			for _, v := range g.values {
				total += v
			}
			row.Value = domain.Float(total)
		case aggWeightedRatio:
			row.Numerator = domain.Float(g.num)
			row.Denominator = domain.Float(g.den)
			row.Value = domain.Quotient(g.num, g.den)
		case aggMeanRatio:
			if len(g.values) > 0 {
				var total float64
				for _, v := range g.values {
					total += v
				}
				row.Value = domain.Float(domain.Round3(total / float64(len(g.values))))
			}
		case aggAll:
			row.Value = domain.Float(0)
			if g.allTrue {
				row.Value = domain.Float(1)
			}
		}
		out = append(out, row)
	}
	return out
}

// Aggregate rolls localité rows up to regions, regions up to countries and
// countries up to the regional level, each roll feeding the next. The
// result holds levels 1 to 3 only, one row per code, year, level, country
// and region (first occurrence wins), sorted by code, year, country and
// region.
func Aggregate(rows []domain.Row) []domain.Row {
	all := slices.Clone(rows)
	all = append(all, roll(all, domain.LevelLocalite, domain.LevelRegion)...)
	all = append(all, roll(all, domain.LevelRegion, domain.LevelCountry)...)
	all = append(all, roll(all, domain.LevelCountry, domain.LevelRegional)...)

	kept := make([]domain.Row, 0, len(all))
	for _, r := range all {
		if r.Level > domain.LevelRegion {
			continue
		}
		r.Province, r.Commune, r.Localite, r.Coordinates = nil, nil, nil, nil
		kept = append(kept, r)
	}
	kept = unique(kept, true)
	sortStable(kept, compareKey)
	return kept
}
