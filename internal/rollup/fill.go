package rollup

import (
	"slices"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// FirstFilledYear is the first year for which placeholder rows are created.
const FirstFilledYear = 2021

// indicatorShape records the geographies an indicator is reported at.
type indicatorShape struct {
	first     domain.Row
	maxLevel  domain.Level
	countries []string
	regions   map[string][]string
}

// Fill materializes a null row for every expected (code, year, geography)
// combination missing from rows: the regional row always, one row per
// country the indicator reports at level 2, and one row per known region
// when the indicator reaches level 3. Years run from 2021 to the latest
// year present. Existing rows are never replaced.
func Fill(rows []domain.Row) []domain.Row {
	if len(rows) == 0 {
		return nil
	}
	maxYear := rows[0].Year
	for _, r := range rows {
		maxYear = max(maxYear, r.Year)
	}

	shapes := make(map[string]*indicatorShape)
	var codes []string
	for _, r := range rows {
		s, ok := shapes[r.Code]
		if !ok {
			s = &indicatorShape{first: r, regions: make(map[string][]string)}
			shapes[r.Code] = s
			codes = append(codes, r.Code)
		}
		s.maxLevel = max(s.maxLevel, r.Level)
		if r.Level == domain.LevelCountry && !slices.Contains(s.countries, r.Country) {
			s.countries = append(s.countries, r.Country)
		}
		if region := r.RegionKey(); region != "" && !slices.Contains(s.regions[r.Country], region) {
			s.regions[r.Country] = append(s.regions[r.Country], region)
		}
	}

	var fillers []domain.Row
	for _, code := range codes {
		s := shapes[code]
		for year := FirstFilledYear; year <= maxYear; year++ {
			base := domain.Row{
				Code:  code,
				Name:  s.first.Name,
				Unit:  s.first.Unit,
				Year:  year,
				Date:  domain.YearStart(year),
				Phase: domain.PhaseForYear(year),
			}

			regional := base
			regional.Level = domain.LevelRegional
			regional.Country = domain.RegionalCountry
			fillers = append(fillers, regional)

			for _, country := range s.countries {
				if s.maxLevel >= domain.LevelCountry {
					national := base
					national.Level = domain.LevelCountry
					national.Country = country
					fillers = append(fillers, national)
				}
				if s.maxLevel >= domain.LevelRegion {
					for _, region := range s.regions[country] {
						r := base
						r.Level = domain.LevelRegion
						r.Country = country
						r.Region = domain.Str(region)
						fillers = append(fillers, r)
					}
				}
			}
		}
	}

	out := make([]domain.Row, 0, len(rows)+len(fillers))
	out = append(out, rows...)
	out = append(out, fillers...)
	return unique(out, false)
}
