// Command validate re-checks a published indicator table: schema values,
// key uniqueness, the current-phase cumulative reset, running totals of
// additive indicators, and the presence of a row for every expected year and
// geography.
//
// Usage:
//
//	go run ./cmd/validate -input data/cdr/indicateurs.json
package main

import (
	"cmp"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/cdr-indicators-etl/internal/adapter/file"
	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
	"github.com/couchcryptid/cdr-indicators-etl/internal/rollup"
)

const tolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "", "path to indicateurs.json")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*input))
}

func run(path string) int {
	fmt.Println("=== CDR Indicator Integrity Validation ===")
	fmt.Println()

	rows, err := file.ReadOutput(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := validate(rows)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}
	fmt.Printf("\nRows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(rows []domain.OutputRow) []*phase {
	return []*phase{
		validateSchema(rows),
		validateUniqueness(rows),
		validatePhaseReset(rows),
		validateRunningTotals(rows),
		validateCompleteness(rows),
	}
}

// ── Phases ──

func validateSchema(rows []domain.OutputRow) *phase {
	p := &phase{name: "Schema values"}
	for i, r := range rows {
		level := domain.Level(r.Level)
		if !level.Valid() || level == domain.LevelLocalite {
			p.errorf("row %d (%s): level %d is not published", i, r.Key(), r.Level)
		}
		if r.Project != string(domain.PhaseLegacy) && r.Project != string(domain.PhaseCurrent) {
			p.errorf("row %d (%s): unknown project %q", i, r.Key(), r.Project)
		}
		if want := fmt.Sprintf("%04d-01-01", r.Year); r.Date != want {
			p.errorf("row %d (%s): date %q, want %q", i, r.Key(), r.Date, want)
		}
		if r.Unit == nil || !domain.Unit(*r.Unit).Valid() {
			p.errorf("row %d (%s): missing or unknown unit", i, r.Key())
		}
		if level == domain.LevelRegional && r.Country != domain.RegionalCountry {
			p.errorf("row %d (%s): regional row has country %q", i, r.Key(), r.Country)
		}
		if level == domain.LevelRegion && r.Region == nil {
			p.errorf("row %d (%s): region row without region", i, r.Key())
		}
	}
	return p
}

func validateUniqueness(rows []domain.OutputRow) *phase {
	p := &phase{name: "Key uniqueness"}
	seen := make(map[string]int, len(rows))
	for i, r := range rows {
		if prev, ok := seen[r.Key()]; ok {
			p.errorf("rows %d and %d share key %s", prev, i, r.Key())
			continue
		}
		seen[r.Key()] = i
	}
	return p
}

func additive(r domain.OutputRow) bool {
	return r.Unit != nil && domain.Unit(*r.Unit).Additive()
}

func validatePhaseReset(rows []domain.OutputRow) *phase {
	p := &phase{name: "Current-phase cumulative reset"}
	for i, r := range rows {
		legacy := r.Project == string(domain.PhaseLegacy)
		switch {
		case legacy && r.CumulativeValuePRAPS2 != nil && (additive(r) || isPercent(r)):
			p.errorf("row %d (%s): legacy row carries cumulative_value_praps2", i, r.Key())
		case !legacy && additive(r) && r.CumulativeValuePRAPS2 == nil:
			p.errorf("row %d (%s): current row lacks cumulative_value_praps2", i, r.Key())
		}
	}
	return p
}

func isPercent(r domain.OutputRow) bool {
	return r.Unit != nil && domain.Unit(*r.Unit) == domain.UnitPercent
}

type series struct {
	code, country, region string
	level                 int
}

func seriesOf(r domain.OutputRow) series {
	s := series{code: r.IndicatorCode, country: r.Country, level: r.Level}
	if r.Region != nil {
		s.region = *r.Region
	}
	return s
}

// validateRunningTotals recomputes the cumulative value of additive series
// and checks it never decreases while values are non-negative.
func validateRunningTotals(rows []domain.OutputRow) *phase {
	p := &phase{name: "Cumulative totals"}
	bySeries := make(map[series][]domain.OutputRow)
	var order []series
	for _, r := range rows {
		if !additive(r) {
			continue
		}
		s := seriesOf(r)
		if _, ok := bySeries[s]; !ok {
			order = append(order, s)
		}
		bySeries[s] = append(bySeries[s], r)
	}

	for _, s := range order {
		list := bySeries[s]
		slices.SortStableFunc(list, func(a, b domain.OutputRow) int { return cmp.Compare(a.Year, b.Year) })
		total, current := 0.0, 0.0
		for _, r := range list {
			v := 0.0
			if r.Value != nil {
				v = *r.Value
			}
			total += v
			if r.Project == string(domain.PhaseCurrent) {
				current += v
			}
			if r.CumulativeValue == nil || math.Abs(*r.CumulativeValue-total) > tolerance {
				p.errorf("%s: cumulative_value %s, want %g", r.Key(), fmtPtr(r.CumulativeValue), total)
			}
			if r.CumulativeValuePRAPS2 != nil && math.Abs(*r.CumulativeValuePRAPS2-current) > tolerance {
				p.errorf("%s: cumulative_value_praps2 %g, want %g", r.Key(), *r.CumulativeValuePRAPS2, current)
			}
		}
	}
	return p
}

// validateCompleteness checks that every indicator has a regional row and a
// row per reporting country for each year from the first filled year.
func validateCompleteness(rows []domain.OutputRow) *phase {
	p := &phase{name: "Filler completeness"}
	if len(rows) == 0 {
		return p
	}
	maxYear := rows[0].Year
	keys := make(map[string]bool, len(rows))
	countries := make(map[string][]string)
	var codes []string
	for _, r := range rows {
		maxYear = max(maxYear, r.Year)
		keys[r.Key()] = true
		if _, ok := countries[r.IndicatorCode]; !ok {
			codes = append(codes, r.IndicatorCode)
			countries[r.IndicatorCode] = nil
		}
		if r.Level == int(domain.LevelCountry) && !slices.Contains(countries[r.IndicatorCode], r.Country) {
			countries[r.IndicatorCode] = append(countries[r.IndicatorCode], r.Country)
		}
	}

	for _, code := range codes {
		for year := rollup.FirstFilledYear; year <= maxYear; year++ {
			regional := domain.OutputRow{IndicatorCode: code, Country: domain.RegionalCountry, Level: int(domain.LevelRegional), Year: year}
			if !keys[regional.Key()] {
				p.errorf("%s: missing regional row for %d", code, year)
			}
			for _, c := range countries[code] {
				national := domain.OutputRow{IndicatorCode: code, Country: c, Level: int(domain.LevelCountry), Year: year}
				if !keys[national.Key()] {
					p.errorf("%s: missing %s row for %d", code, c, year)
				}
			}
		}
	}
	return p
}

func fmtPtr(f *float64) string {
	if f == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *f)
}
