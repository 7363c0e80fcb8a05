// Package indicator computes the current-phase indicator rows from survey
// tables and merges them with the legacy-phase values.
package indicator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Data-quality warning kinds.
const (
	WarnVaccinatedExceedsTotal = "vaccinated_exceeds_total"
	WarnZeroDenominator        = "zero_denominator"
	WarnNonNumeric             = "non_numeric_value"
	WarnSourceSkipped          = "source_skipped"
)

// Warning is a non-fatal data-quality finding. The run continues with the
// raw value.
type Warning struct {
	Indicator string
	Kind      string
	Country   string
	Year      int
	Message   string
}

// Result holds the rows of one indicator and the warnings raised while
// computing them.
type Result struct {
	Rows     []domain.Row
	Warnings []Warning
}

func (r *Result) warn(w Warning) { r.Warnings = append(r.Warnings, w) }

// Func computes one indicator from the run's sources. Sources are read-only.
type Func func(src domain.Sources) (Result, error)

// Calculator binds an indicator code to its computation.
type Calculator struct {
	Code    string
	Compute Func
}

// Output is the result of one calculator.
type Output struct {
	Code string
	Result
}

// Calculators returns every current-phase indicator in publication order.
func Calculators() []Calculator {
	return []Calculator{
		{"IR-1", vaccinationCoverage},
		{"IR-2", vaccinatedSmallRuminants},
		{"IR-3", sustainableLandSurface},
		{"IR-4", countryPassthrough("IR-4", "IR-4")},
		{"IRI-1", countryPercent("IRI-1", "IRI-1")},
		{"IRI-2", vetUnits},
		{"IRI-3", vaccinationParks},
		{"IRI-5", landCommittees},
		{"IRI-6", waterPoints},
		{"IRI-8", livestockMarkets},
		{"IRI-9", countryPercent("IRI-9", "IRI-9")},
		{"IRI-10", subProjectSum("IRI-10", []string{"VAINO6", "VAINO13"}, nil)},
		{"IRI-101", subProjectSum("IRI-101", []string{"VAINO9", "VAINO11"}, []string{"VAINO15", "VAINO17"})},
		{"IRI-102", subProjectSum("IRI-102", []string{"VAINO10", "VAINO12"}, []string{"VAINO16", "VAINO18"})},
		{"IRI-103", subProjectSum("IRI-103", []string{"VAINO7", "VAINO14"}, nil)},
		{"IRI-13", activityPassthrough("IRI-13", "VAAGR6", "VAAGR6")},
		{"IRI-131", activitySum("IRI-131", "VAAGR8", "VAAGR10")},
		{"IRI-132", activitySum("IRI-132", "VAAGR9", "VAAGR11")},
		{"IRI-133", activityPassthrough("IRI-133", "VAAGR7", "VAAGR6")},
		{"IRI-14", countryPassthrough("IRI-14", "IRI-14")},
		{"IRI-141", countryPassthrough("IRI-141", "IRI-14-1")},
		{"IRI-15", earlyWarningSystem},
		{"IRI-16", committeesWithWomen},
		{"IRI-17", womenTrainedInFinance},
		{"IRI-18", countryPassthrough("IRI-18", "IRI-18")},
		{"IRI-181", countryPassthrough("IRI-181", "IRI-18-1")},
		{"Reg Int 1", regional("Reg Int 1", "Reg-Int-1")},
		{"Reg Int 2", regional("Reg Int 2", "Reg-Int-2")},
		{"Reg Int 4", regional("Reg Int 4", "Reg-Int-4")},
		{"Reg Int 5", regional("Reg Int 5", "Reg-Int-5")},
		{"Reg Int 6", regional("Reg Int 6", "Reg-Int-6")},
	}
}

// Compute runs the calculators concurrently. Outputs keep the calculator
// order regardless of completion order; the first error cancels the rest.
func Compute(ctx context.Context, src domain.Sources, calcs []Calculator) ([]Output, error) {
	outs := make([]Output, len(calcs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range calcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.Compute(src)
			if err != nil {
				return fmt.Errorf("compute %s: %w", c.Code, err)
			}
			outs[i] = Output{Code: c.Code, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}
