package indicator

import (
	"fmt"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// millionsThreshold separates IR-2 figures reported in millions from
// figures reported in head counts.
const millionsThreshold = 500

func countryForm(src domain.Sources) (domain.Table, error) {
	tbl := src.Survey(domain.SurveyCountry)
	if err := tbl.Require(countryCol, countryYearCol); err != nil {
		return domain.Table{}, err
	}
	return tbl, nil
}

// nationalRule builds a level-2 indicator from one column of the country
// form. transform may reject a value by returning false.
func nationalRule(code, col string, transform func(float64) (float64, bool)) Func {
	return func(src domain.Sources) (Result, error) {
		tbl, err := countryForm(src)
		if err != nil {
			return Result{}, err
		}
		var res Result
		for _, rec := range tbl.Records {
			v, ok := numeric(&res, code, rec, col)
			if !ok {
				continue
			}
			if v, ok = transform(v); !ok {
				continue
			}
			row, ok, err := nationalRow(code, rec, v)
			if err != nil {
				return Result{}, fmt.Errorf("%s: %w", code, err)
			}
			if ok {
				res.Rows = append(res.Rows, row)
			}
		}
		return res, nil
	}
}

func countryPassthrough(code, col string) Func {
	return nationalRule(code, col, func(v float64) (float64, bool) { return v, true })
}

// countryPercent normalizes a 0-100 percentage to a 0-1 ratio.
func countryPercent(code, col string) Func {
	return nationalRule(code, col, func(v float64) (float64, bool) { return v / 100, true })
}

// IR-2: small ruminants vaccinated and marked against PPR.
func vaccinatedSmallRuminants(src domain.Sources) (Result, error) {
	return nationalRule("IR-2", "IR-2", func(v float64) (float64, bool) {
		if v <= millionsThreshold {
			v *= 1_000_000
		}
		return v, true
	})(src)
}

// IR-1: CBPP vaccination coverage, vaccinated over total herd.
func vaccinationCoverage(src domain.Sources) (Result, error) {
	const code, vaccinated, total = "IR-1", "DATE9", "DATE8"
	tbl, err := countryForm(src)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, rec := range tbl.Records {
		num, ok1 := rec.Float(vaccinated)
		den, ok2 := rec.Float(total)
		if !ok1 || !ok2 {
			continue
		}
		country, _ := rec.String(countryCol)
		year, _, _ := rec.Year(countryYearCol)
		if num > den {
			res.warn(Warning{
				Indicator: code, Kind: WarnVaccinatedExceedsTotal, Country: country, Year: year,
				Message: fmt.Sprintf("vaccinated %g exceeds total %g", num, den),
			})
		}
		ratio := domain.Ratio(num, den)
		if ratio == nil {
			res.warn(Warning{Indicator: code, Kind: WarnZeroDenominator, Country: country, Year: year, Message: "total herd is zero"})
			continue
		}
		row, ok, err := nationalRow(code, rec, *ratio)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", code, err)
		}
		if ok {
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}

// IRI-15: national early-warning system operational.
func earlyWarningSystem(src domain.Sources) (Result, error) {
	const code, col = "IRI-15", "IRI-15"
	tbl, err := countryForm(src)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for _, rec := range tbl.Records {
		if !rec.Answered(col) {
			continue
		}
		v := 0.0
		if rec.Is(col, yes) {
			v = 1
		}
		row, ok, err := nationalRow(code, rec, v)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", code, err)
		}
		if ok {
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}

// regional builds a level-1 indicator from the regional form. Older form
// versions lack some columns; those indicators are then empty.
func regional(code, col string) Func {
	return func(src domain.Sources) (Result, error) {
		tbl := src.Survey(domain.SurveyRegional)
		if !tbl.HasColumns(col) {
			return Result{}, nil
		}
		if err := tbl.Require(regionalYear); err != nil {
			return Result{}, err
		}
		var res Result
		for _, rec := range tbl.Records {
			v, ok := numeric(&res, code, rec, col)
			if !ok {
				continue
			}
			year, dated, err := rec.Year(regionalYear)
			if err != nil {
				return Result{}, fmt.Errorf("%s: %w", code, err)
			}
			if !dated {
				continue
			}
			res.Rows = append(res.Rows, domain.Row{
				Code:    code,
				Date:    domain.YearStart(year),
				Year:    year,
				Level:   domain.LevelRegional,
				Country: domain.RegionalCountry,
				Value:   domain.Float(v),
			})
		}
		return res, nil
	}
}
