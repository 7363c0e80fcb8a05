package indicator

import (
	"fmt"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// Answer labels used by the survey forms.
const (
	yes               = "Oui"
	no                = "Non"
	acceptedNoReserve = "Réception provisoire sans réserve"
	acceptedFinal     = "Réception définitive"
)

// Country form columns.
const (
	countryCol     = "DATE4"
	countryYearCol = "DATE5"
	regionalYear   = "IND5"
)

// measure is what a rule extracts from one record.
type measure struct {
	value       float64
	numerator   *float64
	denominator *float64
}

func valueOf(v float64) measure { return measure{value: v} }

// localityRule turns each accepted record of an infrastructure survey into a
// level-6 row.
type localityRule struct {
	code    string
	survey  string
	dateCol string
	eval    func(domain.Record) (measure, bool)
}

func (lr localityRule) compute(src domain.Sources) (Result, error) {
	var res Result
	if err := lr.appendTo(&res, src); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (lr localityRule) appendTo(res *Result, src domain.Sources) error {
	def, ok := domain.LookupSurvey(lr.survey)
	if !ok || def.Geography == nil {
		return fmt.Errorf("%s: %s is not an infrastructure survey", lr.code, lr.survey)
	}
	g := *def.Geography
	dateCol := lr.dateCol
	if dateCol == "" {
		dateCol = domain.DateColumn
	}

	tbl := src.Survey(lr.survey)
	if err := tbl.Require(dateCol, g.Country); err != nil {
		return err
	}

	for _, rec := range tbl.Records {
		m, keep := lr.eval(rec)
		if !keep {
			continue
		}
		year, dated, err := rec.Year(dateCol)
		if err != nil {
			return fmt.Errorf("%s: %w", lr.code, err)
		}
		if !dated {
			continue
		}
		country, _ := rec.String(g.Country)
		res.Rows = append(res.Rows, domain.Row{
			Code:        lr.code,
			Date:        domain.YearStart(year),
			Year:        year,
			Level:       domain.LevelLocalite,
			Country:     country,
			Region:      rec.StringPtr(g.Region),
			Province:    rec.StringPtr(g.Province),
			Commune:     rec.StringPtr(g.Commune),
			Localite:    rec.StringPtr(g.Localite),
			Coordinates: rec.Coordinates(g.Coordinates),
			Numerator:   m.numerator,
			Denominator: m.denominator,
			Value:       domain.Float(m.value),
		})
	}
	return nil
}

// nationalRow builds a level-2 row from the country form.
func nationalRow(code string, rec domain.Record, value float64) (domain.Row, bool, error) {
	year, ok, err := rec.Year(countryYearCol)
	if err != nil || !ok {
		return domain.Row{}, false, err
	}
	country, _ := rec.String(countryCol)
	return domain.Row{
		Code:    code,
		Date:    domain.YearStart(year),
		Year:    year,
		Level:   domain.LevelCountry,
		Country: country,
		Value:   domain.Float(value),
	}, true, nil
}

// numeric reads a passthrough answer. Yes/no answers count as 1/0; other
// non-numeric text is reported and skipped.
func numeric(res *Result, code string, rec domain.Record, col string) (float64, bool) {
	if v, ok := rec.Float(col); ok {
		return v, true
	}
	s, ok := rec.String(col)
	if !ok {
		return 0, false
	}
	switch s {
	case yes:
		return 1, true
	case no:
		return 0, true
	}
	res.warn(Warning{Indicator: code, Kind: WarnNonNumeric, Message: fmt.Sprintf("%s=%q", col, s)})
	return 0, false
}

// sumOrZero adds columns treating nulls as zero.
func sumOrZero(rec domain.Record, cols ...string) float64 {
	var total float64
	for _, c := range cols {
		total += rec.FloatOrZero(c)
	}
	return total
}

// allYes reports whether every column is answered "Oui".
func allYes(rec domain.Record, cols ...string) bool {
	for _, c := range cols {
		if !rec.Is(c, yes) {
			return false
		}
	}
	return true
}

// delivered is the acceptance rule for built infrastructure: accepted with
// no reserve, or finally accepted with every functionality check passed.
func delivered(statusCol string, checks ...string) func(domain.Record) (measure, bool) {
	return func(rec domain.Record) (measure, bool) {
		if rec.Is(statusCol, acceptedNoReserve) {
			return valueOf(1), true
		}
		if rec.Is(statusCol, acceptedFinal) && allYes(rec, checks...) {
			return valueOf(1), true
		}
		return measure{}, false
	}
}
