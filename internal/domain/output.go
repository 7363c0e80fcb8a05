package domain

import (
	"fmt"
	"strconv"
)

// OutputColumns is the column order of the published indicator table.
var OutputColumns = []string{
	"indicator_code",
	"indicator_name",
	"unit",
	"year",
	"date",
	"project",
	"level",
	"country",
	"region",
	"numerator",
	"denominator",
	"value",
	"cumulative_numerator",
	"cumulative_denominator",
	"cumulative_value",
	"cumulative_value_praps2",
}

// OutputRow is the published shape of a cumulated indicator row.
type OutputRow struct {
	IndicatorCode         string   `json:"indicator_code"`
	IndicatorName         *string  `json:"indicator_name"`
	Unit                  *string  `json:"unit"`
	Year                  int      `json:"year"`
	Date                  string   `json:"date"`
	Project               string   `json:"project"`
	Level                 int      `json:"level"`
	Country               string   `json:"country"`
	Region                *string  `json:"region"`
	Numerator             *float64 `json:"numerator"`
	Denominator           *float64 `json:"denominator"`
	Value                 *float64 `json:"value"`
	CumulativeNumerator   *float64 `json:"cumulative_numerator"`
	CumulativeDenominator *float64 `json:"cumulative_denominator"`
	CumulativeValue       *float64 `json:"cumulative_value"`
	CumulativeValuePRAPS2 *float64 `json:"cumulative_value_praps2"`
}

// Output projects a cumulated row onto the published schema.
func (r Row) Output() OutputRow {
	var unit *string
	if r.Unit != nil {
		unit = Str(string(*r.Unit))
	}
	return OutputRow{
		IndicatorCode:         r.Code,
		IndicatorName:         r.Name,
		Unit:                  unit,
		Year:                  r.Year,
		Date:                  fmt.Sprintf("%04d-01-01", r.Year),
		Project:               string(r.Phase),
		Level:                 int(r.Level),
		Country:               r.Country,
		Region:                r.Region,
		Numerator:             r.Numerator,
		Denominator:           r.Denominator,
		Value:                 r.Value,
		CumulativeNumerator:   r.CumulatedNumerator,
		CumulativeDenominator: r.CumulatedDenominator,
		CumulativeValue:       r.CumulatedValue,
		CumulativeValuePRAPS2: r.CumulatedValueCurrent,
	}
}

// Key identifies an output row for uniqueness checks and message keys.
func (o OutputRow) Key() string {
	region := ""
	if o.Region != nil {
		region = *o.Region
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d", o.IndicatorCode, o.Country, region, o.Level, o.Year)
}

// CSVRecord renders the row in OutputColumns order. Nulls are empty cells.
func (o OutputRow) CSVRecord() []string {
	return []string{
		o.IndicatorCode,
		strOrEmpty(o.IndicatorName),
		strOrEmpty(o.Unit),
		strconv.Itoa(o.Year),
		o.Date,
		o.Project,
		strconv.Itoa(o.Level),
		o.Country,
		strOrEmpty(o.Region),
		floatOrEmpty(o.Numerator),
		floatOrEmpty(o.Denominator),
		floatOrEmpty(o.Value),
		floatOrEmpty(o.CumulativeNumerator),
		floatOrEmpty(o.CumulativeDenominator),
		floatOrEmpty(o.CumulativeValue),
		floatOrEmpty(o.CumulativeValuePRAPS2),
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
