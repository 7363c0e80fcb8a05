package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingColumn reports a column that every version of a survey must carry.
	ErrMissingColumn = errors.New("missing required column")
	// ErrMalformedValue reports a required value that cannot be parsed.
	ErrMalformedValue = errors.New("malformed value")
)

// Record is one survey submission keyed by question code. Absent keys and
// nil values are both null.
type Record map[string]any

// Table is an ordered sequence of records sharing a (possibly sparse) schema.
type Table struct {
	Name    string
	Columns []string
	Records []Record
}

// NewTable builds a table whose schema is the union of the record keys, in
// first-seen order.
func NewTable(name string, records []Record) Table {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return Table{Name: name, Columns: cols, Records: records}
}

// HasColumns reports whether every named column is part of the schema.
func (t Table) HasColumns(cols ...string) bool {
	for _, c := range cols {
		if !slices.Contains(t.Columns, c) {
			return false
		}
	}
	return true
}

// Require fails with ErrMissingColumn when a non-empty table lacks one of
// the named columns. An empty table satisfies any schema.
func (t Table) Require(cols ...string) error {
	if len(t.Records) == 0 {
		return nil
	}
	var missing []string
	for _, c := range cols {
		if !slices.Contains(t.Columns, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", t.Name, ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Len returns the number of records.
func (t Table) Len() int { return len(t.Records) }

// String returns the trimmed text of a column. Empty text is null.
func (r Record) String(col string) (string, bool) {
	switch v := r[col].(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// Answered reports whether the column holds any non-null value, blank text
// included.
func (r Record) Answered(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// StringPtr is String returning nil for null.
func (r Record) StringPtr(col string) *string {
	s, ok := r.String(col)
	if !ok {
		return nil
	}
	return &s
}

// Float returns the numeric value of a column. Numeric text is parsed;
// anything else, including NaN and infinities, is null.
func (r Record) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatOrZero coalesces a null numeric column to zero.
func (r Record) FloatOrZero(col string) float64 {
	f, _ := r.Float(col)
	return f
}

// Is reports whether the column holds exactly the given label.
func (r Record) Is(col, label string) bool {
	s, ok := r.String(col)
	return ok && s == label
}

// Truthy reports whether a column holds a non-null, non-false, non-zero value.
func (r Record) Truthy(col string) bool {
	switch v := r[col].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	}
	f, ok := r.Float(col)
	if ok {
		return f != 0
	}
	return true
}

// Contains reports whether a multiple-choice column lists the label. Text
// answers are split on ";".
func (r Record) Contains(col, label string) bool {
	switch v := r[col].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) == label {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) == label {
				return true
			}
		}
	case string:
		for _, s := range strings.Split(v, ";") {
			if strings.TrimSpace(s) == label {
				return true
			}
		}
	}
	return false
}

// Coordinates extracts a GPS point. Unparsable points are null.
func (r Record) Coordinates(col string) *Coordinates {
	switch v := r[col].(type) {
	case map[string]any:
		return coordinatesFrom(v["coordinates"])
	case []any, []float64:
		return coordinatesFrom(v)
	case string:
		fields := strings.Fields(v)
		if len(fields) < 2 {
			return nil
		}
		return coordinatesFrom([]any{fields[0], fields[1]})
	}
	return nil
}

func coordinatesFrom(v any) *Coordinates {
	switch pair := v.(type) {
	case []float64:
		if len(pair) >= 2 {
			return coordinatesFrom([]any{pair[0], pair[1]})
		}
	case []any:
		if len(pair) < 2 {
			return nil
		}
		rec := Record{"lat": pair[0], "lon": pair[1]}
		lat, ok1 := rec.Float("lat")
		lon, ok2 := rec.Float("lon")
		if ok1 && ok2 {
			return &Coordinates{Lat: lat, Lon: lon}
		}
	}
	return nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006",
}

// Time parses a date column. ok is false when the column is null; a
// non-null value that is not a date is an error.
func (r Record) Time(col string) (t time.Time, ok bool, err error) {
	switch v := r[col].(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v, true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false, nil
		}
		for _, layout := range dateLayouts {
			if parsed, perr := time.Parse(layout, s); perr == nil {
				return parsed, true, nil
			}
		}
	}
	if y, yok := r.Float(col); yok && y == math.Trunc(y) {
		return YearStart(int(y)), true, nil
	}
	return time.Time{}, false, fmt.Errorf("%s %v: %w", col, r[col], ErrMalformedValue)
}

// Year returns the calendar year of a date or year column.
func (r Record) Year(col string) (year int, ok bool, err error) {
	t, ok, err := r.Time(col)
	if !ok || err != nil {
		return 0, ok, err
	}
	return t.Year(), true, nil
}

// YearStart returns January 1st of the given year in UTC.
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
