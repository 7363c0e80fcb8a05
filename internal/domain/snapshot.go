package domain

import (
	"fmt"
	"slices"
	"time"
)

// OverYearColumn tags each snapshot record with the year it describes.
const OverYearColumn = "over_year"

// ConcatenateSnapshots rebuilds the state of every infrastructure at the end
// of each year covered by the table: for year Y it keeps, per
// infrastructure_id, the latest record dated in or before Y. The yearly
// snapshots are concatenated in ascending year order.
func ConcatenateSnapshots(t Table, dateCol string) (Table, error) {
	out := Table{Name: t.Name, Columns: append(append([]string(nil), t.Columns...), OverYearColumn)}
	if len(t.Records) == 0 {
		return out, nil
	}
	if err := t.Require(dateCol, InfrastructureIDColumn); err != nil {
		return out, fmt.Errorf("concatenate snapshots: %w", err)
	}

	type dated struct {
		at  time.Time
		rec Record
	}
	records := make([]dated, 0, len(t.Records))
	minYear, maxYear := 0, 0
	for _, r := range t.Records {
		at, ok, err := r.Time(dateCol)
		if err != nil {
			return out, fmt.Errorf("concatenate snapshots: %w", err)
		}
		if !ok {
			continue
		}
		if len(records) == 0 || at.Year() < minYear {
			minYear = at.Year()
		}
		if len(records) == 0 || at.Year() > maxYear {
			maxYear = at.Year()
		}
		records = append(records, dated{at: at, rec: r})
	}
	slices.SortStableFunc(records, func(a, b dated) int { return a.at.Compare(b.at) })

	for year := minYear; year <= maxYear && len(records) > 0; year++ {
		latest := make(map[string]int)
		var order []string
		for i, d := range records {
			if d.at.Year() > year {
				break
			}
			id, _ := d.rec.String(InfrastructureIDColumn)
			if _, seen := latest[id]; !seen {
				order = append(order, id)
			}
			latest[id] = i
		}
		for _, id := range order {
			src := records[latest[id]].rec
			cp := make(Record, len(src)+1)
			for k, v := range src {
				cp[k] = v
			}
			cp[OverYearColumn] = year
			out.Records = append(out.Records, cp)
		}
	}
	return out, nil
}
