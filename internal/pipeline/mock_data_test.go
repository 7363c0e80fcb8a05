package pipeline_test

import (
	"time"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
	"github.com/couchcryptid/cdr-indicators-etl/internal/indicator"
)

const testCode = "IRI-T"

// localiteRow builds a level-6 count row in Tahoua, Niger.
func localiteRow(year int, value float64) domain.Row {
	return domain.Row{
		Code:     testCode,
		Date:     time.Date(year, time.March, 14, 0, 0, 0, 0, time.UTC),
		Year:     year,
		Level:    domain.LevelLocalite,
		Country:  "Niger",
		Region:   domain.Str("Tahoua"),
		Localite: domain.Str("Abalak"),
		Value:    domain.Float(value),
	}
}

func fixedCalculator(rows []domain.Row, warnings ...indicator.Warning) indicator.Calculator {
	return indicator.Calculator{
		Code: testCode,
		Compute: func(domain.Sources) (indicator.Result, error) {
			return indicator.Result{Rows: rows, Warnings: warnings}, nil
		},
	}
}

func testSources() domain.Sources {
	return domain.Sources{
		Surveys: map[string]domain.Table{},
		Metadata: []domain.Metadata{
			{Code: testCode, Designation: "Points d'eau réalisés", Unit: domain.UnitCount},
		},
	}
}
