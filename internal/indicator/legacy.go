package indicator

import "github.com/couchcryptid/cdr-indicators-etl/internal/domain"

// legacyRegionalCode marks multi-country values in the legacy file.
const legacyRegionalCode = "REGIONAL"

// DefaultCountryCodes maps the legacy file's country codes to country names.
func DefaultCountryCodes() map[string]string {
	return map[string]string{
		"BF":               "Burkina-Faso",
		"MR":               "Mauritanie",
		"SN":               "Sénégal",
		"ML":               "Mali",
		legacyRegionalCode: domain.RegionalCountry,
		"NE":               "Niger",
		"TD":               "Tchad",
	}
}

// legacyPercentCodes are stored as 0-100 percentages in the legacy file.
var legacyPercentCodes = map[string]bool{
	"IR-1":      true,
	"IRI-17":    true,
	"IRI-1":     true,
	"IRI-9":     true,
	"Reg Int 7": true,
}

// LoadLegacy converts precomputed legacy values into indicator rows.
// Unknown country codes are kept verbatim; records without a value are
// dropped.
func LoadLegacy(records []domain.LegacyRecord, countries map[string]string) []domain.Row {
	rows := make([]domain.Row, 0, len(records))
	for _, rec := range records {
		if rec.Value == nil {
			continue
		}
		level := domain.LevelCountry
		if rec.Country == legacyRegionalCode {
			level = domain.LevelRegional
		}
		country := rec.Country
		if name, ok := countries[rec.Country]; ok {
			country = name
		}
		v := *rec.Value
		if legacyPercentCodes[rec.Code] {
			v /= 100
		}
		rows = append(rows, domain.Row{
			Code:    rec.Code,
			Date:    domain.YearStart(rec.Year),
			Year:    rec.Year,
			Phase:   domain.PhaseLegacy,
			Level:   level,
			Country: country,
			Value:   domain.Float(v),
		})
	}
	return rows
}

// Combine unions the legacy rows with every non-empty calculator output,
// tagging computed rows with the current phase. Legacy rows come first.
func Combine(legacy []domain.Row, outputs []Output) []domain.Row {
	n := len(legacy)
	for _, o := range outputs {
		n += len(o.Rows)
	}
	rows := make([]domain.Row, 0, n)
	rows = append(rows, legacy...)
	for _, o := range outputs {
		if len(o.Rows) == 0 {
			continue
		}
		for _, r := range o.Rows {
			r.Phase = domain.PhaseCurrent
			rows = append(rows, r)
		}
	}
	return rows
}
