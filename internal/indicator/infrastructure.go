package indicator

import "github.com/couchcryptid/cdr-indicators-etl/internal/domain"

// IRI-2: veterinary units built or rehabilitated and functional.
func vetUnits(src domain.Sources) (Result, error) {
	return localityRule{
		code:   "IRI-2",
		survey: domain.SurveyVetUnits,
		eval:   delivered("STUV5", "CFUV1", "CFUV2", "CFUV3", "CFUV4"),
	}.compute(src)
}

// IRI-3: vaccination parks built or rehabilitated.
func vaccinationParks(src domain.Sources) (Result, error) {
	return localityRule{
		code:   "IRI-3",
		survey: domain.SurveyVaccination,
		eval:   delivered("STVAC5", "IGVAC1", "IGVAC2"),
	}.compute(src)
}

// IRI-6: functional water points on transhumance routes.
func waterPoints(src domain.Sources) (Result, error) {
	return localityRule{
		code:   "IRI-6",
		survey: domain.SurveyWaterPoints,
		eval:   delivered("STPE5", "LPE6", "CFPE2", "CFPE4", "CFPE6"),
	}.compute(src)
}

// IRI-8: livestock markets built on regional corridors.
func livestockMarkets(src domain.Sources) (Result, error) {
	return localityRule{
		code:   "IRI-8",
		survey: domain.SurveyMarkets,
		eval:   delivered("STMB5", "CMOP1", "CMOP3", "CMOP4", "CMOP6"),
	}.compute(src)
}

// IRI-5: functional land-management committees, dated by their creation year.
func landCommittees(src domain.Sources) (Result, error) {
	return localityRule{
		code:    "IRI-5",
		survey:  domain.SurveyLandscapes,
		dateCol: "CRDURA12",
		eval: func(rec domain.Record) (measure, bool) {
			return valueOf(1), rec.Is("CRDURA11", yes)
		},
	}.compute(src)
}

// landSubAmount is one surface of the landscape form, counted only when its
// gating answers hold.
type landSubAmount struct {
	amount string
	gate   func(domain.Record) bool
}

var landSubAmounts = []landSubAmount{
	{"CRDURA6c", func(r domain.Record) bool {
		return allYes(r, "CRDURA7", "CRDURA8", "CRDURA11") && r.Truthy("CRDURA9")
	}},
	{"CRDURA26c", func(r domain.Record) bool { return r.Is("CRDURA24", yes) }},
	{"CRDURA43c", func(r domain.Record) bool { return r.Is("CRDURA41", yes) }},
	{"CRDURA58c", func(r domain.Record) bool { return r.Is("CRDURA56", yes) }},
}

// IR-3: surface under sustainable landscape management. Every submission
// yields a row, including zero surfaces.
func sustainableLandSurface(src domain.Sources) (Result, error) {
	return localityRule{
		code:   "IR-3",
		survey: domain.SurveyLandscapes,
		eval: func(rec domain.Record) (measure, bool) {
			var total float64
			for _, s := range landSubAmounts {
				if s.gate(rec) {
					total += rec.FloatOrZero(s.amount)
				}
			}
			return valueOf(total), true
		},
	}.compute(src)
}
