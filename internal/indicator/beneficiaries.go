package indicator

import "github.com/couchcryptid/cdr-indicators-etl/internal/domain"

// subProjectSum counts beneficiaries of innovative sub-projects. Columns in
// orZero treat nulls as zero; a null in any strict column drops the record.
// Only positive totals are kept.
func subProjectSum(code string, orZero, strict []string) Func {
	return localityRule{
		code:   code,
		survey: domain.SurveySubProjects,
		eval: func(rec domain.Record) (measure, bool) {
			total := sumOrZero(rec, orZero...)
			for _, c := range strict {
				v, ok := rec.Float(c)
				if !ok {
					return measure{}, false
				}
				total += v
			}
			return valueOf(total), total > 0
		},
	}.compute
}

// activitySum counts beneficiaries of income-generating activities. Only
// positive totals are kept.
func activitySum(code string, cols ...string) Func {
	return localityRule{
		code:   code,
		survey: domain.SurveyActivities,
		eval: func(rec domain.Record) (measure, bool) {
			total := sumOrZero(rec, cols...)
			return valueOf(total), total > 0
		},
	}.compute
}

// activityPassthrough selects records answering filterCol and reports
// valueCol as is. IRI-133 filters and reads different columns.
func activityPassthrough(code, filterCol, valueCol string) Func {
	return localityRule{
		code:   code,
		survey: domain.SurveyActivities,
		eval: func(rec domain.Record) (measure, bool) {
			if _, ok := rec.Float(filterCol); !ok {
				return measure{}, false
			}
			v, ok := rec.Float(valueCol)
			return valueOf(v), ok
		},
	}.compute
}

// fractionSource is one survey contributing to IRI-17.
type fractionSource struct {
	survey      string
	denominator string
	numerator   string
}

var womenTrainedSources = []fractionSource{
	{survey: domain.SurveySubProjects, denominator: "VAINO7", numerator: "VAINO8"},
	{survey: domain.SurveyActivities, denominator: "VAAGR7", numerator: "VAAGR7A"},
}

// IRI-17: share of women among people trained in financial management.
// Records reporting more women than trainees are discarded.
func womenTrainedInFinance(src domain.Sources) (Result, error) {
	var res Result
	for _, fs := range womenTrainedSources {
		rule := localityRule{
			code:   "IRI-17",
			survey: fs.survey,
			eval: func(rec domain.Record) (measure, bool) {
				den, ok := rec.Float(fs.denominator)
				if !ok || den <= 0 {
					return measure{}, false
				}
				num := rec.FloatOrZero(fs.numerator)
				if num > den {
					return measure{}, false
				}
				return measure{
					value:       *domain.Ratio(num, den),
					numerator:   domain.Float(num),
					denominator: domain.Float(den),
				}, true
			},
		}
		if err := rule.appendTo(&res, src); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
