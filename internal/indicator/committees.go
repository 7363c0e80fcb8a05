package indicator

import (
	"fmt"

	"github.com/couchcryptid/cdr-indicators-etl/internal/domain"
)

// minWomenShare is the share of women members a committee needs.
const minWomenShare = 0.15

// leadershipRoles are the offices of which at least one must be held by a woman.
var leadershipRoles = []string{
	"Président (e)",
	"Sécrétaire (principal-e)",
	"Trésorier (ère)",
}

// committeeSource maps the committee questions of one survey.
type committeeSource struct {
	survey  string
	exists  string
	members string
	women   string
	roles   string
}

var committeeSources = []committeeSource{
	{survey: domain.SurveyVaccination, exists: "IGVAC9", members: "IGVAC11", women: "IGVAC12", roles: "IGVAC12A"},
	{survey: domain.SurveyLandscapes, exists: "CRDURA11", members: "CRDURA13", women: "CRDURA14", roles: "CRDURA17"},
	{survey: domain.SurveyWaterPoints, exists: "IGPE6", members: "IGPE10", women: "IGPE11", roles: "IGPE11A3"},
	{survey: domain.SurveyMarkets, exists: "IGMB5", members: "IGMB7", women: "IGMB8", roles: "IGMBA"},
}

// womenRepresented applies the gender-balance rule to one committee.
func (cs committeeSource) womenRepresented(rec domain.Record) bool {
	members, ok := rec.Float(cs.members)
	if !ok || members <= 0 {
		return false
	}
	women, ok := rec.Float(cs.women)
	if !ok || women < members*minWomenShare {
		return false
	}
	for _, role := range leadershipRoles {
		if rec.Contains(cs.roles, role) {
			return true
		}
	}
	return false
}

// IRI-16: committees with adequate female representation. Each committee is
// a 0/1 fraction over 1 so it can be summed or averaged downstream. Surveys
// exported before the roles question existed are skipped.
func committeesWithWomen(src domain.Sources) (Result, error) {
	const code = "IRI-16"
	var res Result
	for _, cs := range committeeSources {
		if tbl := src.Survey(cs.survey); !tbl.HasColumns(cs.roles) {
			if tbl.Len() > 0 {
				res.warn(Warning{
					Indicator: code,
					Kind:      WarnSourceSkipped,
					Message:   fmt.Sprintf("%s has no %s column", cs.survey, cs.roles),
				})
			}
			continue
		}
		rule := localityRule{
			code:   code,
			survey: cs.survey,
			eval: func(rec domain.Record) (measure, bool) {
				if !rec.Is(cs.exists, yes) {
					return measure{}, false
				}
				v := 0.0
				if cs.womenRepresented(rec) {
					v = 1
				}
				return measure{value: v, numerator: domain.Float(v), denominator: domain.Float(1)}, true
			},
		}
		if err := rule.appendTo(&res, src); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
