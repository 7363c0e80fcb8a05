package domain

// Survey names as exported by the extraction layer.
const (
	SurveyRegional    = "indicateurs_regionaux"
	SurveyCountry     = "indicateurs_pays"
	SurveyMarkets     = "marches_a_betail"
	SurveyVaccination = "parcs_de_vaccination"
	SurveyWaterPoints = "points_d_eau"
	SurveyVetUnits    = "unites_veterinaires"
	SurveyFodder      = "fourrage_cultive"
	SurveySubProjects = "sous_projets_innovants"
	SurveyLandscapes  = "gestion_durable_des_paysages"
	SurveyActivities  = "activites_generatrices_de_revenus"
)

// DateColumn is the submission date of every infrastructure survey.
const DateColumn = "DATE"

// Geography names the location questions of an infrastructure survey.
type Geography struct {
	Country     string
	Region      string
	Province    string
	Commune     string
	Localite    string
	Coordinates string
}

// SurveySpec describes one survey form.
type SurveySpec struct {
	Name string
	// Geography is nil for country and regional forms.
	Geography *Geography
}

// Infrastructure reports whether records describe physical sites that are
// deduplicated and snapshotted.
func (s SurveySpec) Infrastructure() bool { return s.Geography != nil }

func geo(prefix string, coords string) *Geography {
	return &Geography{
		Country:     prefix + "1",
		Region:      prefix + "2",
		Province:    prefix + "3",
		Commune:     prefix + "4",
		Localite:    prefix + "5",
		Coordinates: coords,
	}
}

// Catalogue lists the ten survey forms in extraction order.
var Catalogue = []SurveySpec{
	{Name: SurveyRegional},
	{Name: SurveyCountry},
	{Name: SurveyMarkets, Geography: geo("LMB", "LMB6")},
	{Name: SurveyVaccination, Geography: geo("LVAC", "LVAC6")},
	{Name: SurveyWaterPoints, Geography: geo("LPE", "LPE7")},
	{Name: SurveyVetUnits, Geography: geo("LUV", "LUV6")},
	{Name: SurveyFodder, Geography: geo("LFC", "LFC6")},
	{Name: SurveySubProjects, Geography: geo("LINO", "LINO6")},
	{Name: SurveyLandscapes, Geography: geo("LODURA", "LODURA6")},
	{Name: SurveyActivities, Geography: geo("LAGR", "LAGR6")},
}

// LookupSurvey returns the catalogue entry for a survey name.
func LookupSurvey(name string) (SurveySpec, bool) {
	for _, s := range Catalogue {
		if s.Name == name {
			return s, true
		}
	}
	return SurveySpec{}, false
}

// Metadata describes an indicator code.
type Metadata struct {
	Code        string `validate:"required"`
	Designation string
	Unit        Unit `validate:"omitempty,oneof=count weight surface percent boolean"`
}

// LegacyRecord is one precomputed legacy-phase value.
type LegacyRecord struct {
	Code    string   `validate:"required"`
	Year    int      `validate:"gte=2000,lte=2100"`
	Country string   `validate:"required"`
	Value   *float64 `validate:"omitempty"`
}

// Sources bundles every input of an indicator run.
type Sources struct {
	Surveys  map[string]Table
	Legacy   []LegacyRecord
	Metadata []Metadata
}

// Survey returns the named table, or an empty table when it was not loaded.
func (s Sources) Survey(name string) Table {
	if t, ok := s.Surveys[name]; ok {
		return t
	}
	return Table{Name: name}
}
