// Package domain models the results-framework (CDR) indicator data of the
// PRAPS pastoral program: raw survey tables collected with KoboToolbox and the
// normalized indicator rows computed from them.
//
// # Data Source
//
// Field agents fill one form per infrastructure or per reporting period. The
// extraction layer exports each form as a JSON array of flat records (one
// [Table] per survey). Column names are the form's question codes (e.g.
// "STPE5", "LUV2"), so every calculator addresses its inputs by code.
//
// # Survey Conventions
//
// Geography:
//
//	Every infrastructure survey carries six location questions:
//	country, region, province, commune, localité and GPS point. Their codes
//	differ per form (LUV1..LUV6 for veterinary units, LPE1..LPE5 + LPE7 for
//	water points). See [Catalogue].
//
// GPS points:
//
//	Accepted as a GeoJSON-like object {"coordinates": [lat, lon]}, a bare
//	[lat, lon] array, or the Kobo "lat lon altitude accuracy" string.
//
// Answers:
//
//	Yes/no questions are the literal labels "Oui" and "Non". Multiple-choice
//	questions are arrays of labels. A missing or empty answer is null.
//
// Dates:
//
//	Infrastructure surveys carry a full "DATE" (YYYY-MM-DD). Country and
//	regional forms carry only the reporting year (DATE5, IND5). Indicator rows
//	are always dated at the start of their year.
//
// # Levels and Phases
//
// Rows live at one of four geographic levels: 1 (regional, the synthetic
// "Régional" country), 2 (country), 3 (region) and 6 (localité). Levels 4 and
// 5 never appear. Values come from either the legacy phase (PRAPS1, loaded
// from a precomputed CSV) or the current phase (PRAPS2, computed from
// surveys). Years up to 2021 belong to PRAPS1.
//
// # Known Data-Quality Heuristics
//
//	IR-2 (vaccinated small ruminants): national forms sometimes report the
//	figure in millions. A value <= 500 is multiplied by 1,000,000. This is
//	unconfirmed with the data owner and is kept as-is.
//
//	IRI-133: rows are selected on VAAGR7 but the value is read from VAAGR6.
//	This mirrors the reference computation and is kept as-is.
package domain
