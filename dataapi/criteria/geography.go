package criteria

import (
	"encoding/json"
	"strings"
)

// GeographicLevel is the granularity an observation is recorded at. Values
// are the canonical names stored in the observations table.
type GeographicLevel string

const (
	LevelCountry                    GeographicLevel = "Country"
	LevelEnglishDevolvedArea        GeographicLevel = "EnglishDevolvedArea"
	LevelInstitution                GeographicLevel = "Institution"
	LevelLocalAuthority             GeographicLevel = "LocalAuthority"
	LevelLocalAuthorityDistrict     GeographicLevel = "LocalAuthorityDistrict"
	LevelLocalEnterprisePartnership GeographicLevel = "LocalEnterprisePartnership"
	LevelMayoralCombinedAuthority   GeographicLevel = "MayoralCombinedAuthority"
	LevelMultiAcademyTrust          GeographicLevel = "MultiAcademyTrust"
	LevelOpportunityArea            GeographicLevel = "OpportunityArea"
	LevelParliamentaryConstituency  GeographicLevel = "ParliamentaryConstituency"
	LevelPlanningArea               GeographicLevel = "PlanningArea"
	LevelProvider                   GeographicLevel = "Provider"
	LevelRegion                     GeographicLevel = "Region"
	LevelRscRegion                  GeographicLevel = "RscRegion"
	LevelSchool                     GeographicLevel = "School"
	LevelSponsor                    GeographicLevel = "Sponsor"
	LevelWard                       GeographicLevel = "Ward"
)

type levelInfo struct {
	label string
	// column is the locations table column prefix; empty for levels keyed
	// on the observation itself (School, Provider).
	column string
}

var levels = map[GeographicLevel]levelInfo{
	LevelCountry:                    {label: "National", column: "country"},
	LevelEnglishDevolvedArea:        {label: "English devolved area", column: "english_devolved_area"},
	LevelInstitution:                {label: "Institution", column: "institution"},
	LevelLocalAuthority:             {label: "Local authority", column: "local_authority"},
	LevelLocalAuthorityDistrict:     {label: "Local authority district", column: "local_authority_district"},
	LevelLocalEnterprisePartnership: {label: "Local enterprise partnership", column: "local_enterprise_partnership"},
	LevelMayoralCombinedAuthority:   {label: "Mayoral combined authority", column: "mayoral_combined_authority"},
	LevelMultiAcademyTrust:          {label: "Multi-academy trust", column: "multi_academy_trust"},
	LevelOpportunityArea:            {label: "Opportunity area", column: "opportunity_area"},
	LevelParliamentaryConstituency:  {label: "Parliamentary constituency", column: "parliamentary_constituency"},
	LevelPlanningArea:               {label: "Planning area", column: "planning_area"},
	LevelProvider:                   {label: "Provider"},
	LevelRegion:                     {label: "Regional", column: "region"},
	LevelRscRegion:                  {label: "RSC region", column: "rsc_region"},
	LevelSchool:                     {label: "School"},
	LevelSponsor:                    {label: "Sponsor", column: "sponsor"},
	LevelWard:                       {label: "Ward", column: "ward"},
}

// LocationLevels lists the levels that carry a code/name pair on a location,
// in locations table column order.
var LocationLevels = []GeographicLevel{
	LevelCountry,
	LevelEnglishDevolvedArea,
	LevelInstitution,
	LevelLocalAuthority,
	LevelLocalAuthorityDistrict,
	LevelLocalEnterprisePartnership,
	LevelMayoralCombinedAuthority,
	LevelMultiAcademyTrust,
	LevelOpportunityArea,
	LevelParliamentaryConstituency,
	LevelPlanningArea,
	LevelRegion,
	LevelRscRegion,
	LevelSponsor,
	LevelWard,
}

// ParseGeographicLevel accepts a canonical name ("LocalAuthority"), a label
// ("Local authority") or either with different case and spacing.
func ParseGeographicLevel(s string) (GeographicLevel, error) {
	key := squash(s)
	if key == "" {
		return "", nil
	}
	for lvl, info := range levels {
		if squash(string(lvl)) == key || squash(info.label) == key {
			return lvl, nil
		}
	}
	// "National" and "Regional" are labels; the bare nouns are common too.
	switch key {
	case "national":
		return LevelCountry, nil
	case "regional":
		return LevelRegion, nil
	}
	return "", invalid("geographicLevel", "unknown geographic level %q", s)
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r == ' ' || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Valid reports whether l is a known level.
func (l GeographicLevel) Valid() bool {
	_, ok := levels[l]
	return ok
}

// Label returns the human readable name of the level.
func (l GeographicLevel) Label() string {
	return levels[l].label
}

// LocationColumn returns the locations table column prefix for l, or false
// when the level is keyed on the observation (School, Provider).
func (l GeographicLevel) LocationColumn() (string, bool) {
	info, ok := levels[l]
	if !ok || info.column == "" {
		return "", false
	}
	return info.column, true
}

func (l *GeographicLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return mismatch("geographicLevel", "expected a string")
	}
	parsed, err := ParseGeographicLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
