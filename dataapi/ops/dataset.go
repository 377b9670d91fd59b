package ops

import "github.com/statspub/dataapi/dataapi/criteria"

// Dataset is a set of rows written together by Apply. Releases are always
// written as drafts; PublishRelease makes them immutable.
type Dataset struct {
	Themes          []Theme          `json:"themes,omitempty"`
	Topics          []Topic          `json:"topics,omitempty"`
	Publications    []Publication    `json:"publications,omitempty"`
	Releases        []Release        `json:"releases,omitempty"`
	Subjects        []SubjectRow     `json:"subjects,omitempty"`
	Locations       []Location       `json:"locations,omitempty"`
	Schools         []School         `json:"schools,omitempty"`
	Providers       []Provider       `json:"providers,omitempty"`
	Filters         []Filter         `json:"filters,omitempty"`
	FilterGroups    []FilterGroup    `json:"filterGroups,omitempty"`
	FilterItems     []FilterItem     `json:"filterItems,omitempty"`
	IndicatorGroups []IndicatorGroup `json:"indicatorGroups,omitempty"`
	Indicators      []Indicator      `json:"indicators,omitempty"`
	Observations    []ObservationRow `json:"observations,omitempty"`
	Footnotes       []FootnoteRow    `json:"footnotes,omitempty"`
	BoundaryLevels  []BoundaryLevel  `json:"boundaryLevels,omitempty"`
	Geometries      []Geometry       `json:"geometries,omitempty"`
}

// Len counts every row in the dataset.
func (d *Dataset) Len() int {
	n := len(d.Themes) + len(d.Topics) + len(d.Publications) + len(d.Releases) + len(d.Subjects)
	n += len(d.Locations) + len(d.Schools) + len(d.Providers)
	n += len(d.Filters) + len(d.FilterGroups) + len(d.FilterItems)
	n += len(d.IndicatorGroups) + len(d.Indicators)
	n += len(d.Observations) + len(d.Footnotes) + len(d.BoundaryLevels) + len(d.Geometries)
	return n
}

// Merge appends other's rows to d.
func (d *Dataset) Merge(other Dataset) {
	d.Themes = append(d.Themes, other.Themes...)
	d.Topics = append(d.Topics, other.Topics...)
	d.Publications = append(d.Publications, other.Publications...)
	d.Releases = append(d.Releases, other.Releases...)
	d.Subjects = append(d.Subjects, other.Subjects...)
	d.Locations = append(d.Locations, other.Locations...)
	d.Schools = append(d.Schools, other.Schools...)
	d.Providers = append(d.Providers, other.Providers...)
	d.Filters = append(d.Filters, other.Filters...)
	d.FilterGroups = append(d.FilterGroups, other.FilterGroups...)
	d.FilterItems = append(d.FilterItems, other.FilterItems...)
	d.IndicatorGroups = append(d.IndicatorGroups, other.IndicatorGroups...)
	d.Indicators = append(d.Indicators, other.Indicators...)
	d.Observations = append(d.Observations, other.Observations...)
	d.Footnotes = append(d.Footnotes, other.Footnotes...)
	d.BoundaryLevels = append(d.BoundaryLevels, other.BoundaryLevels...)
	d.Geometries = append(d.Geometries, other.Geometries...)
}

type Theme struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type Topic struct {
	ID      int64  `json:"id"`
	ThemeID int64  `json:"themeId"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
}

type Publication struct {
	ID      int64  `json:"id"`
	TopicID int64  `json:"topicId"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
}

type Release struct {
	ID            int64  `json:"id"`
	PublicationID int64  `json:"publicationId"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
}

type SubjectRow struct {
	ID        int64  `json:"id"`
	ReleaseID int64  `json:"releaseId"`
	Name      string `json:"name"`
}

// LocationCode is the code and name of a location at one geographic level.
type LocationCode struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Location carries a code/name pair per geographic level it belongs to.
type Location struct {
	ID    int64                                     `json:"id"`
	Codes map[criteria.GeographicLevel]LocationCode `json:"codes"`
}

type School struct {
	Laestab     string `json:"laestab"`
	URN         string `json:"urn,omitempty"`
	Name        string `json:"name"`
	AcademyType string `json:"academyType,omitempty"`
}

type Provider struct {
	Ukprn string `json:"ukprn"`
	URN   string `json:"urn,omitempty"`
	Name  string `json:"name"`
}

type Filter struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subjectId"`
	Label     string `json:"label"`
	Name      string `json:"name"`
	Hint      string `json:"hint,omitempty"`
}

type FilterGroup struct {
	ID       int64  `json:"id"`
	FilterID int64  `json:"filterId"`
	Label    string `json:"label"`
}

type FilterItem struct {
	ID            int64  `json:"id"`
	FilterGroupID int64  `json:"filterGroupId"`
	Label         string `json:"label"`
}

type IndicatorGroup struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subjectId"`
	Label     string `json:"label"`
}

type Indicator struct {
	ID               int64  `json:"id"`
	IndicatorGroupID int64  `json:"indicatorGroupId"`
	Label            string `json:"label"`
	Name             string `json:"name"`
	Unit             string `json:"unit,omitempty"`
	DecimalPlaces    *int   `json:"decimalPlaces,omitempty"`
	KeyIndicator     bool   `json:"keyIndicator,omitempty"`
}

// ObservationRow is an observation as written; see Observation for reads.
type ObservationRow struct {
	ID              int64                    `json:"id"`
	SubjectID       int64                    `json:"subjectId"`
	LocationID      int64                    `json:"locationId"`
	SchoolLaestab   string                   `json:"schoolLaestab,omitempty"`
	ProviderUkprn   string                   `json:"providerUkprn,omitempty"`
	Year            int                      `json:"year"`
	TimeIdentifier  criteria.TimeIdentifier  `json:"timeIdentifier"`
	GeographicLevel criteria.GeographicLevel `json:"geographicLevel"`
	Measures        map[int64]string         `json:"measures"`
	FilterItemIDs   []int64                  `json:"filterItemIds,omitempty"`
}

// FootnoteRow is a footnote and the entities it is attached to.
type FootnoteRow struct {
	ID             int64   `json:"id"`
	Content        string  `json:"content"`
	SubjectIDs     []int64 `json:"subjectIds,omitempty"`
	IndicatorIDs   []int64 `json:"indicatorIds,omitempty"`
	FilterIDs      []int64 `json:"filterIds,omitempty"`
	FilterGroupIDs []int64 `json:"filterGroupIds,omitempty"`
	FilterItemIDs  []int64 `json:"filterItemIds,omitempty"`
}

func (g Geometry) shape() string {
	if len(g.GeoJSON) == 0 {
		return "null"
	}
	return string(g.GeoJSON)
}
