package criteria

import (
	"encoding/json"
	"strings"
)

// FilterGrouping selects the key used to combine filter items: items sharing
// a key are ORed, distinct keys are ANDed.
type FilterGrouping string

const (
	GroupByFilterGroup FilterGrouping = "filterGroup"
	GroupByFilter      FilterGrouping = "filter"
)

// ObservationQuery selects observations of one subject.
type ObservationQuery struct {
	SubjectID       int64            `json:"subjectId"`
	TimePeriod      *TimePeriodRange `json:"timePeriod,omitempty"`
	GeographicLevel GeographicLevel  `json:"geographicLevel,omitempty"`
	LocationIDs     []int64          `json:"locationIds,omitempty"`
	LocationCodes   []string         `json:"locationCodes,omitempty"`
	FilterItemIDs   []int64          `json:"filterItemIds,omitempty"`
	Indicators      []int64          `json:"indicators,omitempty"`
	FilterGrouping  FilterGrouping   `json:"filterGrouping,omitempty"`
}

// UnmarshalJSON decodes id lists field by field so a malformed element is
// reported against the field it came from.
func (q *ObservationQuery) UnmarshalJSON(b []byte) error {
	var raw struct {
		SubjectID       json.RawMessage  `json:"subjectId"`
		TimePeriod      *TimePeriodRange `json:"timePeriod"`
		GeographicLevel GeographicLevel  `json:"geographicLevel"`
		LocationIDs     json.RawMessage  `json:"locationIds"`
		LocationCodes   json.RawMessage  `json:"locationCodes"`
		FilterItemIDs   json.RawMessage  `json:"filterItemIds"`
		Indicators      json.RawMessage  `json:"indicators"`
		FilterGrouping  string           `json:"filterGrouping"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return asCriteriaError(err)
	}

	var out ObservationQuery
	var err error
	if out.SubjectID, err = ParseID("subjectId", raw.SubjectID); err != nil {
		return err
	}
	if out.LocationIDs, err = ParseIDs("locationIds", raw.LocationIDs); err != nil {
		return err
	}
	if out.LocationCodes, err = ParseCodes("locationCodes", raw.LocationCodes); err != nil {
		return err
	}
	if out.FilterItemIDs, err = ParseIDs("filterItemIds", raw.FilterItemIDs); err != nil {
		return err
	}
	if out.Indicators, err = ParseIDs("indicators", raw.Indicators); err != nil {
		return err
	}
	out.TimePeriod = raw.TimePeriod
	out.GeographicLevel = raw.GeographicLevel
	out.FilterGrouping = FilterGrouping(raw.FilterGrouping)
	*q = out
	return nil
}

// FootnoteQuery lists the entities whose footnotes are wanted.
type FootnoteQuery struct {
	SubjectIDs     []int64 `json:"subjectIds,omitempty"`
	IndicatorIDs   []int64 `json:"indicatorIds,omitempty"`
	FilterIDs      []int64 `json:"filterIds,omitempty"`
	FilterGroupIDs []int64 `json:"filterGroupIds,omitempty"`
	FilterItemIDs  []int64 `json:"filterItemIds,omitempty"`
}

func (q *FootnoteQuery) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return asCriteriaError(err)
	}
	var out FootnoteQuery
	targets := []struct {
		field string
		dst   *[]int64
	}{
		{"subjectIds", &out.SubjectIDs},
		{"indicatorIds", &out.IndicatorIDs},
		{"filterIds", &out.FilterIDs},
		{"filterGroupIds", &out.FilterGroupIDs},
		{"filterItemIds", &out.FilterItemIDs},
	}
	for _, t := range targets {
		ids, err := ParseIDs(t.field, raw[t.field])
		if err != nil {
			return err
		}
		*t.dst = ids
	}
	*q = out
	return nil
}

// Empty reports whether no ids were supplied at all.
func (q FootnoteQuery) Empty() bool {
	return len(q.SubjectIDs) == 0 && len(q.IndicatorIDs) == 0 && len(q.FilterIDs) == 0 &&
		len(q.FilterGroupIDs) == 0 && len(q.FilterItemIDs) == 0
}

func asCriteriaError(err error) error {
	if ce, ok := err.(*Error); ok {
		return ce
	}
	msg := err.Error()
	msg = strings.TrimPrefix(msg, "json: ")
	return mismatch("", msg)
}
