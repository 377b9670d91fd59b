package criteria

// NormalizedQuery is an ObservationQuery that passed validation, with its
// time range expanded into concrete periods.
type NormalizedQuery struct {
	ObservationQuery
	TimePeriods []TimePeriod
}

// Normalize validates q and returns it in canonical form: id lists and codes
// sorted and deduplicated, grouping defaulted, time range expanded.
func Normalize(q ObservationQuery) (NormalizedQuery, error) {
	if q.SubjectID <= 0 {
		return NormalizedQuery{}, invalid("subjectId", "subject id is required")
	}
	if q.GeographicLevel != "" && !q.GeographicLevel.Valid() {
		return NormalizedQuery{}, invalid("geographicLevel", "unknown geographic level %q", q.GeographicLevel)
	}

	switch q.FilterGrouping {
	case "":
		q.FilterGrouping = GroupByFilterGroup
	case GroupByFilterGroup, GroupByFilter:
	default:
		return NormalizedQuery{}, invalid("filterGrouping", "unknown grouping %q", q.FilterGrouping)
	}

	q.LocationIDs = uniqueIDs(q.LocationIDs)
	q.LocationCodes = uniqueStrings(q.LocationCodes)
	q.FilterItemIDs = uniqueIDs(q.FilterItemIDs)
	q.Indicators = uniqueIDs(q.Indicators)

	if len(q.LocationCodes) > 0 && q.GeographicLevel == "" {
		return NormalizedQuery{}, invalid("locationCodes", "location codes require a geographic level")
	}

	out := NormalizedQuery{ObservationQuery: q}
	if q.TimePeriod != nil {
		periods, err := q.TimePeriod.Expand()
		if err != nil {
			return NormalizedQuery{}, err
		}
		out.TimePeriods = periods
	}
	return out, nil
}

// NormalizeFootnotes sorts and deduplicates every id list.
func NormalizeFootnotes(q FootnoteQuery) FootnoteQuery {
	return FootnoteQuery{
		SubjectIDs:     uniqueIDs(q.SubjectIDs),
		IndicatorIDs:   uniqueIDs(q.IndicatorIDs),
		FilterIDs:      uniqueIDs(q.FilterIDs),
		FilterGroupIDs: uniqueIDs(q.FilterGroupIDs),
		FilterItemIDs:  uniqueIDs(q.FilterItemIDs),
	}
}
