package planner

import (
	"fmt"
	"strings"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/storage"
)

// ObservationColumns is the column order BuildObservationSQL selects; the
// row scanner in ops depends on it.
const ObservationColumns = "o.id, o.subject_id, o.location_id, o.school_laestab, o.provider_ukprn, o.year, o.time_identifier, o.geographic_level, o.measures, ofi.filter_item_id"

// BuildObservationSQL builds the final observation query. Each observation
// yields one row per attached filter item (or one row with a NULL item),
// ordered by observation id then filter item id.
func BuildObservationSQL(compiled *CompileOutput) string {
	cteParts := make([]string, len(compiled.CTEs))
	for i, cte := range compiled.CTEs {
		cteParts[i] = cte.String()
	}

	return fmt.Sprintf(`WITH %s
SELECT %s
FROM observations o
JOIN %s r ON r.observation_id = o.id
LEFT JOIN observation_filter_items ofi ON ofi.observation_id = o.id
ORDER BY o.id, ofi.filter_item_id`,
		strings.Join(cteParts, ",\n"),
		ObservationColumns,
		compiled.ResultCTE,
	)
}

// footnoteLinks maps each footnote query id set to its link table.
var footnoteLinks = []struct {
	table  string
	column string
	ids    func(q criteria.FootnoteQuery) []int64
}{
	{"subject_footnotes", "subject_id", func(q criteria.FootnoteQuery) []int64 { return q.SubjectIDs }},
	{"indicator_footnotes", "indicator_id", func(q criteria.FootnoteQuery) []int64 { return q.IndicatorIDs }},
	{"filter_footnotes", "filter_id", func(q criteria.FootnoteQuery) []int64 { return q.FilterIDs }},
	{"filter_group_footnotes", "filter_group_id", func(q criteria.FootnoteQuery) []int64 { return q.FilterGroupIDs }},
	{"filter_item_footnotes", "filter_item_id", func(q criteria.FootnoteQuery) []int64 { return q.FilterItemIDs }},
}

// BuildFootnoteSQL builds the footnote union query. ok is false when q has
// no ids at all, in which case there is nothing to run.
func BuildFootnoteSQL(builder storage.Builder, q criteria.FootnoteQuery) (sql string, steps []string, ok bool) {
	var selects []string
	for _, link := range footnoteLinks {
		ids := link.ids(q)
		if len(ids) == 0 {
			continue
		}
		selects = append(selects, fmt.Sprintf("SELECT footnote_id FROM %s WHERE %s IN (%s)", link.table, link.column, builder.IntList(ids)))
		steps = append(steps, fmt.Sprintf("FOOTNOTES %s ids=%d", link.table, len(ids)))
	}
	if len(selects) == 0 {
		return "", nil, false
	}

	sql = fmt.Sprintf(`WITH matched(footnote_id) AS (
  %s
)
SELECT f.id, f.content
FROM footnotes f
JOIN matched m ON m.footnote_id = f.id
ORDER BY f.id`, strings.Join(selects, "\n  UNION\n  "))
	return sql, steps, true
}
