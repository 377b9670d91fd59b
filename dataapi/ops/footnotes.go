package ops

import (
	"context"
	"fmt"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/planner"
	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

// FilterFootnotes returns the distinct footnotes attached to any id in q,
// ordered by id. An empty query never reaches the database.
func FilterFootnotes(ctx context.Context, db Querier, adapter storage.Adapter, q criteria.FootnoteQuery) ([]Footnote, error) {
	footnotes := make([]Footnote, 0)
	builder := sqlbuilder.New(adapter.PlaceholderStyle())
	query, _, ok := planner.BuildFootnoteSQL(builder, q)
	if !ok {
		return footnotes, nil
	}

	rows, err := db.QueryContext(ctx, query, builder.Args()...)
	if err != nil {
		return nil, fmt.Errorf("execute footnote query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f Footnote
		if err := rows.Scan(&f.ID, &f.Content); err != nil {
			return nil, fmt.Errorf("scan footnote: %w", err)
		}
		footnotes = append(footnotes, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate footnotes: %w", err)
	}
	return footnotes, nil
}

// FootnoteCriteria derives the footnote query for a set of observations:
// the subject, the indicators (requested, or else every one present in the
// measures) and the filter items present with their groups and filters.
// No observations means no ids, so an empty table carries no footnotes.
func FootnoteCriteria(
	ctx context.Context,
	db Querier,
	adapter storage.Adapter,
	subjectID int64,
	indicators []int64,
	observations []Observation,
) (criteria.FootnoteQuery, error) {
	if len(observations) == 0 {
		return criteria.FootnoteQuery{}, nil
	}
	q := criteria.FootnoteQuery{SubjectIDs: []int64{subjectID}}

	itemSet := make(map[int64]struct{})
	indicatorSet := make(map[int64]struct{})
	for _, obs := range observations {
		for _, id := range obs.FilterItemIDs {
			itemSet[id] = struct{}{}
		}
		if len(indicators) == 0 {
			for id := range obs.Measures {
				indicatorSet[id] = struct{}{}
			}
		}
	}
	if len(indicators) > 0 {
		q.IndicatorIDs = append(q.IndicatorIDs, indicators...)
	} else {
		for id := range indicatorSet {
			q.IndicatorIDs = append(q.IndicatorIDs, id)
		}
	}

	if len(itemSet) > 0 {
		for id := range itemSet {
			q.FilterItemIDs = append(q.FilterItemIDs, id)
		}
		builder := sqlbuilder.New(adapter.PlaceholderStyle())
		query := fmt.Sprintf(`SELECT DISTINCT fg.id, fg.filter_id
FROM filter_items fi
JOIN filter_groups fg ON fg.id = fi.filter_group_id
WHERE fi.id IN (%s)`, builder.IntList(q.FilterItemIDs))

		rows, err := db.QueryContext(ctx, query, builder.Args()...)
		if err != nil {
			return q, fmt.Errorf("load filter hierarchy: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var groupID, filterID int64
			if err := rows.Scan(&groupID, &filterID); err != nil {
				return q, fmt.Errorf("scan filter hierarchy: %w", err)
			}
			q.FilterGroupIDs = append(q.FilterGroupIDs, groupID)
			q.FilterIDs = append(q.FilterIDs, filterID)
		}
		if err := rows.Err(); err != nil {
			return q, fmt.Errorf("iterate filter hierarchy: %w", err)
		}
	}

	return criteria.NormalizeFootnotes(q), nil
}
