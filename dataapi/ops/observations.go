package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/planner"
	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

// FilterObservations runs a normalized observation query and returns the
// matching observations in id order.
func FilterObservations(
	ctx context.Context,
	db Querier,
	adapter storage.Adapter,
	q criteria.NormalizedQuery,
	explain bool,
) (*ObservationResult, error) {
	builder := sqlbuilder.New(adapter.PlaceholderStyle())

	compiled, err := planner.Compile(builder, q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	query := planner.BuildObservationSQL(compiled)

	rows, err := db.QueryContext(ctx, query, builder.Args()...)
	if err != nil {
		return nil, fmt.Errorf("execute observation query: %w", err)
	}
	defer rows.Close()

	observations, err := scanObservations(rows)
	if err != nil {
		return nil, err
	}

	if len(q.Indicators) > 0 {
		for i := range observations {
			observations[i].Measures = projectMeasures(observations[i].Measures, q.Indicators)
		}
	}

	result := &ObservationResult{Observations: observations}
	if explain {
		result.ExplainSQL = query
		result.ExplainSteps = compiled.ExplainSteps
	}
	return result, nil
}

// scanObservations folds the one-row-per-filter-item result back into
// observations. Rows must arrive ordered by observation id.
func scanObservations(rows *sql.Rows) ([]Observation, error) {
	observations := make([]Observation, 0)
	for rows.Next() {
		var (
			obs      Observation
			school   sql.NullString
			provider sql.NullString
			measures []byte
			itemID   sql.NullInt64
			timeID   string
			level    string
		)
		if err := rows.Scan(&obs.ID, &obs.SubjectID, &obs.LocationID, &school, &provider,
			&obs.Year, &timeID, &level, &measures, &itemID); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}

		n := len(observations)
		if n > 0 && observations[n-1].ID == obs.ID {
			if itemID.Valid {
				observations[n-1].FilterItemIDs = append(observations[n-1].FilterItemIDs, itemID.Int64)
			}
			continue
		}

		obs.SchoolLaestab = school.String
		obs.ProviderUkprn = provider.String
		obs.TimeIdentifier = criteria.TimeIdentifier(timeID)
		obs.GeographicLevel = criteria.GeographicLevel(level)
		obs.Measures = make(map[int64]string)
		if len(measures) > 0 {
			if err := json.Unmarshal(measures, &obs.Measures); err != nil {
				return nil, fmt.Errorf("decode measures of observation %d: %w", obs.ID, err)
			}
		}
		obs.FilterItemIDs = make([]int64, 0, 4)
		if itemID.Valid {
			obs.FilterItemIDs = append(obs.FilterItemIDs, itemID.Int64)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return observations, nil
}

func projectMeasures(measures map[int64]string, indicators []int64) map[int64]string {
	out := make(map[int64]string, len(indicators))
	for _, id := range indicators {
		if v, ok := measures[id]; ok {
			out[id] = v
		}
	}
	return out
}
