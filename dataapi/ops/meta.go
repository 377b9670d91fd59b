package ops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (Subject, error) {
	var s Subject
	var published sql.NullInt64
	if err := row.Scan(&s.ID, &s.Name, &s.ReleaseID, &s.ReleaseTitle, &s.ReleaseSlug, &published); err != nil {
		return Subject{}, err
	}
	s.PublishedAtMS = published.Int64
	return s, nil
}

// GetSubject loads one subject. A missing subject yields ErrNotFound.
func GetSubject(ctx context.Context, db Querier, sqlt storage.SQL, subjectID int64) (Subject, error) {
	s, err := scanSubject(db.QueryRowContext(ctx, sqlt.GetSubject, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, fmt.Errorf("subject %d: %w", subjectID, ErrNotFound)
	}
	if err != nil {
		return Subject{}, fmt.Errorf("load subject %d: %w", subjectID, err)
	}
	return s, nil
}

// ListReleaseSubjects returns the subjects of a release ordered by name.
func ListReleaseSubjects(ctx context.Context, db Querier, sqlt storage.SQL, releaseID int64) ([]Subject, error) {
	rows, err := db.QueryContext(ctx, sqlt.ListSubjectsByRelease, releaseID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]Subject, 0)
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// LoadSubjectMeta assembles the filter and indicator trees of a subject and
// the time periods and geographic levels its observations cover.
func LoadSubjectMeta(ctx context.Context, db Querier, sqlt storage.SQL, subjectID int64) (*SubjectMeta, error) {
	subject, err := GetSubject(ctx, db, sqlt, subjectID)
	if err != nil {
		return nil, err
	}
	meta := &SubjectMeta{Subject: subject}

	if meta.Filters, err = loadFilterTree(ctx, db, sqlt, subjectID); err != nil {
		return nil, err
	}
	if meta.IndicatorGroups, err = loadIndicatorTree(ctx, db, sqlt, subjectID); err != nil {
		return nil, err
	}
	if meta.TimePeriods, err = loadTimePeriods(ctx, db, sqlt, subjectID); err != nil {
		return nil, err
	}
	if meta.GeographicLevels, err = loadLevels(ctx, db, sqlt, subjectID); err != nil {
		return nil, err
	}
	return meta, nil
}

func loadFilterTree(ctx context.Context, db Querier, sqlt storage.SQL, subjectID int64) ([]FilterMeta, error) {
	rows, err := db.QueryContext(ctx, sqlt.ListFilterTree, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	filters := make([]FilterMeta, 0)
	for rows.Next() {
		var (
			f          FilterMeta
			groupID    sql.NullInt64
			groupLabel sql.NullString
			itemID     sql.NullInt64
			itemLabel  sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Label, &f.Name, &f.Hint, &groupID, &groupLabel, &itemID, &itemLabel); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		if n := len(filters); n == 0 || filters[n-1].ID != f.ID {
			f.Groups = make([]FilterGroupMeta, 0)
			filters = append(filters, f)
		}
		cur := &filters[len(filters)-1]
		if !groupID.Valid {
			continue
		}
		if n := len(cur.Groups); n == 0 || cur.Groups[n-1].ID != groupID.Int64 {
			cur.Groups = append(cur.Groups, FilterGroupMeta{
				ID:    groupID.Int64,
				Label: groupLabel.String,
				Items: make([]FilterItemMeta, 0),
			})
		}
		if itemID.Valid {
			g := &cur.Groups[len(cur.Groups)-1]
			g.Items = append(g.Items, FilterItemMeta{ID: itemID.Int64, Label: itemLabel.String})
		}
	}
	return filters, rows.Err()
}

func loadIndicatorTree(ctx context.Context, db Querier, sqlt storage.SQL, subjectID int64) ([]IndicatorGroupMeta, error) {
	rows, err := db.QueryContext(ctx, sqlt.ListIndicatorTree, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list indicators: %w", err)
	}
	defer rows.Close()

	groups := make([]IndicatorGroupMeta, 0)
	for rows.Next() {
		var (
			g        IndicatorGroupMeta
			id       sql.NullInt64
			label    sql.NullString
			name     sql.NullString
			unit     sql.NullString
			places   sql.NullInt64
			keyIndic sql.NullBool
		)
		if err := rows.Scan(&g.ID, &g.Label, &id, &label, &name, &unit, &places, &keyIndic); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		if n := len(groups); n == 0 || groups[n-1].ID != g.ID {
			g.Indicators = make([]IndicatorMeta, 0)
			groups = append(groups, g)
		}
		if !id.Valid {
			continue
		}
		ind := IndicatorMeta{
			ID:           id.Int64,
			Label:        label.String,
			Name:         name.String,
			Unit:         unit.String,
			KeyIndicator: keyIndic.Bool,
		}
		if places.Valid {
			dp := int(places.Int64)
			ind.DecimalPlaces = &dp
		}
		cur := &groups[len(groups)-1]
		cur.Indicators = append(cur.Indicators, ind)
	}
	return groups, rows.Err()
}

func loadTimePeriods(ctx context.Context, db Querier, sqlt storage.SQL, subjectID int64) ([]criteria.TimePeriod, error) {
	rows, err := db.QueryContext(ctx, sqlt.ListSubjectTimePeriods, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list time periods: %w", err)
	}
	defer rows.Close()

	periods := make([]criteria.TimePeriod, 0)
	for rows.Next() {
		var tp criteria.TimePeriod
		var code string
		if err := rows.Scan(&tp.Year, &code); err != nil {
			return nil, fmt.Errorf("scan time period: %w", err)
		}
		tp.Identifier = criteria.TimeIdentifier(code)
		periods = append(periods, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	criteria.SortTimePeriods(periods)
	return periods, nil
}

func loadLevels(ctx context.Context, db Querier, sqlt storage.SQL, subjectID int64) ([]criteria.GeographicLevel, error) {
	rows, err := db.QueryContext(ctx, sqlt.ListSubjectLevels, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list geographic levels: %w", err)
	}
	defer rows.Close()

	levels := make([]criteria.GeographicLevel, 0)
	for rows.Next() {
		var level string
		if err := rows.Scan(&level); err != nil {
			return nil, fmt.Errorf("scan geographic level: %w", err)
		}
		levels = append(levels, criteria.GeographicLevel(level))
	}
	return levels, rows.Err()
}

// LatestBoundaryLevel returns the most recently published boundary level
// for a geographic level.
func LatestBoundaryLevel(ctx context.Context, db Querier, sqlt storage.SQL, level criteria.GeographicLevel) (BoundaryLevel, error) {
	var b BoundaryLevel
	var lvl string
	err := db.QueryRowContext(ctx, sqlt.GetLatestBoundaryLevel, string(level)).
		Scan(&b.ID, &lvl, &b.Label, &b.PublishedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return BoundaryLevel{}, fmt.Errorf("boundary level %s: %w", level, ErrNotFound)
	}
	if err != nil {
		return BoundaryLevel{}, fmt.Errorf("load boundary level: %w", err)
	}
	b.Level = criteria.GeographicLevel(lvl)
	return b, nil
}

// Geometries returns the shapes of a boundary level for the given codes, or
// every shape when codes is empty.
func Geometries(ctx context.Context, db Querier, adapter storage.Adapter, boundaryLevelID int64, codes []string) ([]Geometry, error) {
	builder := sqlbuilder.New(adapter.PlaceholderStyle())
	query := "SELECT boundary_level_id, code, name, geojson FROM geometries WHERE boundary_level_id = " + builder.Arg(boundaryLevelID)
	if len(codes) > 0 {
		query += " AND code IN (" + builder.TextList(codes) + ")"
	}
	query += " ORDER BY code"

	rows, err := db.QueryContext(ctx, query, builder.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list geometries: %w", err)
	}
	defer rows.Close()

	out := make([]Geometry, 0)
	for rows.Next() {
		var g Geometry
		var shape []byte
		if err := rows.Scan(&g.BoundaryLevelID, &g.Code, &g.Name, &shape); err != nil {
			return nil, fmt.Errorf("scan geometry: %w", err)
		}
		g.GeoJSON = shape
		out = append(out, g)
	}
	return out, rows.Err()
}
