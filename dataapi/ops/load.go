package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

// InvalidRowError reports a row that breaks a data model rule.
type InvalidRowError struct {
	Entity string
	ID     any
	Reason string
}

func (e *InvalidRowError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Entity, e.ID, e.Reason)
}

// releaseGuard rejects writes under published releases, caching lookups
// for the lifetime of one Apply.
type releaseGuard struct {
	q              Querier
	sqlt           storage.SQL
	published      map[int64]bool
	subjectRelease map[int64]int64
}

func newReleaseGuard(q Querier, sqlt storage.SQL) *releaseGuard {
	return &releaseGuard{
		q:              q,
		sqlt:           sqlt,
		published:      make(map[int64]bool),
		subjectRelease: make(map[int64]int64),
	}
}

func (g *releaseGuard) release(ctx context.Context, releaseID int64) error {
	published, ok := g.published[releaseID]
	if !ok {
		var at sql.NullInt64
		err := g.q.QueryRowContext(ctx, g.sqlt.GetReleasePublished, releaseID).Scan(&at)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("release %d: %w", releaseID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load release %d: %w", releaseID, err)
		}
		published = at.Valid && at.Int64 > 0
		g.published[releaseID] = published
	}
	if published {
		return fmt.Errorf("release %d: %w", releaseID, ErrReleasePublished)
	}
	return nil
}

func (g *releaseGuard) subject(ctx context.Context, subjectID int64) error {
	releaseID, ok := g.subjectRelease[subjectID]
	if !ok {
		err := g.q.QueryRowContext(ctx, g.sqlt.GetSubjectRelease, subjectID).Scan(&releaseID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("subject %d: %w", subjectID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load subject %d: %w", subjectID, err)
		}
		g.subjectRelease[subjectID] = releaseID
	}
	return g.release(ctx, releaseID)
}

// owner resolves the subject owning a row through lookup, then checks it.
func (g *releaseGuard) owner(ctx context.Context, lookup, entity string, id int64) error {
	var subjectID int64
	err := g.q.QueryRowContext(ctx, lookup, id).Scan(&subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", entity, id, err)
	}
	return g.subject(ctx, subjectID)
}

// Apply writes every row of ds. It must run inside a transaction so a
// rejected row leaves nothing behind.
func Apply(ctx context.Context, tx *sql.Tx, adapter storage.Adapter, ds Dataset) error {
	sqlt := adapter.SQL()
	guard := newReleaseGuard(tx, sqlt)

	exec := func(what, query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s: %w", what, err)
		}
		return nil
	}

	for _, t := range ds.Themes {
		if err := exec("theme", sqlt.InsertTheme, t.ID, t.Title, t.Slug); err != nil {
			return err
		}
	}
	for _, t := range ds.Topics {
		if err := exec("topic", sqlt.InsertTopic, t.ID, t.ThemeID, t.Title, t.Slug); err != nil {
			return err
		}
	}
	for _, p := range ds.Publications {
		if err := exec("publication", sqlt.InsertPublication, p.ID, p.TopicID, p.Title, p.Slug); err != nil {
			return err
		}
	}
	for _, r := range ds.Releases {
		if err := exec("release", sqlt.InsertRelease, r.ID, r.PublicationID, r.Title, r.Slug, nil); err != nil {
			return err
		}
	}
	for _, s := range ds.Subjects {
		if err := guard.release(ctx, s.ReleaseID); err != nil {
			return err
		}
		if err := exec("subject", sqlt.InsertSubject, s.ID, s.ReleaseID, s.Name); err != nil {
			return err
		}
	}

	for _, loc := range ds.Locations {
		if err := insertLocation(ctx, tx, adapter, loc); err != nil {
			return err
		}
	}
	for _, s := range ds.Schools {
		if err := exec("school", sqlt.InsertSchool, s.Laestab, nullString(s.URN), s.Name, nullString(s.AcademyType)); err != nil {
			return err
		}
	}
	for _, p := range ds.Providers {
		if err := exec("provider", sqlt.InsertProvider, p.Ukprn, nullString(p.URN), p.Name); err != nil {
			return err
		}
	}

	for _, f := range ds.Filters {
		if err := guard.subject(ctx, f.SubjectID); err != nil {
			return err
		}
		if err := exec("filter", sqlt.InsertFilter, f.ID, f.SubjectID, f.Label, f.Name, nullString(f.Hint)); err != nil {
			return err
		}
	}
	for _, fg := range ds.FilterGroups {
		if err := guard.owner(ctx, sqlt.GetFilterSubject, "filter", fg.FilterID); err != nil {
			return err
		}
		if err := exec("filter group", sqlt.InsertFilterGroup, fg.ID, fg.FilterID, fg.Label); err != nil {
			return err
		}
	}
	for _, fi := range ds.FilterItems {
		if err := guard.owner(ctx, sqlt.GetFilterGroupSubject, "filter group", fi.FilterGroupID); err != nil {
			return err
		}
		if err := exec("filter item", sqlt.InsertFilterItem, fi.ID, fi.FilterGroupID, fi.Label); err != nil {
			return err
		}
	}
	for _, ig := range ds.IndicatorGroups {
		if err := guard.subject(ctx, ig.SubjectID); err != nil {
			return err
		}
		if err := exec("indicator group", sqlt.InsertIndicatorGroup, ig.ID, ig.SubjectID, ig.Label); err != nil {
			return err
		}
	}
	for _, ind := range ds.Indicators {
		if err := guard.owner(ctx, sqlt.GetIndicatorGroupSubject, "indicator group", ind.IndicatorGroupID); err != nil {
			return err
		}
		var places any
		if ind.DecimalPlaces != nil {
			places = int64(*ind.DecimalPlaces)
		}
		if err := exec("indicator", sqlt.InsertIndicator, ind.ID, ind.IndicatorGroupID, ind.Label, ind.Name,
			ind.Unit, places, ind.KeyIndicator); err != nil {
			return err
		}
	}

	for _, obs := range ds.Observations {
		if err := insertObservation(ctx, tx, adapter, guard, obs); err != nil {
			return err
		}
	}

	for _, f := range ds.Footnotes {
		if err := insertFootnote(ctx, tx, sqlt, guard, f); err != nil {
			return err
		}
	}

	for _, b := range ds.BoundaryLevels {
		if !b.Level.Valid() {
			return &InvalidRowError{Entity: "boundary level", ID: b.ID, Reason: fmt.Sprintf("unknown geographic level %q", b.Level)}
		}
		if err := exec("boundary level", sqlt.InsertBoundaryLevel, b.ID, string(b.Level), b.Label, b.PublishedAtMS); err != nil {
			return err
		}
	}
	for _, g := range ds.Geometries {
		if err := exec("geometry", sqlt.InsertGeometry, g.BoundaryLevelID, g.Code, g.Name, g.shape()); err != nil {
			return err
		}
	}
	return nil
}

func insertLocation(ctx context.Context, tx *sql.Tx, adapter storage.Adapter, loc Location) error {
	codes := make(map[criteria.GeographicLevel]LocationCode, len(loc.Codes))
	for raw, code := range loc.Codes {
		level, err := criteria.ParseGeographicLevel(string(raw))
		if err != nil {
			return &InvalidRowError{Entity: "location", ID: loc.ID, Reason: err.Error()}
		}
		if _, ok := level.LocationColumn(); !ok {
			return &InvalidRowError{Entity: "location", ID: loc.ID, Reason: fmt.Sprintf("geographic level %q has no location column", level)}
		}
		codes[level] = code
	}

	builder := sqlbuilder.New(adapter.PlaceholderStyle())
	cols := []string{"id"}
	phs := []string{builder.Arg(loc.ID)}
	for _, level := range criteria.LocationLevels {
		code, ok := codes[level]
		if !ok {
			continue
		}
		col, _ := level.LocationColumn()
		cols = append(cols, col+"_code", col+"_name")
		phs = append(phs, builder.Arg(code.Code), builder.Arg(code.Name))
	}
	query := fmt.Sprintf("INSERT INTO locations(%s) VALUES(%s)", strings.Join(cols, ", "), strings.Join(phs, ", "))
	if _, err := tx.ExecContext(ctx, query, builder.Args()...); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

// checkObservation enforces that an observation's level and time period are
// known and that its location carries a code at that level.
func checkObservation(ctx context.Context, tx *sql.Tx, adapter storage.Adapter, obs ObservationRow) error {
	invalid := func(format string, args ...any) error {
		return &InvalidRowError{Entity: "observation", ID: obs.ID, Reason: fmt.Sprintf(format, args...)}
	}
	if !obs.GeographicLevel.Valid() {
		return invalid("unknown geographic level %q", obs.GeographicLevel)
	}
	tp := criteria.TimePeriod{Year: obs.Year, Identifier: obs.TimeIdentifier}
	if err := tp.Validate(); err != nil {
		return invalid("%v", err)
	}

	switch obs.GeographicLevel {
	case criteria.LevelSchool:
		if obs.SchoolLaestab == "" {
			return invalid("school level observation without a school")
		}
		return nil
	case criteria.LevelProvider:
		if obs.ProviderUkprn == "" {
			return invalid("provider level observation without a provider")
		}
		return nil
	}

	col, ok := obs.GeographicLevel.LocationColumn()
	if !ok {
		return nil
	}
	builder := sqlbuilder.New(adapter.PlaceholderStyle())
	query := fmt.Sprintf("SELECT %s_code FROM locations WHERE id = %s", col, builder.Arg(obs.LocationID))
	var code sql.NullString
	err := tx.QueryRowContext(ctx, query, builder.Args()...).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("location %d: %w", obs.LocationID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load location %d: %w", obs.LocationID, err)
	}
	if !code.Valid || code.String == "" {
		return invalid("location %d has no %s code", obs.LocationID, obs.GeographicLevel.Label())
	}
	return nil
}

func insertObservation(ctx context.Context, tx *sql.Tx, adapter storage.Adapter, guard *releaseGuard, obs ObservationRow) error {
	if err := guard.subject(ctx, obs.SubjectID); err != nil {
		return err
	}
	if err := checkObservation(ctx, tx, adapter, obs); err != nil {
		return err
	}
	measures := obs.Measures
	if measures == nil {
		measures = map[int64]string{}
	}
	encoded, err := json.Marshal(measures)
	if err != nil {
		return fmt.Errorf("encode measures: %w", err)
	}

	sqlt := adapter.SQL()
	if _, err := tx.ExecContext(ctx, sqlt.InsertObservation, obs.ID, obs.SubjectID, obs.LocationID,
		nullString(obs.SchoolLaestab), nullString(obs.ProviderUkprn), int64(obs.Year),
		string(obs.TimeIdentifier), string(obs.GeographicLevel), string(encoded)); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	for _, itemID := range obs.FilterItemIDs {
		if _, err := tx.ExecContext(ctx, sqlt.InsertObservationFilterItem, obs.ID, itemID); err != nil {
			return fmt.Errorf("insert observation filter item: %w", err)
		}
	}
	return nil
}

func insertFootnote(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, guard *releaseGuard, f FootnoteRow) error {
	if _, err := tx.ExecContext(ctx, sqlt.InsertFootnote, f.ID, f.Content); err != nil {
		return fmt.Errorf("insert footnote: %w", err)
	}

	links := []struct {
		ids    []int64
		insert string
		check  func(id int64) error
	}{
		{f.SubjectIDs, sqlt.InsertSubjectFootnote, func(id int64) error { return guard.subject(ctx, id) }},
		{f.IndicatorIDs, sqlt.InsertIndicatorFootnote, func(id int64) error {
			return guard.owner(ctx, sqlt.GetIndicatorSubject, "indicator", id)
		}},
		{f.FilterIDs, sqlt.InsertFilterFootnote, func(id int64) error {
			return guard.owner(ctx, sqlt.GetFilterSubject, "filter", id)
		}},
		{f.FilterGroupIDs, sqlt.InsertFilterGroupFootnote, func(id int64) error {
			return guard.owner(ctx, sqlt.GetFilterGroupSubject, "filter group", id)
		}},
		{f.FilterItemIDs, sqlt.InsertFilterItemFootnote, func(id int64) error {
			return guard.owner(ctx, sqlt.GetFilterItemSubject, "filter item", id)
		}},
	}
	for _, link := range links {
		for _, id := range link.ids {
			if err := link.check(id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, link.insert, f.ID, id); err != nil {
				return fmt.Errorf("link footnote %d: %w", f.ID, err)
			}
		}
	}
	return nil
}

// PublishRelease stamps a draft release as published at nowMS.
func PublishRelease(ctx context.Context, db Querier, sqlt storage.SQL, releaseID, nowMS int64) error {
	guard := newReleaseGuard(db, sqlt)
	if err := guard.release(ctx, releaseID); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlt.SetReleasePublished, releaseID, nowMS); err != nil {
		return fmt.Errorf("publish release %d: %w", releaseID, err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
