package dataapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/ops"
	"github.com/statspub/dataapi/dataapi/storage"
)

// Store is an open statistics database
type Store struct {
	adapter storage.Adapter
	db      *sql.DB
	opts    StoreOptions
}

// Create connects and applies every pending migration.
func Create(ctx context.Context, adapter storage.Adapter, opts StoreOptions) (*Store, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}
	if err := storage.MigrateUp(ctx, adapter); err != nil {
		db.Close()
		return nil, Wrap(ErrSchema, "apply migrations", err)
	}
	return newStore(adapter, db, opts), nil
}

// Open opens a database that is already migrated to the latest version.
func Open(ctx context.Context, adapter storage.Adapter, opts StoreOptions) (*Store, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}
	if err := checkVersion(adapter); err != nil {
		db.Close()
		return nil, err
	}
	return newStore(adapter, db, opts), nil
}

func newStore(adapter storage.Adapter, db *sql.DB, opts StoreOptions) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{adapter: adapter, db: db, opts: opts}
}

func checkVersion(adapter storage.Adapter) error {
	version, dirty, err := storage.Version(adapter)
	if err != nil {
		return Wrap(ErrSchema, "read schema version", err)
	}
	if dirty {
		return New(ErrSchema, fmt.Sprintf("schema version %d is dirty", version))
	}
	latest, err := storage.LatestVersion(adapter)
	if err != nil {
		return Wrap(ErrSchema, "read migrations", err)
	}
	if version == 0 {
		return New(ErrSchema, "database is not migrated; run migrate up")
	}
	if version < latest {
		return New(ErrSchema, fmt.Sprintf("schema version %d is behind %d; run migrate up", version, latest))
	}
	return nil
}

// Close closes the store
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return Wrap(ErrIO, "close database", err)
		}
	}
	return s.adapter.Close()
}

// Backend reports which database backs the store.
func (s *Store) Backend() storage.Backend {
	return s.adapter.Backend()
}

// Adapter returns the storage adapter the store was opened with.
func (s *Store) Adapter() storage.Adapter {
	return s.adapter
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return Wrap(ErrIO, "ping database", err)
	}
	return nil
}

func (s *Store) queryContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = s.opts.QueryTimeout
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Store) nowMS() int64 {
	return s.opts.Now().UnixMilli()
}

// FilteredObservations returns every observation of the subject matching q.
// An unknown subject or ids that match nothing yield an empty result.
func (s *Store) FilteredObservations(ctx context.Context, q criteria.ObservationQuery, opts QueryOptions) (*ObservationResult, error) {
	ctx, cancel := s.queryContext(ctx, opts.Timeout)
	defer cancel()
	return s.filteredObservations(ctx, q, opts.Explain)
}

func (s *Store) filteredObservations(ctx context.Context, q criteria.ObservationQuery, explain bool) (*ObservationResult, error) {
	nq, err := criteria.Normalize(q)
	if err != nil {
		return nil, fromCriteria(err)
	}
	res, err := ops.FilterObservations(ctx, s.db, s.adapter, nq, explain)
	if err != nil {
		return nil, Wrap(ErrSQL, "filter observations", err)
	}
	return res, nil
}

// FilteredFootnotes returns the distinct footnotes attached to any id in q.
func (s *Store) FilteredFootnotes(ctx context.Context, q criteria.FootnoteQuery) ([]Footnote, error) {
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()
	return s.filteredFootnotes(ctx, q)
}

func (s *Store) filteredFootnotes(ctx context.Context, q criteria.FootnoteQuery) ([]Footnote, error) {
	footnotes, err := ops.FilterFootnotes(ctx, s.db, s.adapter, criteria.NormalizeFootnotes(q))
	if err != nil {
		return nil, Wrap(ErrSQL, "filter footnotes", err)
	}
	return footnotes, nil
}

// FootnoteQueryFor derives the footnote criteria that apply to observations
// returned for subjectID.
func (s *Store) FootnoteQueryFor(ctx context.Context, subjectID int64, indicators []int64, observations []Observation) (criteria.FootnoteQuery, error) {
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()
	return s.footnoteQueryFor(ctx, subjectID, indicators, observations)
}

func (s *Store) footnoteQueryFor(ctx context.Context, subjectID int64, indicators []int64, observations []Observation) (criteria.FootnoteQuery, error) {
	q, err := ops.FootnoteCriteria(ctx, s.db, s.adapter, subjectID, indicators, observations)
	if err != nil {
		return criteria.FootnoteQuery{}, Wrap(ErrSQL, "derive footnote criteria", err)
	}
	return q, nil
}

// TableQuery runs an observation query and attaches its footnotes and the
// subject metadata. One deadline bounds all of it.
func (s *Store) TableQuery(ctx context.Context, q criteria.ObservationQuery, opts QueryOptions) (*TableResult, error) {
	ctx, cancel := s.queryContext(ctx, opts.Timeout)
	defer cancel()

	res, err := s.filteredObservations(ctx, q, opts.Explain)
	if err != nil {
		return nil, err
	}
	table := &TableResult{Observations: res.Observations, Footnotes: make([]Footnote, 0)}

	meta, err := s.subjectMeta(ctx, q.SubjectID)
	if IsKind(err, ErrNotFound) {
		return table, nil
	}
	if err != nil {
		return nil, err
	}
	table.SubjectMeta = meta

	fq, err := s.footnoteQueryFor(ctx, q.SubjectID, q.Indicators, res.Observations)
	if err != nil {
		return nil, err
	}
	if table.Footnotes, err = s.filteredFootnotes(ctx, fq); err != nil {
		return nil, err
	}
	return table, nil
}

func readError(msg string, err error) error {
	if errors.Is(err, ops.ErrNotFound) {
		return Wrap(ErrNotFound, msg, err)
	}
	return Wrap(ErrSQL, msg, err)
}

// Subject looks up one subject and its release.
func (s *Store) Subject(ctx context.Context, subjectID int64) (Subject, error) {
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()

	subject, err := ops.GetSubject(ctx, s.db, s.adapter.SQL(), subjectID)
	if err != nil {
		return Subject{}, readError("get subject", err)
	}
	return subject, nil
}

// SubjectMeta describes the filters, indicators, time periods and levels
// available for a subject.
func (s *Store) SubjectMeta(ctx context.Context, subjectID int64) (*SubjectMeta, error) {
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()
	return s.subjectMeta(ctx, subjectID)
}

func (s *Store) subjectMeta(ctx context.Context, subjectID int64) (*SubjectMeta, error) {
	meta, err := ops.LoadSubjectMeta(ctx, s.db, s.adapter.SQL(), subjectID)
	if err != nil {
		return nil, readError("subject meta", err)
	}
	return meta, nil
}

// ReleaseSubjects lists the subjects of a release.
func (s *Store) ReleaseSubjects(ctx context.Context, releaseID int64) ([]Subject, error) {
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()

	subjects, err := ops.ListReleaseSubjects(ctx, s.db, s.adapter.SQL(), releaseID)
	if err != nil {
		return nil, readError("release subjects", err)
	}
	return subjects, nil
}

// LatestBoundaryLevel returns the newest boundary level for a geographic
// level given by name or label.
func (s *Store) LatestBoundaryLevel(ctx context.Context, level string) (BoundaryLevel, error) {
	parsed, err := criteria.ParseGeographicLevel(level)
	if err != nil {
		return BoundaryLevel{}, fromCriteria(err)
	}
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()

	b, err := ops.LatestBoundaryLevel(ctx, s.db, s.adapter.SQL(), parsed)
	if err != nil {
		return BoundaryLevel{}, readError("latest boundary level", err)
	}
	return b, nil
}

// Geometries returns boundary shapes, restricted to codes when given.
func (s *Store) Geometries(ctx context.Context, boundaryLevelID int64, codes []string) ([]Geometry, error) {
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()

	geoms, err := ops.Geometries(ctx, s.db, s.adapter, boundaryLevelID, codes)
	if err != nil {
		return nil, readError("geometries", err)
	}
	return geoms, nil
}

// Apply writes a batch in one transaction. Nothing is written if any row is
// rejected.
func (s *Store) Apply(ctx context.Context, b Batch) (int, error) {
	if b.Empty() {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	if err := ops.Apply(ctx, tx, s.adapter, b.data); err != nil {
		return 0, fromWrite("apply batch", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, Wrap(ErrSQL, "commit", err)
	}
	return b.Len(), nil
}

// PublishRelease marks a release published, after which its rows are
// immutable.
func (s *Store) PublishRelease(ctx context.Context, releaseID int64) error {
	if err := ops.PublishRelease(ctx, s.db, s.adapter.SQL(), releaseID, s.nowMS()); err != nil {
		return fromWrite("publish release", err)
	}
	return nil
}
