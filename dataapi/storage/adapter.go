package storage

import (
	"context"
	"database/sql"

	"github.com/golang-migrate/migrate/v4/source"

	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	// Migrations returns the embedded, dialect specific migration files.
	Migrations() (source.Driver, error)
	// MigrationURL returns the golang-migrate database URL for this backend.
	MigrationURL() (string, error)

	SQL() SQL
}

// Builder interface for placeholder management. Lists are bound as one JSON
// parameter each, so statement size never depends on input length.
type Builder interface {
	Arg(v any) string
	IntList(ids []int64) string
	TextList(values []string) string
	Records(rows any, fields ...sqlbuilder.JSONField) (string, error)
	Args() []any
	Len() int
}

// SQL holds prepared SQL templates for fixed-shape statements. Statements
// whose shape depends on input (id lists, location columns) are built with a
// Builder instead.
type SQL struct {
	InsertTheme       string
	InsertTopic       string
	InsertPublication string
	InsertRelease     string
	InsertSubject     string
	InsertSchool      string
	InsertProvider    string

	InsertFilter         string
	InsertFilterGroup    string
	InsertFilterItem     string
	InsertIndicatorGroup string
	InsertIndicator      string

	InsertObservation           string
	InsertObservationFilterItem string

	InsertFootnote            string
	InsertSubjectFootnote     string
	InsertIndicatorFootnote   string
	InsertFilterFootnote      string
	InsertFilterGroupFootnote string
	InsertFilterItemFootnote  string

	InsertBoundaryLevel string
	InsertGeometry      string

	GetReleasePublished      string
	SetReleasePublished      string
	GetSubjectRelease        string
	GetFilterSubject         string
	GetFilterGroupSubject    string
	GetFilterItemSubject     string
	GetIndicatorGroupSubject string
	GetIndicatorSubject      string

	GetSubject             string
	ListSubjectsByRelease  string
	ListFilterTree         string
	ListIndicatorTree      string
	ListSubjectTimePeriods string
	ListSubjectLevels      string
	GetLatestBoundaryLevel string
}
