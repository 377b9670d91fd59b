package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQL drivers and their migrate counterparts
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	// DriverModernc is the pure Go driver and the default.
	DriverModernc = "sqlite"
	// DriverMattn is the cgo driver.
	DriverMattn = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	if driver == "" {
		driver = DriverModernc
	}
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

// dsnParams returns the connection parameters in the form the driver
// understands.
func (a *Adapter) dsnParams() (string, error) {
	switch a.DriverName {
	case DriverModernc:
		return "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	case DriverMattn:
		return "_busy_timeout=5000&_foreign_keys=on", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", a.DriverName)
	}
}

func withParams(path, params string) string {
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	params, err := a.dsnParams()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(a.DriverName, withParams(a.Path, params))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) Migrations() (source.Driver, error) {
	return iofs.New(migrations, "migrations")
}

// MigrationURL selects the migrate database driver matching the SQL driver.
func (a *Adapter) MigrationURL() (string, error) {
	params, err := a.dsnParams()
	if err != nil {
		return "", err
	}
	scheme := "sqlite://"
	if a.DriverName == DriverMattn {
		scheme = "sqlite3://"
	}
	return scheme + withParams(a.Path, params), nil
}
