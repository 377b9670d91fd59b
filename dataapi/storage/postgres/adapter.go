package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"regexp"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"

	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Adapter struct {
	DSN    string
	Schema string // dedicated schema, selected via search_path
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) SQL() storage.SQL { return SQLTemplates }

func (a *Adapter) Migrations() (source.Driver, error) {
	return iofs.New(migrations, "migrations")
}

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	return `"` + ident + `"`
}

func (a *Adapter) validSchema() error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	return nil
}

// Connect creates the schema if needed, then returns a pool whose sessions
// resolve unqualified tables in it.
func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	if err := a.validSchema(); err != nil {
		return nil, err
	}

	admin, err := a.open(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	_ = admin.Close()
	if err != nil {
		return nil, fmt.Errorf("create schema %s: %w", a.Schema, err)
	}

	db, err := a.open(ctx, map[string]string{
		"search_path": quoteIdent(a.Schema) + ",public",
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return db, nil
}

// open opens and pings a database/sql pool over pgx with extra runtime
// parameters.
func (a *Adapter) open(ctx context.Context, params map[string]string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string, len(params))
	}
	for k, v := range params {
		cfg.RuntimeParams[k] = v
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MigrationURL rewrites the DSN for the pgx/v5 migrate driver, pinning the
// version table and search_path to the dedicated schema.
func (a *Adapter) MigrationURL() (string, error) {
	if err := a.validSchema(); err != nil {
		return "", err
	}
	u, err := url.Parse(a.DSN)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return "", fmt.Errorf("postgres dsn must be a postgres:// url for migrations")
	}
	u.Scheme = "pgx5"
	q := u.Query()
	q.Set("search_path", a.Schema)
	q.Set("x-migrations-table", "schema_migrations")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
