package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
)

// newMigrate builds a migrate instance over the adapter's embedded source.
// The caller must Close it.
func newMigrate(a Adapter) (*migrate.Migrate, error) {
	src, err := a.Migrations()
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	url, err := a.MigrationURL()
	if err != nil {
		return nil, fmt.Errorf("migration url: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

// stopOnCancel asks m to stop after the running migration when ctx ends.
func stopOnCancel(ctx context.Context, m *migrate.Migrate) (release func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

func closeMigrate(m *migrate.Migrate, err error) error {
	srcErr, dbErr := m.Close()
	if err != nil {
		return err
	}
	if srcErr != nil {
		return fmt.Errorf("close migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

// MigrateUp applies every pending migration. Already being current is not an
// error.
func MigrateUp(ctx context.Context, a Adapter) (err error) {
	m, err := newMigrate(a)
	if err != nil {
		return err
	}
	defer func() { err = closeMigrate(m, err) }()
	release := stopOnCancel(ctx, m)
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return ctx.Err()
}

// MigrateDown reverts steps migrations, or all of them when steps <= 0.
func MigrateDown(ctx context.Context, a Adapter, steps int) (err error) {
	m, err := newMigrate(a)
	if err != nil {
		return err
	}
	defer func() { err = closeMigrate(m, err) }()
	release := stopOnCancel(ctx, m)
	defer release()

	if steps <= 0 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return ctx.Err()
}

// Version reports the recorded schema version. A database that was never
// migrated reports version 0.
func Version(a Adapter) (version uint, dirty bool, err error) {
	m, err := newMigrate(a)
	if err != nil {
		return 0, false, err
	}
	defer func() { err = closeMigrate(m, err) }()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// LatestVersion returns the highest version among the embedded migrations.
func LatestVersion(a Adapter) (uint, error) {
	src, err := a.Migrations()
	if err != nil {
		return 0, fmt.Errorf("load migrations: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("next migration after %d: %w", v, err)
		}
		v = next
	}
}
