package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/statspub/dataapi/dataapi/storage"
)

func TestMigrationURLFollowsDriver(t *testing.T) {
	cases := []struct {
		driver string
		want   string
	}{
		{DriverModernc, "sqlite:///tmp/x.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{DriverMattn, "sqlite3:///tmp/x.db?_busy_timeout=5000&_foreign_keys=on"},
	}
	for _, tc := range cases {
		got, err := NewWithDriver("/tmp/x.db", tc.driver).MigrationURL()
		if err != nil {
			t.Fatalf("%s: %v", tc.driver, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.driver, got, tc.want)
		}
	}

	if _, err := NewWithDriver("/tmp/x.db", "sqlcipher").MigrationURL(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestMigrateUpDownRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(filepath.Join(t.TempDir(), "m.db"))

	latest, err := storage.LatestVersion(a)
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if latest != 6 {
		t.Fatalf("expected 6 migrations, got %d", latest)
	}

	if err := storage.MigrateUp(ctx, a); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	// second run is a no-op
	if err := storage.MigrateUp(ctx, a); err != nil {
		t.Fatalf("MigrateUp again: %v", err)
	}
	v, dirty, err := storage.Version(a)
	if err != nil || dirty || v != latest {
		t.Fatalf("Version = %d dirty=%v err=%v", v, dirty, err)
	}

	if err := storage.MigrateDown(ctx, a, 2); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if v, _, _ := storage.Version(a); v != latest-2 {
		t.Fatalf("expected version %d after stepping down, got %d", latest-2, v)
	}

	if err := storage.MigrateDown(ctx, a, 0); err != nil {
		t.Fatalf("MigrateDown all: %v", err)
	}
	if v, _, _ := storage.Version(a); v != 0 {
		t.Fatalf("expected version 0, got %d", v)
	}
}
