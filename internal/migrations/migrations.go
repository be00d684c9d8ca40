// Package migrations carries the embedded schema migration set and applies
// it at startup. The set is validated before any SQL runs so a packaging
// mistake fails fast instead of leaving a half-applied schema.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var migrationFiles embed.FS

var migrationName = regexp.MustCompile(`^(\d{6})_[a-z0-9_]+\.(up|down)\.sql$`)

// ValidateSet checks the embedded migration files: names must follow the
// NNNNNN_name.{up,down}.sql convention, every version must carry both
// directions, and versions must run 1..N without gaps.
func ValidateSet() error {
	entries, err := fs.ReadDir(migrationFiles, ".")
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	type pair struct{ up, down bool }
	versions := make(map[int]*pair)
	for _, entry := range entries {
		m := migrationName.FindStringSubmatch(entry.Name())
		if m == nil {
			return fmt.Errorf("migration %q does not match NNNNNN_name.{up,down}.sql", entry.Name())
		}
		v, err := strconv.Atoi(m[1])
		if err != nil || v == 0 {
			return fmt.Errorf("migration %q has invalid version", entry.Name())
		}
		p := versions[v]
		if p == nil {
			p = &pair{}
			versions[v] = p
		}
		if m[2] == "up" {
			if p.up {
				return fmt.Errorf("duplicate up migration for version %d", v)
			}
			p.up = true
		} else {
			if p.down {
				return fmt.Errorf("duplicate down migration for version %d", v)
			}
			p.down = true
		}
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations embedded")
	}

	ordered := make([]int, 0, len(versions))
	for v := range versions {
		ordered = append(ordered, v)
	}
	sort.Ints(ordered)
	for i, v := range ordered {
		if v != i+1 {
			return fmt.Errorf("migration versions have a gap: expected %d, found %d", i+1, v)
		}
		p := versions[v]
		if !p.up {
			return fmt.Errorf("migration version %d has no up file", v)
		}
		if !p.down {
			return fmt.Errorf("migration version %d has no down file", v)
		}
	}
	return nil
}

// Apply validates the embedded set, recovers a dirty state if one is
// recorded, and brings the schema up to the latest version. When
// autoMigrate is false the current state is logged and nothing is applied.
func Apply(db *sql.DB, autoMigrate bool) error {
	if err := ValidateSet(); err != nil {
		return fmt.Errorf("invalid migration set: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFiles, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	if dirty {
		slog.Warn("[Migrations] Dirty state recorded, recovering",
			"version", version,
		)
		// The statements are idempotent (IF NOT EXISTS), so forcing back
		// to the recorded version and re-running is safe.
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to recover dirty state at version %d: %w", version, err)
		}
		slog.Info("[Migrations] Recovered dirty state", "version", version)
	}

	if !autoMigrate {
		slog.Info("[Migrations] Auto-migration disabled, leaving schema as is",
			"current_version", version,
		)
		return nil
	}

	slog.Info("[Migrations] Applying pending migrations", "current_version", version)

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			slog.Info("[Migrations] Schema already up to date", "version", version)
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	newVersion, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version after apply: %w", err)
	}
	slog.Info("[Migrations] Schema migrated",
		"from_version", version,
		"to_version", newVersion,
	)
	return nil
}
