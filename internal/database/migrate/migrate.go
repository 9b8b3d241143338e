// Package migrate applies the embedded schema migrations using golang-migrate.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"

	"github.com/EightfoldWitch/the-hermit/internal/config"
)

//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var migrations embed.FS

// newMigrator builds a migrator for db. It must not be closed: closing it closes db.
func newMigrator(db *sql.DB, driver string) (*migrate.Migrate, error) {
	var (
		instance database.Driver
		dir      string
		err      error
	)
	switch driver {
	case config.DriverSQLite:
		dir = "migrations/sqlite3"
		instance, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	case config.DriverPostgres:
		dir = "migrations/postgres"
		instance, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s migration driver: %w", driver, err)
	}

	source, err := iofs.New(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, instance)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Up applies every pending migration. Already applied migrations are skipped.
func Up(db *sql.DB, driver string) error {
	m, err := newMigrator(db, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("getting migration version: %w", err)
	}
	if dirty {
		log.Warn().Uint("version", version).Msg("Database migration state is dirty")
	} else {
		log.Info().Uint("version", version).Msg("Database migrations complete")
	}
	return nil
}

// Down rolls back all migrations.
// Use with caution - this will destroy all data.
func Down(db *sql.DB, driver string) error {
	m, err := newMigrator(db, driver)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}

// Version returns the current migration version.
func Version(db *sql.DB, driver string) (uint, bool, error) {
	m, err := newMigrator(db, driver)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}
