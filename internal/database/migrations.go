package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/prajwalbharadwajbm/clipescrow/internal/config"
	"github.com/prajwalbharadwajbm/clipescrow/migrations"
)

// MigrationManager applies the embedded schema migrations
type MigrationManager struct {
	cfg config.DatabaseConfig
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(cfg config.DatabaseConfig) *MigrationManager {
	return &MigrationManager{cfg: cfg}
}

// Up runs all up migrations
func (m *MigrationManager) Up() error {
	return m.run(func(mg *migrate.Migrate) error {
		if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run up migrations: %w", err)
		}
		return nil
	})
}

// Down runs all down migrations
func (m *MigrationManager) Down() error {
	return m.run(func(mg *migrate.Migrate) error {
		if err := mg.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run down migrations: %w", err)
		}
		return nil
	})
}

// Version returns the current migration version; 0 when none is applied
func (m *MigrationManager) Version() (version uint, dirty bool, err error) {
	err = m.run(func(mg *migrate.Migrate) error {
		version, dirty, err = mg.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

// Force sets the migration version without running migrations
func (m *MigrationManager) Force(version int) error {
	return m.run(func(mg *migrate.Migrate) error {
		return mg.Force(version)
	})
}

// run opens a dedicated connection so closing the migrator never closes
// the service pool.
func (m *MigrationManager) run(fn func(*migrate.Migrate) error) error {
	migrationDB, err := sql.Open("postgres", m.cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration database connection: %w", err)
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	// Migrations are compiled into the binary
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		driver.Close()
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer mg.Close()

	return fn(mg)
}

// EnsureDatabase creates the database if it doesn't exist
func EnsureDatabase(cfg config.DatabaseConfig) error {
	// Connect to postgres database to create the target database
	admin := cfg
	admin.DBName = "postgres"

	db, err := sql.Open("postgres", admin.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	// Check if database exists
	var exists bool
	query := "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)"
	if err := db.QueryRow(query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	if !exists {
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(cfg.DBName))); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	return nil
}
