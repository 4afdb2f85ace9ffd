package db

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var fs embed.FS

func newMigrate(dbPath string) (*migrate.Migrate, error) {
	// Create a new source instance using the embedded migrations
	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, err
	}

	return migrate.NewWithSourceInstance("iofs", d, "sqlite://"+dbPath)
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		log.WithFields(log.Fields{
			"sourceError":   srcErr,
			"databaseError": dbErr,
		}).Warn("Error closing migration instance")
	}
}

// Migrate creates the feeds, entries and feed_tags tables and their indexes
// if they are missing. It is safe to run on every start. Any failure is
// returned as a *SchemaError.
func Migrate(dbPath string) error {
	m, err := newMigrate(dbPath)
	if err != nil {
		return &SchemaError{Op: "open", Err: err}
	}
	defer closeMigrate(m)

	migrateErr := m.Up()
	if migrateErr != nil && !errors.Is(migrateErr, migrate.ErrNoChange) {
		return &SchemaError{Op: "up", Err: migrateErr}
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return &SchemaError{Op: "version", Err: err}
	}
	if dirty {
		return &SchemaError{Op: "version", Err: errors.New("schema is dirty, fix it and force a version")}
	}

	fields := log.Fields{"database": dbPath, "version": version}
	if errors.Is(migrateErr, migrate.ErrNoChange) {
		log.WithFields(fields).Info("Schema is up to date")
	} else {
		log.WithFields(fields).Info("Schema migrated")
	}

	return nil
}

// Rollback reverts the last applied migration
func Rollback(dbPath string) error {
	m, err := newMigrate(dbPath)
	if err != nil {
		return &SchemaError{Op: "open", Err: err}
	}
	defer closeMigrate(m)

	if err := m.Steps(-1); err != nil {
		return &SchemaError{Op: "down", Err: err}
	}

	log.WithField("database", dbPath).Info("Rolled back last migration")
	return nil
}
