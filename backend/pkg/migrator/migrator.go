// Package migrator applies the embedded dbmate migrations of a dialect.
package migrator

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"

	"envsensor/backend/pkg/dialect"
	"envsensor/backend/pkg/utils"
)

const migrationsDir = "migrations"

// Migrator runs migrations and dumps the resulting schema.
type Migrator interface {
	Migrate() error
	DumpSchema(outputPath string) error
}

// New creates a migrator for d. connString is a file path for SQLite and a URL for PostgreSQL.
//
//nolint:ireturn // Returns Migrator interface
func New(l *slog.Logger, d dialect.Dialect, connString string) (Migrator, error) {
	switch d {
	case dialect.SQLite:
		return newSQLiteMigrator(l, connString)
	case dialect.PostgreSQL:
		return newPostgresMigrator(l, connString)
	default:
		return nil, d.Validate()
	}
}

// newDB wires a dbmate instance to the embedded migrations of d.
func newDB(l *slog.Logger, d dialect.Dialect, u *url.URL) (*dbmate.DB, error) {
	fs := d.MigrationFS()
	if _, err := fs.ReadDir(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	db := dbmate.New(u)
	db.Strict = true
	db.FS = fs
	db.MigrationsDir = []string{migrationsDir}
	db.AutoDumpSchema = false
	db.Log = utils.NewSlogWriter(l)

	return db, nil
}

func migrate(l *slog.Logger, db *dbmate.DB) error {
	l.Info("Migrating database")

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
