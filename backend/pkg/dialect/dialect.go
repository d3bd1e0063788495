// Package dialect describes the settings databases the service can run on.
package dialect

import (
	"embed"
	"fmt"
	"strings"

	"envsensor/backend/internal/database/postgres"
	"envsensor/backend/internal/database/sqlite"
)

type Dialect string

const (
	SQLite     Dialect = "sqlite"
	PostgreSQL Dialect = "postgres"
)

// sqliteOptions keeps writers from failing with SQLITE_BUSY while the dashboard reads.
const sqliteOptions = "_busy_timeout=5000&_journal_mode=WAL"

var aliases = map[string]Dialect{
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"postgres":   PostgreSQL,
	"postgresql": PostgreSQL,
	"pgx":        PostgreSQL,
}

// Parse accepts the dialect names and driver names used in configuration, case-insensitively.
func Parse(s string) (Dialect, error) {
	d, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", Dialect(s).Validate()
	}

	return d, nil
}

func (d Dialect) Validate() error {
	switch d {
	case SQLite, PostgreSQL:
		return nil
	default:
		return fmt.Errorf("unsupported dialect: %q", string(d))
	}
}

func (d Dialect) String() string {
	return string(d)
}

// Driver returns the database/sql driver name.
func (d Dialect) Driver() string {
	switch d {
	case SQLite:
		return "sqlite3"
	case PostgreSQL:
		return "pgx"
	default:
		return ""
	}
}

// DSN turns the configured connection string into the one handed to sql.Open.
// SQLite paths get busy timeout and WAL options appended.
func (d Dialect) DSN(conn string) string {
	if d != SQLite {
		return conn
	}

	sep := "?"
	if strings.Contains(conn, "?") {
		sep = "&"
	}

	return conn + sep + sqliteOptions
}

// MaxOpenConns is the pool limit for the dialect, 0 meaning unlimited.
// SQLite allows a single writer.
func (d Dialect) MaxOpenConns() int {
	if d == SQLite {
		return 1
	}

	return 0
}

func (d Dialect) MigrationFS() embed.FS {
	switch d {
	case SQLite:
		return sqlite.GetMigrationsFS()
	case PostgreSQL:
		return postgres.GetMigrationsFS()
	default:
		return embed.FS{}
	}
}
