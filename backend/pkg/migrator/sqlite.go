package migrator

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/sqlite"
	_ "github.com/mattn/go-sqlite3"

	"envsensor/backend/pkg/dialect"
)

type sqliteMigrator struct {
	db *dbmate.DB
	l  *slog.Logger
}

// newSQLiteMigrator expects a file path. In-memory databases would be gone before the service opens them.
func newSQLiteMigrator(l *slog.Logger, path string) (*sqliteMigrator, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	if strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory") {
		return nil, errors.New("in-memory databases are not supported")
	}

	u, err := url.Parse("sqlite:" + path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	l = l.With(slog.String("component", "db-migrator"), slog.String("dialect", dialect.SQLite.String()))

	db, err := newDB(l, dialect.SQLite, u)
	if err != nil {
		return nil, err
	}

	return &sqliteMigrator{db: db, l: l}, nil
}

func (m *sqliteMigrator) Migrate() error {
	return migrate(m.l, m.db)
}

func (m *sqliteMigrator) DumpSchema(filePath string) error {
	m.db.SchemaFile = filePath

	m.l.Info("Dumping schema", slog.String("file", filePath))

	if err := m.db.DumpSchema(); err != nil {
		return fmt.Errorf("failed to dump schema: %w", err)
	}

	return nil
}
