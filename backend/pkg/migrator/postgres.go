package migrator

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	"github.com/amacneil/dbmate/v2/pkg/dbutil"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres"

	"envsensor/backend/pkg/dialect"
)

type postgresMigrator struct {
	db *dbmate.DB
	l  *slog.Logger
}

func newPostgresMigrator(l *slog.Logger, connStr string) (*postgresMigrator, error) {
	if connStr == "" {
		return nil, errors.New("connection string is required")
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	l = l.With(slog.String("component", "db-migrator"), slog.String("dialect", dialect.PostgreSQL.String()))

	db, err := newDB(l, dialect.PostgreSQL, u)
	if err != nil {
		return nil, err
	}

	return &postgresMigrator{db: db, l: l}, nil
}

func (m *postgresMigrator) Migrate() error {
	return migrate(m.l, m.db)
}

// DumpSchema writes the schema without psql meta commands so the file diffs cleanly.
func (m *postgresMigrator) DumpSchema(filePath string) error {
	m.db.SchemaFile = filePath

	m.l.Info("Dumping schema", slog.String("file", filePath))

	if err := m.db.DumpSchema(); err != nil {
		return fmt.Errorf("failed to dump schema: %w", err)
	}

	schemaBytes, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	schemaBytes, err = dbutil.StripPsqlMetaCommands(schemaBytes)
	if err != nil {
		return fmt.Errorf("failed to strip psql meta commands: %w", err)
	}

	schema := string(bytes.TrimSpace(schemaBytes)) + "\n"

	if err := os.WriteFile(filePath, []byte(schema), 0o600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	return nil
}
