package generate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"envsensor/backend/pkg/dialect"
	"envsensor/backend/pkg/migrator"
)

// DumpDatabaseSchema migrates a scratch SQLite database and writes its schema to outputPath.
func DumpDatabaseSchema(l *slog.Logger, outputPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "envsensor-schema-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	m, err := migrator.New(l, dialect.SQLite, filepath.Join(tmpDir, "schema.sqlite"))
	if err != nil {
		return "", fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Migrate(); err != nil {
		return "", err
	}

	if err := m.DumpSchema(outputPath); err != nil {
		return "", err
	}

	schema, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read schema file: %w", err)
	}

	return string(schema), nil
}
