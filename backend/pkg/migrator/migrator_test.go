//go:build cgo

package migrator

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"envsensor/backend/pkg/dialect"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect dialect.Dialect
		conn    string
		wantErr string
	}{
		{name: "sqlite file", dialect: dialect.SQLite, conn: filepath.Join(t.TempDir(), "test.db")},
		{name: "sqlite empty path", dialect: dialect.SQLite, wantErr: "path is required"},
		{name: "sqlite in memory", dialect: dialect.SQLite, conn: ":memory:", wantErr: "in-memory"},
		{name: "postgres url", dialect: dialect.PostgreSQL, conn: "postgresql://u:p@localhost:5432/db?sslmode=disable"},
		{name: "postgres empty", dialect: dialect.PostgreSQL, wantErr: "connection string is required"},
		{name: "unknown dialect", dialect: dialect.Dialect("mysql"), conn: "x", wantErr: "unsupported dialect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := New(testLogger(), tt.dialect, tt.conn)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("New() error = %v, want containing %q", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			if m == nil {
				t.Fatal("New() returned nil")
			}
		})
	}
}

func TestSQLiteMigrateAndDump(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbFile := filepath.Join(dir, "test.db")
	schemaFile := filepath.Join(dir, "schema.sql")

	m, err := New(testLogger(), dialect.SQLite, dbFile)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := m.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if err := m.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	if err := m.DumpSchema(schemaFile); err != nil {
		t.Fatalf("DumpSchema() error = %v", err)
	}

	content, err := os.ReadFile(schemaFile)
	if err != nil {
		t.Fatalf("Failed to read schema file: %v", err)
	}

	for _, table := range []string{"settings", "allowlist"} {
		if !strings.Contains(string(content), table) {
			t.Errorf("schema is missing table %s", table)
		}
	}
}
