package dialect

import (
	"io/fs"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Dialect
		driver  string
		wantErr bool
	}{
		{in: "sqlite", want: SQLite, driver: "sqlite3"},
		{in: "postgres", want: PostgreSQL, driver: "pgx"},
		{in: "postgresql", want: PostgreSQL, driver: "pgx"},
		{in: " SQLite3 ", want: SQLite, driver: "sqlite3"},
		{in: "PGX", want: PostgreSQL, driver: "pgx"},
		{in: "mysql", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}

			if got.Driver() != tt.driver {
				t.Errorf("Driver() = %q, want %q", got.Driver(), tt.driver)
			}

			if _, err := fs.ReadDir(got.MigrationFS(), "migrations"); err != nil {
				t.Errorf("MigrationFS() has no migrations: %v", err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d     Dialect
		conn  string
		want  string
		conns int
	}{
		{d: SQLite, conn: "data/envsensor.sqlite", want: "data/envsensor.sqlite?" + sqliteOptions, conns: 1},
		{d: SQLite, conn: "file:x.db?cache=shared", want: "file:x.db?cache=shared&" + sqliteOptions, conns: 1},
		{d: PostgreSQL, conn: "postgres://u@h:5432/db?sslmode=disable", want: "postgres://u@h:5432/db?sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.conn, func(t *testing.T) {
			t.Parallel()

			if got := tt.d.DSN(tt.conn); got != tt.want {
				t.Errorf("DSN(%q) = %q, want %q", tt.conn, got, tt.want)
			}

			if got := tt.d.MaxOpenConns(); got != tt.conns {
				t.Errorf("MaxOpenConns() = %d, want %d", got, tt.conns)
			}
		})
	}
}
