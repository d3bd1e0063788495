// Package helpers holds the startup steps shared by the service binaries.
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"envsensor/backend/internal/config"
	"envsensor/backend/pkg/migrator"
	"envsensor/backend/pkg/utils"
)

const pingTimeout = 10 * time.Second

// GetLogger builds the process logger: JSON at runtime, text in generate mode.
func GetLogger(c *config.Config) *slog.Logger {
	logOptions := slog.HandlerOptions{
		Level:       c.LogLevel,
		ReplaceAttr: utils.SlogReplacer,
	}

	var logHandler slog.Handler = slog.NewJSONHandler(c.LogOutput, &logOptions)
	if c.Generate {
		logHandler = slog.NewTextHandler(c.LogOutput, &logOptions)
	}

	return slog.New(logHandler).With(slog.String("version", utils.GetVersionShort()))
}

func RunMigrations(l *slog.Logger, c *config.Config) error {
	l.Info("Running database migrations", slog.String("dialect", c.Dialect.String()))

	mig, err := migrator.New(l, c.Dialect, c.Database)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := mig.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	l.Info("Database migrations completed successfully")

	return nil
}

// OpenDatabase opens and pings the settings database.
func OpenDatabase(ctx context.Context, c *config.Config) (*sql.DB, error) {
	db, err := sql.Open(c.Dialect.Driver(), c.Dialect.DSN(c.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(c.Dialect.MaxOpenConns())

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return db, nil
}
