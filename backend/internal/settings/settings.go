// Package settings persists operator settings: allow-list, discovery mode and scan-on-start.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"envsensor/backend/pkg/utils"
)

const (
	keyDiscoveryMode = "discovery_mode"
	keyScanOnStart   = "scan_on_start"
)

type Settings struct {
	AllowList     []string `json:"allowList"`
	DiscoveryMode bool     `json:"discoveryMode"`
	ScanOnStart   bool     `json:"scanOnStart"`
}

// Store reads and writes settings. Statements use $N placeholders, which both
// go-sqlite3 and pgx accept.
type Store struct {
	db *sql.DB
	l  *slog.Logger
}

func New(l *slog.Logger, db *sql.DB) *Store {
	return &Store{db: db, l: l.With(slog.String("component", "settings"))}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load returns the stored settings. Flags never written take their value from defaults.
func (s *Store) Load(ctx context.Context, defaults Settings) (Settings, error) {
	allow, err := s.AllowList(ctx)
	if err != nil {
		return Settings{}, err
	}

	discovery, err := s.getBool(ctx, keyDiscoveryMode, defaults.DiscoveryMode)
	if err != nil {
		return Settings{}, err
	}

	scan, err := s.getBool(ctx, keyScanOnStart, defaults.ScanOnStart)
	if err != nil {
		return Settings{}, err
	}

	return Settings{AllowList: allow, DiscoveryMode: discovery, ScanOnStart: scan}, nil
}

// Seed stores ids only when the allow-list table is empty.
func (s *Store) Seed(ctx context.Context, ids []string) error {
	current, err := s.AllowList(ctx)
	if err != nil {
		return err
	}

	if len(current) > 0 || len(ids) == 0 {
		return nil
	}

	s.l.Info("Seeding allow-list", slog.Int("count", len(ids)))

	for _, id := range ids {
		if err := s.AddAllowed(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// AllowList returns the persisted device identities, sorted.
func (s *Store) AllowList(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT device_id FROM allowlist ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allow-list: %w", err)
	}
	defer utils.LogOnError(s.l, rows.Close, "failed to close allow-list rows")

	ids := []string{}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan allow-list entry: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allow-list: %w", err)
	}

	return ids, nil
}

// AddAllowed stores an already normalized identity. Adding twice is a no-op.
func (s *Store) AddAllowed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO allowlist (device_id) VALUES ($1) ON CONFLICT (device_id) DO NOTHING`, id)
	if err != nil {
		return fmt.Errorf("failed to add %q to allow-list: %w", id, err)
	}

	return nil
}

func (s *Store) RemoveAllowed(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM allowlist WHERE device_id = $1`, id); err != nil {
		return fmt.Errorf("failed to remove %q from allow-list: %w", id, err)
	}

	return nil
}

func (s *Store) ClearAllowList(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM allowlist`); err != nil {
		return fmt.Errorf("failed to clear allow-list: %w", err)
	}

	return nil
}

func (s *Store) SetDiscoveryMode(ctx context.Context, enabled bool) error {
	return s.setBool(ctx, keyDiscoveryMode, enabled)
}

func (s *Store) SetScanOnStart(ctx context.Context, enabled bool) error {
	return s.setBool(ctx, keyScanOnStart, enabled)
}

func (s *Store) getBool(ctx context.Context, key string, def bool) (bool, error) {
	var val string

	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for setting %s: %w", key, err)
	}

	return b, nil
}

func (s *Store) setBool(ctx context.Context, key string, val bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, strconv.FormatBool(val))
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}

	return nil
}
