// Package store persists client-local state (cart, favorites, addresses,
// cleared bookings, theme) as independently serialized JSON entries in a
// local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coffeebeat/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(path string, logger *zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create store tables: %w", err)
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "store").Logger()
	}
	base.Info().Str("path", path).Msg("local store initialized")
	return &Store{db: db, logger: base}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS kv_entries (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec %q: %w", query, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetJSON reads a key and unmarshals it into dest. A missing key leaves dest
// untouched and returns false. Corrupt JSON is discarded and the key deleted,
// falling back to the empty state rather than propagating.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("corrupt persisted entry discarded")
		if _, delErr := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); delErr != nil {
			s.logger.Error().Err(delErr).Str("key", key).Msg("discard corrupt entry")
		}
		return false, nil
	}
	return true, nil
}

// SetJSON serializes value and writes it synchronously under key.
func (s *Store) SetJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode key %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}

// Cart returns the persisted cart, empty when absent or corrupt.
func (s *Store) Cart(ctx context.Context) ([]models.CartItem, error) {
	var items []models.CartItem
	if _, err := s.GetJSON(ctx, models.KeyCart, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveCart(ctx context.Context, items []models.CartItem) error {
	return s.SetJSON(ctx, models.KeyCart, items)
}

// Favorites returns the persisted favorite product IDs.
func (s *Store) Favorites(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := s.GetJSON(ctx, models.KeyFavorites, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) SaveFavorites(ctx context.Context, ids []string) error {
	return s.SetJSON(ctx, models.KeyFavorites, ids)
}

// Addresses returns the saved delivery addresses.
func (s *Store) Addresses(ctx context.Context) ([]string, error) {
	var addrs []string
	if _, err := s.GetJSON(ctx, models.KeyUserAddresses, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

func (s *Store) SaveAddresses(ctx context.Context, addrs []string) error {
	return s.SetJSON(ctx, models.KeyUserAddresses, addrs)
}

// ClearedBookings returns the persisted cleared-booking IDs.
func (s *Store) ClearedBookings(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := s.GetJSON(ctx, models.KeyClearedBookings, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AppendClearedBooking adds one booking ID to the cleared set. The set is
// monotonic-append within a session; duplicates are ignored.
func (s *Store) AppendClearedBooking(ctx context.Context, bookingID string) error {
	ids, err := s.ClearedBookings(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == bookingID {
			return nil
		}
	}
	return s.SetJSON(ctx, models.KeyClearedBookings, append(ids, bookingID))
}

// Theme returns the persisted theme name, empty when unset.
func (s *Store) Theme(ctx context.Context) (string, error) {
	var theme string
	if _, err := s.GetJSON(ctx, models.KeyTheme, &theme); err != nil {
		return "", err
	}
	return theme, nil
}

func (s *Store) SaveTheme(ctx context.Context, theme string) error {
	return s.SetJSON(ctx, models.KeyTheme, theme)
}
