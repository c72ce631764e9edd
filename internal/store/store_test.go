package store

import (
	"context"
	"path/filepath"
	"testing"

	"coffeebeat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetJSONMissingKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var items []models.CartItem
	found, err := s.GetJSON(ctx, models.KeyCart, &items)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, items)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := []models.CartItem{
		{ProductID: "latte", ProductName: "Latte", Price: 4.50, Quantity: 2},
		{ProductID: "croissant", ProductName: "Croissant", Price: 3.25, Quantity: 1},
	}
	require.NoError(t, s.SaveCart(ctx, in))

	out, err := s.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSetJSONOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTheme(ctx, "light"))
	require.NoError(t, s.SaveTheme(ctx, "dark"))

	theme, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)
}

func TestCorruptEntryDiscarded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, datetime('now'))`,
		models.KeyCart, `{"not": "a list`)
	require.NoError(t, err)

	items, err := s.Cart(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// The corrupt row is gone, not just skipped.
	var raw string
	scanErr := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, models.KeyCart).Scan(&raw)
	assert.Error(t, scanErr)
}

func TestAppendClearedBookingDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendClearedBooking(ctx, "b1"))
	require.NoError(t, s.AppendClearedBooking(ctx, "b2"))
	require.NoError(t, s.AppendClearedBooking(ctx, "b1"))

	ids, err := s.ClearedBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids)
}

func TestFavoritesAndAddresses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveFavorites(ctx, []string{"espresso", "mocha"}))
	favs, err := s.Favorites(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"espresso", "mocha"}, favs)

	require.NoError(t, s.SaveAddresses(ctx, []string{"12 Bean St"}))
	addrs, err := s.Addresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"12 Bean St"}, addrs)
}

func TestDeleteMissingKeyIsNoError(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Delete(context.Background(), "never-written"))
}
