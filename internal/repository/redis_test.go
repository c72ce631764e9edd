package repository

import (
	"context"
	"testing"
	"time"

	"coffeebeat/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisRepo(t *testing.T) (*RedisOverrideRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisOverrideRepository(client, time.Hour), mr
}

func TestRedisMarkAndCheckCleared(t *testing.T) {
	repo, _ := newTestRedisRepo(t)
	ctx := context.Background()

	ok, err := repo.IsCleared(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.MarkCleared(ctx, "b1"))

	ok, err = repo.IsCleared(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisClearedIDs(t *testing.T) {
	repo, _ := newTestRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.MarkCleared(ctx, "b1"))
	require.NoError(t, repo.MarkCleared(ctx, "b2"))
	require.NoError(t, repo.MarkCleared(ctx, "b1"))

	ids, err := repo.ClearedIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b1", "b2"}, ids)
}

func TestRedisMarkClearedSetsTTL(t *testing.T) {
	repo, mr := newTestRedisRepo(t)

	require.NoError(t, repo.MarkCleared(context.Background(), "b1"))
	assert.Greater(t, mr.TTL(clearedSetKey), time.Duration(0))
}

func TestRedisSubscribeCleared(t *testing.T) {
	repo, _ := newTestRedisRepo(t)
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	ch, cancel, err := repo.SubscribeCleared(ctx)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, repo.MarkCleared(ctx, "b9"))

	select {
	case id := <-ch:
		assert.Equal(t, "b9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("no cleared signal received")
	}
}

func TestRedisServerDown(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	mr.Close()

	err := repo.MarkCleared(context.Background(), "b1")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	assert.NoError(t, Ping(context.Background(), client))

	mr.Close()
	assert.Error(t, Ping(context.Background(), client))
}
