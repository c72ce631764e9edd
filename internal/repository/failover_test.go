package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyOverrideRepo struct {
	mu      sync.Mutex
	failing bool
	calls   int
	inner   *MemoryOverrideRepository
}

func newFlakyOverrideRepo() *flakyOverrideRepo {
	return &flakyOverrideRepo{inner: NewMemoryOverrideRepository()}
}

func (f *flakyOverrideRepo) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *flakyOverrideRepo) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return errors.New("connection refused")
	}
	return nil
}

func (f *flakyOverrideRepo) MarkCleared(ctx context.Context, id string) error {
	if err := f.check(); err != nil {
		return err
	}
	return f.inner.MarkCleared(ctx, id)
}

func (f *flakyOverrideRepo) IsCleared(ctx context.Context, id string) (bool, error) {
	if err := f.check(); err != nil {
		return false, err
	}
	return f.inner.IsCleared(ctx, id)
}

func (f *flakyOverrideRepo) ClearedIDs(ctx context.Context) ([]string, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.inner.ClearedIDs(ctx)
}

func TestMemoryOverrideRepository(t *testing.T) {
	repo := NewMemoryOverrideRepository()
	ctx := context.Background()

	ok, err := repo.IsCleared(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.MarkCleared(ctx, "b1"))
	require.NoError(t, repo.MarkCleared(ctx, "b1"))

	ok, err = repo.IsCleared(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := repo.ClearedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, ids)
}

func TestFailoverUsesPrimaryWhenHealthy(t *testing.T) {
	primary := newFlakyOverrideRepo()
	fallback := NewMemoryOverrideRepository()
	logger := zerolog.Nop()
	repo := NewFailoverOverrideRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.MarkCleared(ctx, "b1"))

	ok, err := primary.inner.IsCleared(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	// The fallback is kept warm on every successful write.
	ok, err = fallback.IsCleared(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailoverFallsBackOnError(t *testing.T) {
	primary := newFlakyOverrideRepo()
	fallback := NewMemoryOverrideRepository()
	logger := zerolog.Nop()
	repo := NewFailoverOverrideRepository(primary, fallback, &logger)
	ctx := context.Background()

	primary.setFailing(true)
	require.NoError(t, repo.MarkCleared(ctx, "b2"))

	ok, err := fallback.IsCleared(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, ok)

	// Once marked down, reads go straight to the fallback.
	before := primary.calls
	ok, err = repo.IsCleared(ctx, "b2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, before, primary.calls)
}

func TestFailoverWarmFallbackSurvivesOutage(t *testing.T) {
	primary := newFlakyOverrideRepo()
	fallback := NewMemoryOverrideRepository()
	logger := zerolog.Nop()
	repo := NewFailoverOverrideRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.MarkCleared(ctx, "b3"))
	primary.setFailing(true)

	ids, err := repo.ClearedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b3"}, ids)
}
