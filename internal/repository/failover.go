package repository

import (
	"context"
	"sync/atomic"
	"time"

	"coffeebeat/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverOverrideRepository tries the primary (Redis) repository first and
// falls back to memory when it fails, probing the primary again after a
// cooldown.
type FailoverOverrideRepository struct {
	primary   domain.OverrideRepository
	fallback  domain.OverrideRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverOverrideRepository(primary, fallback domain.OverrideRepository, logger *zerolog.Logger) *FailoverOverrideRepository {
	return &FailoverOverrideRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverOverrideRepository) MarkCleared(ctx context.Context, bookingID string) error {
	if !r.isDown.Load() {
		err := r.primary.MarkCleared(ctx, bookingID)
		if err == nil {
			// Keep the fallback warm so a later failover still sees the mark.
			_ = r.fallback.MarkCleared(ctx, bookingID)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.MarkCleared(ctx, bookingID)
}

func (r *FailoverOverrideRepository) IsCleared(ctx context.Context, bookingID string) (bool, error) {
	if !r.isDown.Load() {
		ok, err := r.primary.IsCleared(ctx, bookingID)
		if err == nil {
			return ok, nil
		}
		r.markDown(err)
	}

	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		ok, err := r.primary.IsCleared(ctx, bookingID)
		if err == nil {
			r.isDown.Store(false)
			return ok, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.IsCleared(ctx, bookingID)
}

func (r *FailoverOverrideRepository) ClearedIDs(ctx context.Context) ([]string, error) {
	if !r.isDown.Load() {
		ids, err := r.primary.ClearedIDs(ctx)
		if err == nil {
			return ids, nil
		}
		r.markDown(err)
	}

	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		ids, err := r.primary.ClearedIDs(ctx)
		if err == nil {
			r.isDown.Store(false)
			return ids, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearedIDs(ctx)
}

func (r *FailoverOverrideRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary override repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}
