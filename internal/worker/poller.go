// Package worker drives the periodic backend re-fetch that feeds the booking
// reducer, and relays cross-view cleared signals into it.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Refresher is the reducer-facing slice of the booking service.
type Refresher interface {
	Refresh(ctx context.Context, staff bool) error
	ApplyExternalCleared(ctx context.Context, bookingID string) error
}

// Poller re-fetches bookings on a fixed interval, backing off on failures.
type Poller struct {
	refresher Refresher
	interval  time.Duration
	staff     bool
	retry     RetryPolicy
	logger    zerolog.Logger
}

func NewPoller(refresher Refresher, interval time.Duration, staff bool, retry RetryPolicy, logger *zerolog.Logger) *Poller {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "poller").Logger()
	}
	return &Poller{
		refresher: refresher,
		interval:  interval,
		staff:     staff,
		retry:     retry,
		logger:    base,
	}
}

// Start runs the polling loop until ctx is done. The first fetch happens
// immediately so views are populated on startup.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Bool("staff", p.staff).Msg("poller started")
	defer p.logger.Info().Msg("poller stopped")

	p.fetchWithRetry(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchWithRetry(ctx)
		}
	}
}

func (p *Poller) fetchWithRetry(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := p.refresher.Refresh(ctx, p.staff)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= p.retry.MaxRetries {
			p.logger.Error().Err(err).Int("attempts", attempt).Msg("poll failed, waiting for next interval")
			return
		}

		delay := p.retry.NextDelay(attempt)
		p.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("poll failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// ClearedSignalSource delivers booking IDs cleared by other views.
type ClearedSignalSource interface {
	SubscribeCleared(ctx context.Context) (<-chan string, func(), error)
}

// RelayClearedSignals forwards external clear signals into the reducer until
// ctx is done. Returns immediately when the subscription cannot be opened;
// the in-process event bus still covers same-process views.
func RelayClearedSignals(ctx context.Context, source ClearedSignalSource, refresher Refresher, logger *zerolog.Logger) {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "cleared_relay").Logger()
	}

	ch, cancel, err := source.SubscribeCleared(ctx)
	if err != nil {
		base.Warn().Err(err).Msg("cleared signal subscription unavailable")
		return
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-ch:
			if !ok {
				return
			}
			if err := refresher.ApplyExternalCleared(ctx, id); err != nil {
				base.Error().Err(err).Str("booking_id", id).Msg("apply external cleared")
			}
		}
	}
}
