package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"coffeebeat/internal/domain"
	"coffeebeat/internal/events"
	"coffeebeat/internal/metrics"
	"coffeebeat/internal/models"
	"coffeebeat/internal/reconciler"
	"coffeebeat/internal/tables"

	"github.com/rs/zerolog"
)

var (
	ErrNoActiveBooking = errors.New("no active booking on table")
	ErrUnknownTable    = errors.New("unknown table")
)

// commandKind discriminates the reducer's ordered inputs.
type commandKind int

const (
	cmdApplyBookings commandKind = iota
	cmdMarkCleared
	cmdExternalCleared
)

type command struct {
	kind        commandKind
	bookings    []*models.Booking
	bookingID   string
	tableNumber string
	reply       chan error
}

// snapshot is the reducer's current view of the world. It is replaced
// wholesale by the reducer goroutine and read under the mutex.
type snapshot struct {
	bookings  []*models.Booking
	overrides reconciler.OverrideSet
	fetchedAt time.Time
}

// BookingService is the single source of truth for booking state. Server
// responses, staff clear actions and cross-view signals all pass through one
// ordered command channel consumed by a single goroutine, so a slow poll
// response can never interleave with a clear action.
type BookingService struct {
	api       domain.BookingAPI
	overrides domain.OverrideRepository
	state     domain.LocalState
	recon     *reconciler.Reconciler
	eventBus  domain.EventPublisher
	logger    zerolog.Logger

	commands chan command
	running  chan struct{}

	mu   sync.RWMutex
	snap snapshot
}

func NewBookingService(api domain.BookingAPI, overrides domain.OverrideRepository, state domain.LocalState, recon *reconciler.Reconciler, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "booking_service").Logger()
	}
	s := &BookingService{
		api:       api,
		overrides: overrides,
		state:     state,
		recon:     recon,
		eventBus:  eventBus,
		logger:    base,
		commands:  make(chan command, 64),
		running:   make(chan struct{}),
	}
	s.snap = snapshot{overrides: reconciler.OverrideSet{}}
	return s
}

// Run consumes the command queue until ctx is done. It seeds the override
// set from the durable store and the shared repository before serving.
func (s *BookingService) Run(ctx context.Context) {
	s.seedOverrides(ctx)
	close(s.running)
	s.logger.Info().Msg("booking reducer started")
	defer s.logger.Info().Msg("booking reducer stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			s.apply(ctx, cmd)
		}
	}
}

func (s *BookingService) seedOverrides(ctx context.Context) {
	set := reconciler.OverrideSet{}

	ids, err := s.state.ClearedBookings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("load cleared bookings from store")
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}

	if s.overrides != nil {
		shared, err := s.overrides.ClearedIDs(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("load cleared bookings from shared repository")
		}
		for _, id := range shared {
			set[id] = struct{}{}
		}
	}

	s.withSnapshot(func(snap *snapshot) { snap.overrides = set })
}

func (s *BookingService) apply(ctx context.Context, cmd command) {
	var err error
	switch cmd.kind {
	case cmdApplyBookings:
		s.withSnapshot(func(snap *snapshot) {
			snap.bookings = cmd.bookings
			snap.fetchedAt = time.Now()
		})
		if s.eventBus != nil {
			_ = s.eventBus.PublishJSON(events.EventBookingsRefreshed, map[string]int{"count": len(cmd.bookings)})
		}
	case cmdMarkCleared:
		err = s.markCleared(ctx, cmd.bookingID, cmd.tableNumber)
	case cmdExternalCleared:
		// Another view already persisted the mark; just fold it in.
		s.withSnapshot(func(snap *snapshot) {
			snap.overrides[cmd.bookingID] = struct{}{}
		})
	}
	if cmd.reply != nil {
		cmd.reply <- err
	}
}

// markCleared performs the durable write first, then best-effort shared
// propagation, then updates the snapshot and notifies other views.
func (s *BookingService) markCleared(ctx context.Context, bookingID, tableNumber string) error {
	if err := s.state.AppendClearedBooking(ctx, bookingID); err != nil {
		return err
	}
	if s.overrides != nil {
		if err := s.overrides.MarkCleared(ctx, bookingID); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("shared cleared mark failed, local mark kept")
		}
	}

	s.withSnapshot(func(snap *snapshot) {
		snap.overrides[bookingID] = struct{}{}
	})

	metrics.IncTableCleared()
	if s.eventBus != nil {
		payload := events.TableClearedPayload{
			BookingID:   bookingID,
			TableNumber: tableNumber,
			ClearedAt:   time.Now(),
		}
		if err := s.eventBus.PublishJSON(events.EventTableCleared, payload); err != nil {
			s.logger.Error().Err(err).Str("booking_id", bookingID).Msg("publish table cleared")
		}
	}
	s.logger.Info().Str("booking_id", bookingID).Str("table", tableNumber).Msg("table cleared")
	return nil
}

func (s *BookingService) withSnapshot(fn func(*snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
}

// readSnapshot copies the snapshot so readers never observe a mutation.
func (s *BookingService) readSnapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := snapshot{
		bookings:  s.snap.bookings,
		overrides: make(reconciler.OverrideSet, len(s.snap.overrides)),
		fetchedAt: s.snap.fetchedAt,
	}
	for id := range s.snap.overrides {
		snap.overrides[id] = struct{}{}
	}
	return snap
}

func (s *BookingService) send(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready is closed once the reducer has seeded its override set.
func (s *BookingService) Ready() <-chan struct{} {
	return s.running
}

// ApplyServerBookings enqueues a server response for ordered application.
func (s *BookingService) ApplyServerBookings(ctx context.Context, bookings []*models.Booking) error {
	return s.send(ctx, command{kind: cmdApplyBookings, bookings: bookings})
}

// ApplyExternalCleared folds in a clear performed by another view.
func (s *BookingService) ApplyExternalCleared(ctx context.Context, bookingID string) error {
	return s.send(ctx, command{kind: cmdExternalCleared, bookingID: bookingID})
}

// Refresh fetches bookings and applies them through the command queue.
// Uses the staff endpoint when staff is true, the customer one otherwise.
func (s *BookingService) Refresh(ctx context.Context, staff bool) error {
	var (
		bookings []*models.Booking
		err      error
	)
	if staff {
		bookings, err = s.api.AllBookings(ctx)
	} else {
		bookings, err = s.api.MyBookings(ctx)
	}
	if err != nil {
		metrics.IncPoll("error")
		return err
	}
	metrics.IncPoll("ok")
	return s.ApplyServerBookings(ctx, bookings)
}

// ClearTable marks the table's active booking completed. The booking is
// resolved from the current occupancy so the staff action targets what the
// staff member saw.
func (s *BookingService) ClearTable(ctx context.Context, tableNumber string) (string, error) {
	table, ok := tables.ByNumber(tableNumber)
	if !ok {
		return "", ErrUnknownTable
	}

	snap := s.readSnapshot()
	occ := s.recon.TableOccupancy(table, snap.bookings, time.Now(), snap.overrides)
	if occ.Booking == nil {
		return "", ErrNoActiveBooking
	}

	err := s.send(ctx, command{kind: cmdMarkCleared, bookingID: occ.Booking.ID, tableNumber: tableNumber})
	if err != nil {
		return "", err
	}
	return occ.Booking.ID, nil
}

// BookingView pairs a raw booking with its derived display status.
type BookingView struct {
	Booking         *models.Booking      `json:"booking"`
	EffectiveStatus models.BookingStatus `json:"effectiveStatus"`
}

// Bookings returns every known booking with its effective status at now.
func (s *BookingService) Bookings(now time.Time) []BookingView {
	snap := s.readSnapshot()
	out := make([]BookingView, 0, len(snap.bookings))
	for _, b := range snap.bookings {
		out = append(out, BookingView{
			Booking:         b,
			EffectiveStatus: s.recon.EffectiveStatus(b, now, snap.overrides),
		})
	}
	return out
}

// FloorPlan returns the derived occupancy of every table at now.
func (s *BookingService) FloorPlan(now time.Time) []models.Occupancy {
	snap := s.readSnapshot()
	return s.recon.FloorPlan(tables.All(), snap.bookings, now, snap.overrides)
}

// LastFetched reports when a server response was last applied.
func (s *BookingService) LastFetched() time.Time {
	return s.readSnapshot().fetchedAt
}
