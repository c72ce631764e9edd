package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"coffeebeat/internal/events"
	"coffeebeat/internal/models"
	"coffeebeat/internal/reconciler"
	"coffeebeat/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingAPI struct {
	mine     []*models.Booking
	all      []*models.Booking
	mineErr  error
	allErr   error
	allCalls int
	myCalls  int
}

func (f *fakeBookingAPI) MyBookings(ctx context.Context) ([]*models.Booking, error) {
	f.myCalls++
	return f.mine, f.mineErr
}

func (f *fakeBookingAPI) AllBookings(ctx context.Context) ([]*models.Booking, error) {
	f.allCalls++
	return f.all, f.allErr
}

func (f *fakeBookingAPI) CreateBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	return b, nil
}

func (f *fakeBookingAPI) UpdateBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	return b, nil
}

func (f *fakeBookingAPI) CancelBooking(ctx context.Context, id string) error {
	return nil
}

type fakeLocalState struct {
	items   []models.CartItem
	cleared []string
}

func (f *fakeLocalState) Cart(ctx context.Context) ([]models.CartItem, error) { return f.items, nil }

func (f *fakeLocalState) SaveCart(ctx context.Context, items []models.CartItem) error {
	f.items = items
	return nil
}

func (f *fakeLocalState) ClearedBookings(ctx context.Context) ([]string, error) {
	return f.cleared, nil
}

func (f *fakeLocalState) AppendClearedBooking(ctx context.Context, id string) error {
	for _, existing := range f.cleared {
		if existing == id {
			return nil
		}
	}
	f.cleared = append(f.cleared, id)
	return nil
}

type serviceFixture struct {
	svc       *BookingService
	api       *fakeBookingAPI
	state     *fakeLocalState
	overrides *repository.MemoryOverrideRepository
	bus       *events.EventBus
	cancel    context.CancelFunc
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	api := &fakeBookingAPI{}
	state := &fakeLocalState{}
	overrides := repository.NewMemoryOverrideRepository()
	bus := events.NewEventBus()
	recon := reconciler.New(time.UTC, nil)
	svc := NewBookingService(api, overrides, state, recon, bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	<-svc.Ready()
	t.Cleanup(cancel)

	return &serviceFixture{svc: svc, api: api, state: state, overrides: overrides, bus: bus, cancel: cancel}
}

func activeBooking(id, table string, seating time.Time) *models.Booking {
	return &models.Booking{
		ID:          id,
		TableNumber: table,
		PeopleCount: 2,
		TimeSlot:    seating.Format(time.RFC3339),
		Status:      models.StatusBooked,
	}
}

func TestApplyServerBookings(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	seating := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	require.NoError(t, f.svc.ApplyServerBookings(ctx, []*models.Booking{activeBooking("b1", "T1", seating)}))

	views := f.svc.Bookings(now)
	require.Len(t, views, 1)
	assert.Equal(t, models.StatusOccupied, views[0].EffectiveStatus)
	assert.False(t, f.svc.LastFetched().IsZero())
}

func TestClearTableMarksActiveBooking(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	seating := time.Now().Add(-30 * time.Minute)

	require.NoError(t, f.svc.ApplyServerBookings(ctx, []*models.Booking{activeBooking("b1", "T2", seating)}))

	var clearedEvents []events.TableClearedPayload
	f.bus.Subscribe(events.EventTableCleared, func(e *events.Event) error {
		var p events.TableClearedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		clearedEvents = append(clearedEvents, p)
		return nil
	})

	id, err := f.svc.ClearTable(ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, "b1", id)

	// Durable store, shared repository and snapshot all carry the mark.
	assert.Equal(t, []string{"b1"}, f.state.cleared)
	ok, err := f.overrides.IsCleared(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	views := f.svc.Bookings(time.Now())
	require.Len(t, views, 1)
	assert.Equal(t, models.StatusCompleted, views[0].EffectiveStatus)

	require.Len(t, clearedEvents, 1)
	assert.Equal(t, "b1", clearedEvents[0].BookingID)
	assert.Equal(t, "T2", clearedEvents[0].TableNumber)
}

func TestClearTableErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.ClearTable(ctx, "T99")
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = f.svc.ClearTable(ctx, "T1")
	assert.ErrorIs(t, err, ErrNoActiveBooking)
}

func TestClearTableIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	seating := time.Now().Add(-30 * time.Minute)

	require.NoError(t, f.svc.ApplyServerBookings(ctx, []*models.Booking{activeBooking("b1", "T3", seating)}))

	_, err := f.svc.ClearTable(ctx, "T3")
	require.NoError(t, err)

	// The table is free now, so a second clear finds nothing to act on.
	_, err = f.svc.ClearTable(ctx, "T3")
	assert.ErrorIs(t, err, ErrNoActiveBooking)
	assert.Equal(t, []string{"b1"}, f.state.cleared)
}

func TestOverrideSurvivesReapply(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	seating := time.Now().Add(-30 * time.Minute)
	booking := activeBooking("b1", "T4", seating)

	require.NoError(t, f.svc.ApplyServerBookings(ctx, []*models.Booking{booking}))
	_, err := f.svc.ClearTable(ctx, "T4")
	require.NoError(t, err)

	// A later poll still reports the stale raw booking; the override holds.
	require.NoError(t, f.svc.ApplyServerBookings(ctx, []*models.Booking{booking}))
	views := f.svc.Bookings(time.Now())
	require.Len(t, views, 1)
	assert.Equal(t, models.StatusCompleted, views[0].EffectiveStatus)
}

func TestApplyExternalCleared(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	seating := time.Now().Add(-30 * time.Minute)

	require.NoError(t, f.svc.ApplyServerBookings(ctx, []*models.Booking{activeBooking("b1", "T5", seating)}))
	require.NoError(t, f.svc.ApplyExternalCleared(ctx, "b1"))

	views := f.svc.Bookings(time.Now())
	require.Len(t, views, 1)
	assert.Equal(t, models.StatusCompleted, views[0].EffectiveStatus)

	// External marks were persisted by the originating view, not re-persisted here.
	assert.Empty(t, f.state.cleared)
}

func TestSeedOverridesFromStoreAndRepository(t *testing.T) {
	api := &fakeBookingAPI{}
	state := &fakeLocalState{cleared: []string{"local-1"}}
	overrides := repository.NewMemoryOverrideRepository()
	require.NoError(t, overrides.MarkCleared(context.Background(), "shared-1"))
	recon := reconciler.New(time.UTC, nil)
	svc := NewBookingService(api, overrides, state, recon, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)
	<-svc.Ready()

	seating := time.Now().Add(-30 * time.Minute)
	require.NoError(t, svc.ApplyServerBookings(ctx, []*models.Booking{
		activeBooking("local-1", "T1", seating),
		activeBooking("shared-1", "T2", seating),
		activeBooking("fresh", "T3", seating),
	}))

	byID := map[string]models.BookingStatus{}
	for _, v := range svc.Bookings(time.Now()) {
		byID[v.Booking.ID] = v.EffectiveStatus
	}
	assert.Equal(t, models.StatusCompleted, byID["local-1"])
	assert.Equal(t, models.StatusCompleted, byID["shared-1"])
	assert.Equal(t, models.StatusOccupied, byID["fresh"])
}

func TestRefreshPicksEndpointByRole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.api.all = []*models.Booking{activeBooking("b1", "T1", time.Now())}
	f.api.mine = []*models.Booking{}

	require.NoError(t, f.svc.Refresh(ctx, true))
	assert.Equal(t, 1, f.api.allCalls)
	assert.Equal(t, 0, f.api.myCalls)

	require.NoError(t, f.svc.Refresh(ctx, false))
	assert.Equal(t, 1, f.api.myCalls)
}

func TestRefreshErrorKeepsSnapshot(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	seating := time.Now().Add(-30 * time.Minute)
	f.api.all = []*models.Booking{activeBooking("b1", "T1", seating)}

	require.NoError(t, f.svc.Refresh(ctx, true))
	require.Len(t, f.svc.Bookings(time.Now()), 1)

	f.api.allErr = errors.New("backend down")
	require.Error(t, f.svc.Refresh(ctx, true))
	assert.Len(t, f.svc.Bookings(time.Now()), 1, "stale data beats no data")
}

func TestFloorPlan(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	seating := time.Now().Add(-30 * time.Minute)

	require.NoError(t, f.svc.ApplyServerBookings(ctx, []*models.Booking{activeBooking("b1", "T6", seating)}))

	plan := f.svc.FloorPlan(time.Now())
	require.Len(t, plan, 8)
	for _, occ := range plan {
		if occ.Table.Number == "T6" {
			assert.Equal(t, models.TableOccupied, occ.Status)
		} else {
			assert.Equal(t, models.TableAvailable, occ.Status)
		}
	}
}
