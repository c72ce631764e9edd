// Package reconciler derives display statuses for bookings and tables from
// server state, wall-clock time and the locally persisted cleared set. All
// derivations are pure: the current instant is always an explicit parameter.
package reconciler

import (
	"sort"
	"time"

	"coffeebeat/internal/models"

	"github.com/rs/zerolog"
)

// OverrideSet holds booking IDs marked complete by a staff "clear table"
// action that the server does not know about yet.
type OverrideSet map[string]struct{}

// NewOverrideSet builds a set from a list of booking IDs.
func NewOverrideSet(ids []string) OverrideSet {
	set := make(OverrideSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether the booking ID was cleared.
func (s OverrideSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Reconciler computes effective booking statuses and table occupancy.
type Reconciler struct {
	venue  *time.Location
	logger zerolog.Logger
}

func New(venue *time.Location, logger *zerolog.Logger) *Reconciler {
	if venue == nil {
		venue = time.Local
	}
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "reconciler").Logger()
	}
	return &Reconciler{venue: venue, logger: base}
}

// window is the interval during which a booking holds its table.
// hasLead marks the timestamp form, which shows an early RESERVED state.
type window struct {
	start   time.Time
	end     time.Time
	hasLead bool
}

// bookingWindow computes the time window for either booking form. The second
// return is false when the booking carries no parseable time information.
func (r *Reconciler) bookingWindow(b *models.Booking) (window, bool) {
	if b.HasExactTime() {
		start, err := time.Parse(time.RFC3339, b.TimeSlot)
		if err != nil {
			r.logger.Warn().Str("booking_id", b.ID).Str("time_slot", b.TimeSlot).Msg("unparseable timeSlot, treating as unknown future")
			return window{}, false
		}
		return window{start: start, end: start.Add(models.ServiceDuration), hasLead: true}, true
	}

	if b.BookingDate == "" || b.BookingTimeSlot == "" {
		return window{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", b.BookingDate, r.venue)
	if err != nil {
		r.logger.Warn().Str("booking_id", b.ID).Str("booking_date", b.BookingDate).Msg("unparseable bookingDate, treating as unknown future")
		return window{}, false
	}

	var startHour, endHour int
	switch b.BookingTimeSlot {
	case models.SlotMorning:
		startHour, endHour = models.MorningStartHour, models.MorningEndHour
	case models.SlotAfternoon:
		startHour, endHour = models.AfternoonStartHour, models.AfternoonEndHour
	case models.SlotEvening:
		startHour, endHour = models.EveningStartHour, models.EveningEndHour
	default:
		r.logger.Warn().Str("booking_id", b.ID).Str("slot", string(b.BookingTimeSlot)).Msg("unknown time slot, treating as unknown future")
		return window{}, false
	}

	return window{
		start: time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, r.venue),
		end:   time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, r.venue),
	}, true
}

// statusRank orders the derivable lifecycle so the effective status never
// regresses: the server-stored status seeds the floor and time only raises it.
func statusRank(s models.BookingStatus) int {
	switch s {
	case models.StatusReserved:
		return 1
	case models.StatusOccupied:
		return 2
	case models.StatusCompleted:
		return 3
	default: // BOOKED and anything unrecognized
		return 0
	}
}

// EffectiveStatus computes the display status for a booking at the given
// instant. CANCELLED is absolute; a cleared booking is COMPLETED; otherwise
// the time ladder applies, floored by the server-stored status.
func (r *Reconciler) EffectiveStatus(b *models.Booking, now time.Time, overrides OverrideSet) models.BookingStatus {
	if b.Status == models.StatusCancelled {
		return models.StatusCancelled
	}
	if overrides.Has(b.ID) {
		return models.StatusCompleted
	}

	derived := r.timeDerivedStatus(b, now)
	if statusRank(b.Status) > statusRank(derived) {
		return b.Status
	}
	return derived
}

func (r *Reconciler) timeDerivedStatus(b *models.Booking, now time.Time) models.BookingStatus {
	w, ok := r.bookingWindow(b)
	if !ok {
		// Unknown future: never crash the render path.
		return models.StatusBooked
	}

	switch {
	case w.hasLead && now.Before(w.start.Add(-models.LeadWindow)):
		return models.StatusBooked
	case w.hasLead && now.Before(w.start):
		return models.StatusReserved
	case !w.hasLead && now.Before(w.start):
		return models.StatusBooked
	case now.Before(w.end):
		return models.StatusOccupied
	default:
		// Slot fully elapsed; the booking no longer holds its table.
		return models.StatusCompleted
	}
}

// TableOccupancy derives one table's occupancy from the full booking list.
// Only bookings whose effective status is RESERVED or OCCUPIED hold a table;
// cancelled, cleared and elapsed bookings do not, and neither do bookings
// still outside their lead window. On a double booking the earliest window
// start wins, with booking ID as a deterministic tie-break.
func (r *Reconciler) TableOccupancy(table models.Table, bookings []*models.Booking, now time.Time, overrides OverrideSet) models.Occupancy {
	type candidate struct {
		booking *models.Booking
		status  models.BookingStatus
		start   time.Time
	}

	var active []candidate
	for _, b := range bookings {
		if b.TableNumber != table.Number {
			continue
		}
		status := r.EffectiveStatus(b, now, overrides)
		if status != models.StatusReserved && status != models.StatusOccupied {
			continue
		}
		w, ok := r.bookingWindow(b)
		if !ok {
			continue
		}
		active = append(active, candidate{booking: b, status: status, start: w.start})
	}

	if len(active) == 0 {
		return models.Occupancy{Table: table, Status: models.TableAvailable}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].start.Equal(active[j].start) {
			return active[i].booking.ID < active[j].booking.ID
		}
		return active[i].start.Before(active[j].start)
	})

	winner := active[0]
	status := models.TableReserved
	if winner.status == models.StatusOccupied {
		status = models.TableOccupied
	}
	return models.Occupancy{Table: table, Status: status, Booking: winner.booking}
}

// FloorPlan derives occupancy for every table in the catalog.
func (r *Reconciler) FloorPlan(catalog []models.Table, bookings []*models.Booking, now time.Time, overrides OverrideSet) []models.Occupancy {
	out := make([]models.Occupancy, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, r.TableOccupancy(t, bookings, now, overrides))
	}
	return out
}
