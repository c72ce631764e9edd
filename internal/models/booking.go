package models

import "time"

// BookingStatus is the lifecycle status of a table booking. BOOKED and
// CANCELLED are authoritative (server-set); RESERVED, OCCUPIED and COMPLETED
// are also derivable client-side from the time window and the cleared set.
type BookingStatus string

const (
	StatusBooked    BookingStatus = "BOOKED"
	StatusReserved  BookingStatus = "RESERVED"
	StatusOccupied  BookingStatus = "OCCUPIED"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// TimeSlotName is the legacy coarse slot form: a whole service period on a
// given date rather than an exact seating time.
type TimeSlotName string

const (
	SlotMorning   TimeSlotName = "MORNING"
	SlotAfternoon TimeSlotName = "AFTERNOON"
	SlotEvening   TimeSlotName = "EVENING"
)

type Booking struct {
	ID              string        `json:"id"`
	TableNumber     string        `json:"tableNumber"`
	PeopleCount     int           `json:"peopleCount"`
	TimeSlot        string        `json:"timeSlot,omitempty"`        // RFC3339 timestamp form
	BookingDate     string        `json:"bookingDate,omitempty"`     // YYYY-MM-DD, legacy form
	BookingTimeSlot TimeSlotName  `json:"bookingTimeSlot,omitempty"` // legacy form
	Status          BookingStatus `json:"status"`
	CustomerName    string        `json:"customerName,omitempty"`
	CustomerEmail   string        `json:"customerEmail,omitempty"`
	CustomerPhone   string        `json:"customerPhone,omitempty"`
	SpecialRequests string        `json:"specialRequests,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// HasExactTime reports whether the booking uses the fine-grained timestamp
// form rather than the legacy date+slot form.
func (b *Booking) HasExactTime() bool {
	return b.TimeSlot != ""
}
