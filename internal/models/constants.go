package models

import "time"

const (
	// ServiceDuration is how long a timestamp-form booking holds its table.
	ServiceDuration = 2 * time.Hour

	// LeadWindow is how long before the seating time a booking shows as
	// RESERVED in the customer view.
	LeadWindow = 2 * time.Hour

	// DeliveryFee is the flat fee added to delivery orders.
	DeliveryFee = 2.00

	// TaxRate is applied to the cart subtotal.
	TaxRate = 0.08
)

// Coarse slot boundaries in venue-local hours.
const (
	MorningStartHour   = 8
	MorningEndHour     = 12
	AfternoonStartHour = 12
	AfternoonEndHour   = 17
	EveningStartHour   = 17
	EveningEndHour     = 22
)

// Local state store keys. Each is an independently serialized JSON entry.
const (
	KeyCart            = "cart"
	KeyFavorites       = "favorites"
	KeyUserAddresses   = "userAddresses"
	KeyClearedBookings = "clearedBookings"
	KeyTheme           = "theme"
)

const (
	// DefaultPollInterval is how often the backend is re-fetched.
	DefaultPollInterval = 60 * time.Second

	// DefaultOverrideTTL is how long a cleared-booking mark is held in Redis
	// before the server state is assumed authoritative.
	DefaultOverrideTTL = 24 * time.Hour
)
