package domain

import (
	"context"

	"coffeebeat/internal/models"
)

// OverrideRepository shares staff "clear table" marks between concurrently
// open views of this client. It is not authoritative: the durable record
// lives in the local store, and CANCELLED from the server always wins.
type OverrideRepository interface {
	MarkCleared(ctx context.Context, bookingID string) error
	IsCleared(ctx context.Context, bookingID string) (bool, error)
	ClearedIDs(ctx context.Context) ([]string, error)
}

// BookingAPI is the booking slice of the REST backend.
type BookingAPI interface {
	MyBookings(ctx context.Context) ([]*models.Booking, error)
	AllBookings(ctx context.Context) ([]*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	UpdateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
}

// OrderAPI is the order slice of the REST backend.
type OrderAPI interface {
	SubmitOrder(ctx context.Context, order *models.Order) (*models.Order, error)
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// LocalState is the durable client-local persistence used by the services.
type LocalState interface {
	Cart(ctx context.Context) ([]models.CartItem, error)
	SaveCart(ctx context.Context, items []models.CartItem) error
	ClearedBookings(ctx context.Context) ([]string, error)
	AppendClearedBooking(ctx context.Context, bookingID string) error
}
