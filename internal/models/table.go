package models

// TableStatus is the derived occupancy state shown on the floor plan.
type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableReserved  TableStatus = "RESERVED"
	TableOccupied  TableStatus = "OCCUPIED"
)

type Table struct {
	ID       int64  `json:"id" yaml:"id"`
	Number   string `json:"number" yaml:"number"`
	Capacity int    `json:"capacity" yaml:"capacity"`
	Location string `json:"location" yaml:"location"`
}

// Occupancy pairs a table's derived status with the booking that produced it.
// Booking is nil when the table is available.
type Occupancy struct {
	Table   Table       `json:"table"`
	Status  TableStatus `json:"status"`
	Booking *Booking    `json:"booking,omitempty"`
}
