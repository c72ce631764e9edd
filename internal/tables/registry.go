// Package tables holds the static catalog of physical tables. The backend
// does not expose a tables resource; the floor plan is fixed.
package tables

import "coffeebeat/internal/models"

const (
	LocationMainHall    = "Main Hall"
	LocationOutdoor     = "Outdoor"
	LocationPrivateRoom = "Private Room"
)

var catalog = []models.Table{
	{ID: 1, Number: "T1", Capacity: 4, Location: LocationMainHall},
	{ID: 2, Number: "T2", Capacity: 4, Location: LocationMainHall},
	{ID: 3, Number: "T3", Capacity: 2, Location: LocationMainHall},
	{ID: 4, Number: "T4", Capacity: 6, Location: LocationMainHall},
	{ID: 5, Number: "T5", Capacity: 4, Location: LocationOutdoor},
	{ID: 6, Number: "T6", Capacity: 2, Location: LocationOutdoor},
	{ID: 7, Number: "T7", Capacity: 8, Location: LocationPrivateRoom},
	{ID: 8, Number: "T8", Capacity: 4, Location: LocationPrivateRoom},
}

// All returns the full catalog in floor order. The result is a copy.
func All() []models.Table {
	out := make([]models.Table, len(catalog))
	copy(out, catalog)
	return out
}

// ByNumber looks a table up by its display number ("T3").
func ByNumber(number string) (models.Table, bool) {
	for _, t := range catalog {
		if t.Number == number {
			return t, true
		}
	}
	return models.Table{}, false
}

// Locations returns the distinct locations in floor order.
func Locations() []string {
	seen := make(map[string]bool, 3)
	var out []string
	for _, t := range catalog {
		if !seen[t.Location] {
			seen[t.Location] = true
			out = append(out, t.Location)
		}
	}
	return out
}

// ByLocation returns the tables in a location, preserving floor order.
func ByLocation(location string) []models.Table {
	var out []models.Table
	for _, t := range catalog {
		if t.Location == location {
			out = append(out, t)
		}
	}
	return out
}
