// Package export writes staff xlsx reports of the venue's bookings.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"coffeebeat/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// Exporter writes reports into a fixed directory.
type Exporter struct {
	dir string
}

func New(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// BookingsReport writes one row per booking with its effective status and
// returns the file path. Rows are ordered by table number, then creation.
func (e *Exporter) BookingsReport(bookings []*models.Booking, statuses map[string]models.BookingStatus, now time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Bookings as of %s", now.Format("2006-01-02 15:04")))
	_ = f.MergeCell(sheetName, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"Table", "Customer", "People", "Date", "Slot", "Status", "Requests", "Created"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheetName, "A2", "H2", headerStyle)

	sorted := append([]*models.Booking(nil), bookings...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TableNumber == sorted[j].TableNumber {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].TableNumber < sorted[j].TableNumber
	})

	for i, b := range sorted {
		row := i + 3
		status := b.Status
		if s, ok := statuses[b.ID]; ok {
			status = s
		}
		values := []any{
			b.TableNumber,
			b.CustomerName,
			b.PeopleCount,
			bookingDay(b),
			bookingSlot(b),
			string(status),
			b.SpecialRequests,
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 18)
	_ = f.SetColWidth(sheetName, "C", "F", 14)
	_ = f.SetColWidth(sheetName, "G", "H", 24)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s.xlsx", now.Format("2006-01-02_150405"))
	path := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}
	return path, nil
}

func bookingDay(b *models.Booking) string {
	if b.HasExactTime() {
		if t, err := time.Parse(time.RFC3339, b.TimeSlot); err == nil {
			return t.Format("2006-01-02")
		}
		return b.TimeSlot
	}
	return b.BookingDate
}

func bookingSlot(b *models.Booking) string {
	if b.HasExactTime() {
		if t, err := time.Parse(time.RFC3339, b.TimeSlot); err == nil {
			return t.Format("15:04")
		}
		return "?"
	}
	return string(b.BookingTimeSlot)
}
