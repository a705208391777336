package report

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestReservations(t *testing.T) {
	t.Parallel()
	end := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	rows := []ReservationRow{
		{
			Subscription: "SUB001", LineID: 3, Service: "rent-bike", Lot: "BIKE-01",
			StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   &end, NextConsumption: &next,
		},
		{
			Subscription: "SUB002", LineID: 7, Service: "rent-bike", Lot: "BIKE-02",
			StartDate: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	buf, err := Reservations(rows)
	if err != nil {
		t.Fatalf("Reservations error: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	checks := []struct {
		cell string
		want string
	}{
		{"A1", "subscription"},
		{"A2", "SUB001"},
		{"D2", "BIKE-01"},
		{"E2", "2024-01-01"},
		{"F2", "2024-03-01"},
		{"G2", "2024-02-01"},
		{"A3", "SUB002"},
		{"F3", ""}, // open-ended reservation
		{"G3", ""},
	}
	for _, c := range checks {
		got, err := f.GetCellValue(sheet, c.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", c.cell, err)
		}
		if got != c.want {
			t.Fatalf("cell %s = %q, want %q", c.cell, got, c.want)
		}
	}
}
