package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

// ReservationRow is one asset reservation in the schedule export.
type ReservationRow struct {
	Subscription    string
	LineID          int64
	Service         string
	Lot             string
	StartDate       time.Time
	EndDate         *time.Time // nil = open-ended
	NextConsumption *time.Time // nil = none / exhausted
}

// Reservations renders the reservation schedule to an xlsx workbook.
func Reservations(rows []ReservationRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"subscription",
		"line_id",
		"service",
		"lot",
		"start_date",
		"end_date",
		"next_consumption_date",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("report: header: %w", err)
	}

	row := 2
	for _, r := range rows {
		end := ""
		if r.EndDate != nil {
			end = r.EndDate.Format(dateLayout)
		}
		next := ""
		if r.NextConsumption != nil {
			next = r.NextConsumption.Format(dateLayout)
		}
		excelRow := []interface{}{
			r.Subscription,
			r.LineID,
			r.Service,
			r.Lot,
			r.StartDate.Format(dateLayout),
			end,
			next,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("report: cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("report: row %d: %w", row, err)
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("report: write: %w", err)
	}
	return buf, nil
}
