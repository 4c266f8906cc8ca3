// Package export writes reservations to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/reserveease-console/internal/model"
	"github.com/iliyamo/reserveease-console/internal/stats"
)

const (
	SheetReservations = "Reservations"
	SheetClients      = "Clients"
)

var reservationHeader = []string{"ID", "Date", "Time", "Client", "Phone", "Email", "Guests", "Status", "Notes"}

var statusFill = map[model.Status]string{
	model.StatusPending:   "#FFF2CC",
	model.StatusCompleted: "#E2EFDA",
	model.StatusCancelled: "#F8CBAD",
}

// WriteReservations writes one row per reservation, in the order given,
// plus a per-client summary sheet.  Dates and times are rendered in loc.
func WriteReservations(w io.Writer, res []model.Reservation, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetReservations); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, SheetReservations, reservationHeader); err != nil {
		return err
	}

	fills := map[model.Status]int{}
	for st, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("create status style: %w", err)
		}
		fills[st] = id
	}

	for i, r := range res {
		row := i + 2
		t := r.ReservationDate.In(loc)
		values := []any{
			r.ID,
			t.Format("2006-01-02"),
			t.Format("15:04"),
			r.Client.Name,
			r.Client.PhoneNumber,
			r.Client.Email,
			r.GuestCount,
			string(r.Status),
			r.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetReservations, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		if style, ok := fills[r.Status]; ok {
			sc, _ := excelize.CoordinatesToCellName(8, row)
			if err := f.SetCellStyle(SheetReservations, sc, sc, style); err != nil {
				return fmt.Errorf("style row %d: %w", row, err)
			}
		}
	}
	_ = f.SetColWidth(SheetReservations, "D", "F", 24)
	_ = f.SetColWidth(SheetReservations, "I", "I", 40)

	if err := writeClients(f, res); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeClients(f *excelize.File, res []model.Reservation) error {
	if _, err := f.NewSheet(SheetClients); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeHeader(f, SheetClients, []string{"Client ID", "Client", "Reservations", "Guests"}); err != nil {
		return err
	}
	for i, c := range stats.PerClient(res) {
		values := []any{c.ClientID, c.Name, c.Reservations, c.Guests}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetClients, cell, &values); err != nil {
			return fmt.Errorf("write client row: %w", err)
		}
	}
	_ = f.SetColWidth(SheetClients, "B", "B", 24)
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}
