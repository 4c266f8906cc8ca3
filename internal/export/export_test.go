package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/reserveease-console/internal/model"
)

func TestWriteReservations(t *testing.T) {
	ana := model.Client{ID: 1, Name: "Ana", PhoneNumber: "555-1111", Email: "ana@example.com"}
	bo := model.Client{ID: 2, Name: "Bo", PhoneNumber: "555-2222"}
	res := []model.Reservation{
		{ID: 10, Client: ana, ReservationDate: time.Date(2025, 1, 1, 18, 30, 0, 0, time.UTC), GuestCount: 2, Status: model.StatusPending, Notes: "window"},
		{ID: 11, Client: bo, ReservationDate: time.Date(2025, 1, 2, 20, 0, 0, 0, time.UTC), GuestCount: 5, Status: model.StatusCancelled},
		{ID: 12, Client: bo, ReservationDate: time.Date(2025, 1, 3, 20, 0, 0, 0, time.UTC), GuestCount: 1, Status: model.StatusCompleted},
	}

	var buf bytes.Buffer
	if err := WriteReservations(&buf, res, time.FixedZone("UTC+1", 3600)); err != nil {
		t.Fatalf("WriteReservations: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetReservations)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][7] != "Status" {
		t.Fatalf("header = %v", rows[0])
	}
	first := rows[1]
	if first[0] != "10" || first[1] != "2025-01-01" || first[2] != "19:30" || first[3] != "Ana" || first[6] != "2" || first[7] != "pending" || first[8] != "window" {
		t.Fatalf("first row = %v", first)
	}

	clients, err := f.GetRows(SheetClients)
	if err != nil {
		t.Fatalf("GetRows clients: %v", err)
	}
	if len(clients) != 3 || clients[1][1] != "Bo" || clients[1][2] != "2" || clients[1][3] != "6" {
		t.Fatalf("clients sheet = %v", clients)
	}
}

func TestWriteReservationsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReservations(&buf, nil, time.UTC); err != nil {
		t.Fatalf("WriteReservations: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(SheetReservations)
	if len(rows) != 1 {
		t.Fatalf("expected only the header, got %v", rows)
	}
}
