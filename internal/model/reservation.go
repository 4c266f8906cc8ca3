package model

import (
	"errors"
	"fmt"
	"time"
)

// CalendarDuration is the display length of a reservation on the
// calendar view.  It is never sent to the backend.
const CalendarDuration = 2 * time.Hour

// Reservation mirrors the read shape of GET /reservations/.  The owning
// client is embedded by value; writes reference it by id through
// ReservationInput.
//
// Fields:
//
//	ID              – backend identifier.
//	Client          – the client the reservation belongs to.
//	ReservationDate – absolute instant of the booking.
//	GuestCount      – number of guests, always positive.
//	Status          – pending, completed or cancelled.
//	Notes           – free text, may be empty.
type Reservation struct {
	ID              int64     `json:"id"`
	Client          Client    `json:"client"`
	ReservationDate time.Time `json:"reservation_date"`
	GuestCount      int       `json:"guest_count"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// ReservationInput is the write payload for POST /reservations/ and
// PUT /reservations/{id}/.
type ReservationInput struct {
	ClientID        int64     `json:"client_id"`
	ReservationDate time.Time `json:"reservation_date"`
	GuestCount      int       `json:"guest_count"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes"`
}

// StatusPatch is the body of PATCH /reservations/{id}/.
type StatusPatch struct {
	Status Status `json:"status"`
}

var (
	ErrGuestCount      = errors.New("guest count must be positive")
	ErrReservationDate = errors.New("reservation date is required")
	ErrReservationClnt = errors.New("reservation client is required")
)

// Validate checks the invariants of a decoded reservation.
func (r Reservation) Validate() error {
	if r.GuestCount <= 0 {
		return ErrGuestCount
	}
	if r.ReservationDate.IsZero() {
		return ErrReservationDate
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(r.Status))
	}
	return nil
}

// Validate checks the input before it is sent to the backend.  An empty
// status defaults to pending, matching the backend default.
func (in *ReservationInput) Validate() error {
	if in.ClientID <= 0 {
		return ErrReservationClnt
	}
	if in.GuestCount <= 0 {
		return ErrGuestCount
	}
	if in.ReservationDate.IsZero() {
		return ErrReservationDate
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(in.Status))
	}
	return nil
}

// InputFrom builds the write payload that reproduces r.
func InputFrom(r Reservation) ReservationInput {
	return ReservationInput{
		ClientID:        r.Client.ID,
		ReservationDate: r.ReservationDate,
		GuestCount:      r.GuestCount,
		Status:          r.Status,
		Notes:           r.Notes,
	}
}

// EndsAt is the calendar end time of the reservation.
func (r Reservation) EndsAt() time.Time { return r.ReservationDate.Add(CalendarDuration) }

// ParseLocalDateTime converts a wall-clock entry such as "2025-01-01T19:30"
// in loc into an absolute instant.  Seconds are accepted but optional.
func ParseLocalDateTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrReservationDate, s)
}
