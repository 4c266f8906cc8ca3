package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a reservation as the console knows it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in board column order.
var Statuses = []Status{StatusPending, StatusCompleted, StatusCancelled}

// ErrInvalidStatus is returned when a value is not one of the three known statuses.
var ErrInvalidStatus = errors.New("invalid reservation status")

// ParseStatus normalizes s and checks it against the known statuses.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid reports whether s is pending, completed or cancelled.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// UnmarshalJSON rejects statuses the console cannot place on the board.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
