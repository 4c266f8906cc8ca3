package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode marks a response body that does not match the API schema.
// It is kept apart from transport failures so callers can tell a broken
// backend contract from a network problem.
var ErrDecode = errors.New("decode api payload")

// DecodeClients decodes and validates a JSON array of clients.
func DecodeClients(body []byte) ([]Client, error) {
	var out []Client
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: clients: %v", ErrDecode, err)
	}
	for i, c := range out {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: clients[%d] (id=%d): %v", ErrDecode, i, c.ID, err)
		}
	}
	if out == nil {
		out = []Client{}
	}
	return out, nil
}

// DecodeReservations decodes and validates a JSON array of reservations.
func DecodeReservations(body []byte) ([]Reservation, error) {
	var out []Reservation
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: reservations: %v", ErrDecode, err)
	}
	for i, r := range out {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: reservations[%d] (id=%d): %v", ErrDecode, i, r.ID, err)
		}
	}
	if out == nil {
		out = []Reservation{}
	}
	return out, nil
}

// DecodeClient decodes a single client object.
func DecodeClient(body []byte) (Client, error) {
	var c Client
	if err := json.Unmarshal(body, &c); err != nil {
		return Client{}, fmt.Errorf("%w: client: %v", ErrDecode, err)
	}
	if err := c.Validate(); err != nil {
		return Client{}, fmt.Errorf("%w: client: %v", ErrDecode, err)
	}
	return c, nil
}

// DecodeReservation decodes a single reservation object.
func DecodeReservation(body []byte) (Reservation, error) {
	var r Reservation
	if err := json.Unmarshal(body, &r); err != nil {
		return Reservation{}, fmt.Errorf("%w: reservation: %v", ErrDecode, err)
	}
	if err := r.Validate(); err != nil {
		return Reservation{}, fmt.Errorf("%w: reservation: %v", ErrDecode, err)
	}
	return r, nil
}
