package model

import (
	"errors"
	"strings"
	"time"
)

// Client is a restaurant guest as returned by GET /clients/.  Phone
// numbers are intended to be unique per restaurant and so are emails
// when they are not empty; the backend owns that constraint.
type Client struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// ClientInput is the write payload for POST /clients/ and PUT /clients/{id}/.
type ClientInput struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

var (
	ErrClientName  = errors.New("client name is required")
	ErrClientPhone = errors.New("client phone number is required")
)

// Validate checks the fields every client record must carry.
func (c Client) Validate() error {
	return ClientInput{Name: c.Name, PhoneNumber: c.PhoneNumber, Email: c.Email}.Validate()
}

// Validate checks the input before it is sent to the backend.
func (in ClientInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrClientName
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return ErrClientPhone
	}
	return nil
}

// Normalize trims surrounding whitespace from every field.
func (in ClientInput) Normalize() ClientInput {
	return ClientInput{
		Name:        strings.TrimSpace(in.Name),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Email:       strings.TrimSpace(in.Email),
	}
}
