package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/iliyamo/reserveease-console/internal/model"
)

var errDecode = model.ErrDecode

// Credentials is the body of POST /token/.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is the response of POST /token/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterInput is the body of POST /users/.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// ObtainToken exchanges staff credentials for an access/refresh pair.
func (c *Client) ObtainToken(ctx context.Context, cr Credentials) (TokenPair, error) {
	var tp TokenPair
	if err := c.do(ctx, "POST", "/token/", "/token/", cr, &tp); err != nil {
		return TokenPair{}, err
	}
	if strings.TrimSpace(tp.Access) == "" || strings.TrimSpace(tp.Refresh) == "" {
		return TokenPair{}, fmt.Errorf("%w: token response without access/refresh", errDecode)
	}
	return tp, nil
}

// RefreshToken exchanges a refresh token for a new access token.  Only a
// 200 answer counts as a successful refresh.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	in := map[string]string{"refresh": refresh}
	if err := c.exchange(ctx, "POST", "/token/refresh/", "/token/refresh/", http.StatusOK, in, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Access) == "" {
		return "", fmt.Errorf("%w: refresh response without access token", errDecode)
	}
	return out.Access, nil
}

// RegisterUser creates a new staff account.
func (c *Client) RegisterUser(ctx context.Context, in RegisterInput) error {
	return c.do(ctx, "POST", "/users/", "/users/", in, nil)
}

func (c *Client) ListClients(ctx context.Context) ([]model.Client, error) {
	var out []model.Client
	err := c.do(ctx, "GET", "/clients/", "/clients/", nil, func(b []byte) (err error) {
		out, err = model.DecodeClients(b)
		return err
	})
	return out, err
}

func (c *Client) CreateClient(ctx context.Context, in model.ClientInput) (model.Client, error) {
	var out model.Client
	err := c.do(ctx, "POST", "/clients/", "/clients/", in, func(b []byte) (err error) {
		out, err = model.DecodeClient(b)
		return err
	})
	return out, err
}

func (c *Client) UpdateClient(ctx context.Context, id int64, in model.ClientInput) (model.Client, error) {
	var out model.Client
	err := c.do(ctx, "PUT", "/clients/{id}/", fmt.Sprintf("/clients/%d/", id), in, func(b []byte) (err error) {
		out, err = model.DecodeClient(b)
		return err
	})
	return out, err
}

func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", "/clients/{id}/", fmt.Sprintf("/clients/%d/", id), nil, nil)
}

func (c *Client) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	var out []model.Reservation
	err := c.do(ctx, "GET", "/reservations/", "/reservations/", nil, func(b []byte) (err error) {
		out, err = model.DecodeReservations(b)
		return err
	})
	return out, err
}

func (c *Client) CreateReservation(ctx context.Context, in model.ReservationInput) (model.Reservation, error) {
	var out model.Reservation
	err := c.do(ctx, "POST", "/reservations/", "/reservations/", in, func(b []byte) (err error) {
		out, err = model.DecodeReservation(b)
		return err
	})
	return out, err
}

func (c *Client) UpdateReservation(ctx context.Context, id int64, in model.ReservationInput) (model.Reservation, error) {
	var out model.Reservation
	err := c.do(ctx, "PUT", "/reservations/{id}/", fmt.Sprintf("/reservations/%d/", id), in, func(b []byte) (err error) {
		out, err = model.DecodeReservation(b)
		return err
	})
	return out, err
}

// PatchReservationStatus sets only the status of a reservation.  The
// response body is not decoded: callers apply the status they sent.
func (c *Client) PatchReservationStatus(ctx context.Context, id int64, status model.Status) error {
	return c.do(ctx, "PATCH", "/reservations/{id}/", fmt.Sprintf("/reservations/%d/", id), model.StatusPatch{Status: status}, nil)
}

func (c *Client) DeleteReservation(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", "/reservations/{id}/", fmt.Sprintf("/reservations/%d/", id), nil, nil)
}
