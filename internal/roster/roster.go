// Package roster manages the client list: duplicate detection, create,
// update and delete, and the searchable roster with reservation counts.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/reserveease-console/internal/model"
)

var (
	ErrDuplicatePhone = errors.New("a client with this phone number already exists")
	ErrDuplicateEmail = errors.New("a client with this email already exists")
)

// CheckDuplicates reports whether in collides with an existing client on
// phone number or non-empty email.  The client with id selfID is skipped
// so an edit can keep its own values; pass 0 when creating.  This is a
// local check only and the backend may still reject the write.
func CheckDuplicates(existing []model.Client, in model.ClientInput, selfID int64) error {
	in = in.Normalize()
	for _, c := range existing {
		if selfID != 0 && c.ID == selfID {
			continue
		}
		if in.PhoneNumber != "" && strings.TrimSpace(c.PhoneNumber) == in.PhoneNumber {
			return ErrDuplicatePhone
		}
		if in.Email != "" && strings.EqualFold(strings.TrimSpace(c.Email), in.Email) {
			return ErrDuplicateEmail
		}
	}
	return nil
}

// API is the backend surface the roster writes through.
type API interface {
	CreateClient(ctx context.Context, in model.ClientInput) (model.Client, error)
	UpdateClient(ctx context.Context, id int64, in model.ClientInput) (model.Client, error)
	DeleteClient(ctx context.Context, id int64) error
}

// Store is the part of the shared store the roster reads and refreshes.
type Store interface {
	Clients() ([]model.Client, error)
	Reservations() ([]model.Reservation, error)
	RefreshClients(ctx context.Context) error
}

// Service performs client writes and re-syncs the store afterwards.
type Service struct {
	api   API
	store Store
	log   *slog.Logger
}

func NewService(api API, st Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, store: st, log: log.With("component", "roster")}
}

// Create validates in, checks it against the cached roster and creates
// the client.  The client list is re-fetched after a successful write.
func (s *Service) Create(ctx context.Context, in model.ClientInput) (model.Client, error) {
	in, err := s.prepare(in, 0)
	if err != nil {
		return model.Client{}, err
	}
	c, err := s.api.CreateClient(ctx, in)
	if err != nil {
		return model.Client{}, fmt.Errorf("create client: %w", err)
	}
	s.log.Info("client created", "client_id", c.ID)
	s.refresh(ctx)
	return c, nil
}

// Update replaces client id with in.
func (s *Service) Update(ctx context.Context, id int64, in model.ClientInput) (model.Client, error) {
	in, err := s.prepare(in, id)
	if err != nil {
		return model.Client{}, err
	}
	c, err := s.api.UpdateClient(ctx, id, in)
	if err != nil {
		return model.Client{}, fmt.Errorf("update client %d: %w", id, err)
	}
	s.log.Info("client updated", "client_id", id)
	s.refresh(ctx)
	return c, nil
}

// Delete removes client id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteClient(ctx, id); err != nil {
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	s.log.Info("client deleted", "client_id", id)
	s.refresh(ctx)
	return nil
}

func (s *Service) prepare(in model.ClientInput, selfID int64) (model.ClientInput, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return in, err
	}
	existing, err := s.store.Clients()
	if err != nil {
		return in, err
	}
	return in, CheckDuplicates(existing, in, selfID)
}

// refresh re-syncs the client list.  The write already succeeded, so a
// failed refresh is logged and not returned.
func (s *Service) refresh(ctx context.Context) {
	if err := s.store.RefreshClients(ctx); err != nil {
		s.log.Warn("refresh clients after write failed", "err", err)
	}
}

// Row is one roster line.
type Row struct {
	model.Client
	Reservations int `json:"reservations"`
}

// Rows returns the roster filtered by term.  An empty term matches every
// client.  Name and email match case-insensitively; phone matches as a
// substring.
func (s *Service) Rows(term string) ([]Row, error) {
	clients, err := s.store.Clients()
	if err != nil {
		return nil, err
	}
	res, err := s.store.Reservations()
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int, len(clients))
	for _, r := range res {
		counts[r.Client.ID]++
	}
	rows := make([]Row, 0, len(clients))
	for _, c := range clients {
		if !Matches(c, term) {
			continue
		}
		rows = append(rows, Row{Client: c, Reservations: counts[c.ID]})
	}
	return rows, nil
}

// Matches reports whether c matches the roster search term.
func Matches(c model.Client, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.Name), lower) ||
		strings.Contains(c.PhoneNumber, term) ||
		strings.Contains(strings.ToLower(c.Email), lower)
}

// ReservationsOf lists the reservations of one client.
func (s *Service) ReservationsOf(clientID int64) ([]model.Reservation, error) {
	res, err := s.store.Reservations()
	if err != nil {
		return nil, err
	}
	out := []model.Reservation{}
	for _, r := range res {
		if r.Client.ID == clientID {
			out = append(out, r)
		}
	}
	return out, nil
}
