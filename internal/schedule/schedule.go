// Package schedule backs the reservation table and calendar views:
// reservation writes, table search and calendar events.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/reserveease-console/internal/events"
	"github.com/iliyamo/reserveease-console/internal/model"
)

// API is the backend surface for reservation writes.
type API interface {
	CreateReservation(ctx context.Context, in model.ReservationInput) (model.Reservation, error)
	UpdateReservation(ctx context.Context, id int64, in model.ReservationInput) (model.Reservation, error)
	PatchReservationStatus(ctx context.Context, id int64, status model.Status) error
	DeleteReservation(ctx context.Context, id int64) error
}

// Store is the part of the shared store the schedule depends on.
type Store interface {
	Reservations() ([]model.Reservation, error)
	Reservation(id int64) (model.Reservation, bool)
	RefreshReservations(ctx context.Context) error
	BeginReservationMutation(id int64) uint64
	ApplyReservationStatus(id int64, seq uint64, status model.Status) bool
}

type Service struct {
	api   API
	store Store
	pub   events.Publisher
	log   *slog.Logger
	loc   *time.Location
	now   func() time.Time
}

func NewService(api API, st Store, pub events.Publisher, loc *time.Location, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{api: api, store: st, pub: pub, loc: loc, log: log.With("component", "schedule"), now: time.Now}
}

// Location is the zone wall-clock entries are interpreted in.
func (s *Service) Location() *time.Location { return s.loc }

// Create books a new reservation and re-fetches the reservation list.
func (s *Service) Create(ctx context.Context, in model.ReservationInput) (model.Reservation, error) {
	if err := in.Validate(); err != nil {
		return model.Reservation{}, err
	}
	r, err := s.api.CreateReservation(ctx, in)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	s.log.Info("reservation created", "reservation_id", r.ID, "client_id", in.ClientID)
	s.refresh(ctx)
	return r, nil
}

// Update replaces reservation id.
func (s *Service) Update(ctx context.Context, id int64, in model.ReservationInput) (model.Reservation, error) {
	if err := in.Validate(); err != nil {
		return model.Reservation{}, err
	}
	r, err := s.api.UpdateReservation(ctx, id, in)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("update reservation %d: %w", id, err)
	}
	s.log.Info("reservation updated", "reservation_id", id)
	s.refresh(ctx)
	return r, nil
}

// Delete removes reservation id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteReservation(ctx, id); err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	s.log.Info("reservation deleted", "reservation_id", id)
	s.refresh(ctx)
	return nil
}

// ChangeStatus sets the status of reservation id from the table view.
// Nothing changes locally until the backend confirms; a confirmation
// older than one already applied is ignored.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status model.Status) error {
	if !status.Valid() {
		return model.ErrInvalidStatus
	}
	prev, known := s.store.Reservation(id)
	seq := s.store.BeginReservationMutation(id)
	if err := s.api.PatchReservationStatus(ctx, id, status); err != nil {
		return fmt.Errorf("change status of reservation %d: %w", id, err)
	}
	applied := s.store.ApplyReservationStatus(id, seq, status)
	s.log.Info("reservation status changed", "reservation_id", id, "to", status, "applied", applied)
	if applied && known && prev.Status != status {
		ev := events.StatusChangedEvent{
			ReservationID:   id,
			ClientID:        prev.Client.ID,
			ClientName:      prev.Client.Name,
			From:            string(prev.Status),
			To:              string(status),
			GuestCount:      prev.GuestCount,
			ReservationDate: prev.ReservationDate.UTC().Format(time.RFC3339),
			ChangedAt:       s.now().UTC().Format(time.RFC3339),
			Source:          "table",
		}
		if err := s.pub.PublishStatusChanged(ctx, ev); err != nil {
			s.log.Warn("publish status change failed", "reservation_id", id, "err", err)
		}
	}
	s.refresh(ctx)
	return nil
}

func (s *Service) refresh(ctx context.Context) {
	if err := s.store.RefreshReservations(ctx); err != nil {
		s.log.Warn("refresh reservations after write failed", "err", err)
	}
}

// Search filters the reservation table.  The term matches the client
// name case-insensitively, the reservation date as text, or the status.
func (s *Service) Search(term string) ([]model.Reservation, error) {
	res, err := s.store.Reservations()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return res, nil
	}
	out := []model.Reservation{}
	for _, r := range res {
		if strings.Contains(strings.ToLower(r.Client.Name), term) ||
			strings.Contains(r.ReservationDate.In(s.loc).Format(time.RFC3339), term) ||
			strings.Contains(string(r.Status), term) {
			out = append(out, r)
		}
	}
	return out, nil
}
