package store

import (
	"context"
	"fmt"

	"github.com/iliyamo/reserveease-console/internal/metrics"
	"github.com/iliyamo/reserveease-console/internal/model"
)

// SetReservations replaces the reservation collection wholesale.
func (s *Store) SetReservations(rs []model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = append([]model.Reservation(nil), rs...)
	s.revision++
	s.generation++
	s.updateGauges()
}

// SetClients replaces the client collection wholesale.
func (s *Store) SetClients(cs []model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append([]model.Client(nil), cs...)
	s.revision++
	s.generation++
	s.updateGauges()
}

// UpsertReservation replaces the reservation with the same id in place,
// or appends it when it is not cached yet.
func (s *Store) UpsertReservation(r model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	for i := range s.reservations {
		if s.reservations[i].ID == r.ID {
			s.reservations[i] = r
			return
		}
	}
	s.reservations = append(s.reservations, r)
	s.updateGauges()
}

// RemoveReservation drops a reservation.  It reports whether it was cached.
func (s *Store) RemoveReservation(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reservations {
		if s.reservations[i].ID == id {
			s.reservations = append(s.reservations[:i:i], s.reservations[i+1:]...)
			s.revision++
			s.updateGauges()
			return true
		}
	}
	return false
}

// UpsertClient replaces the client with the same id in place, or appends it.
func (s *Store) UpsertClient(c model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	for i := range s.clients {
		if s.clients[i].ID == c.ID {
			s.clients[i] = c
			return
		}
	}
	s.clients = append(s.clients, c)
	s.updateGauges()
}

// RemoveClient drops a client.  Reservations referencing it are left to
// the backend's cascade rules and disappear on the next refresh.
func (s *Store) RemoveClient(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if s.clients[i].ID == id {
			s.clients = append(s.clients[:i:i], s.clients[i+1:]...)
			s.revision++
			s.updateGauges()
			return true
		}
	}
	return false
}

// RefreshReservations re-fetches the reservation collection.  On failure
// the cached collection is left untouched.
func (s *Store) RefreshReservations(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "store.RefreshReservations")
	defer span.End()
	rs, err := s.api.ListReservations(ctx)
	if err != nil {
		metrics.StoreLoads.WithLabelValues("reservations", "error").Inc()
		span.RecordError(err)
		return fmt.Errorf("refresh reservations: %w", err)
	}
	metrics.StoreLoads.WithLabelValues("reservations", "ok").Inc()
	s.SetReservations(rs)
	return nil
}

// RefreshClients re-fetches the client collection.
func (s *Store) RefreshClients(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "store.RefreshClients")
	defer span.End()
	cs, err := s.api.ListClients(ctx)
	if err != nil {
		metrics.StoreLoads.WithLabelValues("clients", "error").Inc()
		span.RecordError(err)
		return fmt.Errorf("refresh clients: %w", err)
	}
	metrics.StoreLoads.WithLabelValues("clients", "ok").Inc()
	s.SetClients(cs)
	return nil
}

// BeginReservationMutation issues the next sequence number for a
// mutation of reservation id.  Sequence numbers are strictly increasing
// per reservation.
func (s *Store) BeginReservationMutation(id int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[id]++
	return s.issued[id]
}

// IsLatest reports whether seq is the newest mutation issued for id.
func (s *Store) IsLatest(id int64, seq uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issued[id] == seq
}

// ApplyReservationStatus records a confirmed status change.  A response
// for a mutation older than one already applied is dropped, so a slow
// reply cannot overwrite a newer confirmed status.  It reports whether
// the status was applied.
func (s *Store) ApplyReservationStatus(id int64, seq uint64, status model.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied[id] {
		return false
	}
	for i := range s.reservations {
		if s.reservations[i].ID == id {
			s.applied[id] = seq
			s.reservations[i].Status = status
			s.revision++
			return true
		}
	}
	return false
}
