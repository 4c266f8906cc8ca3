package schedule

import (
	"fmt"
	"time"

	"github.com/iliyamo/reserveease-console/internal/model"
)

// Event is one calendar entry.
type Event struct {
	ID       int64        `json:"id"`
	ClientID int64        `json:"client_id"`
	Title    string       `json:"title"`
	Start    time.Time    `json:"start"`
	End      time.Time    `json:"end"`
	Status   model.Status `json:"status"`
	Notes    string       `json:"notes,omitempty"`
}

// EventFor renders r as a calendar entry of fixed length.
func EventFor(r model.Reservation, loc *time.Location) Event {
	return Event{
		ID:       r.ID,
		ClientID: r.Client.ID,
		Title:    fmt.Sprintf("%s - %d guests", r.Client.Name, r.GuestCount),
		Start:    r.ReservationDate.In(loc),
		End:      r.EndsAt().In(loc),
		Status:   r.Status,
		Notes:    r.Notes,
	}
}

// Events returns calendar entries overlapping [from, to).  A zero bound
// is open.
func (s *Service) Events(from, to time.Time) ([]Event, error) {
	res, err := s.store.Reservations()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(res))
	for _, r := range res {
		if !to.IsZero() && !r.ReservationDate.Before(to) {
			continue
		}
		if !from.IsZero() && !r.EndsAt().After(from) {
			continue
		}
		out = append(out, EventFor(r, s.loc))
	}
	return out, nil
}
