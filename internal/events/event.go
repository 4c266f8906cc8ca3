// Package events defines the notifications the console publishes over
// the message broker when staff change a reservation's status.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StatusChangedQueue is the durable queue status changes are published to.
const StatusChangedQueue = "reservation.status_changed"

// StatusChangedEvent is published after the backend confirms a status
// change made from the day board.  It carries enough context for an
// audit log or a notifier without another API call.
type StatusChangedEvent struct {
	ReservationID   int64  `json:"reservation_id"`
	ClientID        int64  `json:"client_id"`
	ClientName      string `json:"client_name"`
	From            string `json:"from"`
	To              string `json:"to"`
	GuestCount      int    `json:"guest_count"`
	ReservationDate string `json:"reservation_date"`
	ChangedAt       string `json:"changed_at"`
	Source          string `json:"source"`
}

// Publisher delivers status change events.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, ev StatusChangedEvent) error
}

// Nop discards events.  It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishStatusChanged(context.Context, StatusChangedEvent) error { return nil }

// FormatAuditLine renders one event as a single human-readable log line.
func FormatAuditLine(ev StatusChangedEvent) string {
	ts := ev.ChangedAt
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	name := strings.ReplaceAll(ev.ClientName, `"`, `'`)
	return fmt.Sprintf("[%s] Reservation status changed | reservation_id=%d | client_id=%d | client=\"%s\" | %s -> %s | guests=%d | date=%s | source=%s\n",
		ts, ev.ReservationID, ev.ClientID, name, ev.From, ev.To, ev.GuestCount, ev.ReservationDate, ev.Source)
}
