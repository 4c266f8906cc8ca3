package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/reserveease-console/internal/model"
)

// Policy decides what the board does around the backend confirmation of
// a status move.
type Policy int

const (
	// PolicyRollback moves the card at once and moves it back if the
	// backend rejects the change.
	PolicyRollback Policy = iota
	// PolicyNoRollback moves the card at once and leaves it there even if
	// the backend rejects the change.  The board then shows a status the
	// backend never confirmed until the next data refresh.
	PolicyNoRollback
	// PolicyPessimistic moves the card only after the backend confirms.
	PolicyPessimistic
)

func (p Policy) String() string {
	switch p {
	case PolicyNoRollback:
		return "none"
	case PolicyPessimistic:
		return "pessimistic"
	}
	return "rollback"
}

// ParsePolicy reads a policy name.  The empty string selects PolicyRollback.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rollback", "optimistic":
		return PolicyRollback, nil
	case "none", "no-rollback", "norollback":
		return PolicyNoRollback, nil
	case "pessimistic":
		return PolicyPessimistic, nil
	}
	return PolicyRollback, fmt.Errorf("unknown board rollback policy %q", s)
}

// ErrReservationNotOnBoard is returned when a move names a reservation
// that is not on the selected day.
var ErrReservationNotOnBoard = errors.New("reservation is not on the board")

// MoveError reports a status move the backend did not confirm.
type MoveError struct {
	ID         int64
	From       model.Status
	To         model.Status
	RolledBack bool
	Err        error
}

func (e *MoveError) Error() string {
	state := "left unconfirmed"
	if e.RolledBack {
		state = "rolled back"
	}
	return fmt.Sprintf("move reservation %d %s -> %s %s: %v", e.ID, e.From, e.To, state, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }
