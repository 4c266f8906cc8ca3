package board

import (
	"sort"
	"time"

	"github.com/iliyamo/reserveease-console/internal/model"
)

// DateLayout is the calendar-date key used for days and reserved-day sets.
const DateLayout = "2006-01-02"

// Buckets partitions one day's reservations by status.
type Buckets struct {
	Pending   []model.Reservation `json:"pending"`
	Completed []model.Reservation `json:"completed"`
	Cancelled []model.Reservation `json:"cancelled"`
}

// Totals are the day aggregates shown above the board.
type Totals struct {
	Reservations int `json:"reservations"`
	Guests       int `json:"guests"`
}

// DayBounds returns [start, end) of the calendar day containing t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Project filters rs to the calendar day of day and partitions the result
// by status.  Pending and completed are ordered by reservation date; the
// cancelled bucket keeps collection order.
func Project(rs []model.Reservation, day time.Time, loc *time.Location) Buckets {
	start, end := DayBounds(day, loc)
	b := Buckets{
		Pending:   []model.Reservation{},
		Completed: []model.Reservation{},
		Cancelled: []model.Reservation{},
	}
	for _, r := range rs {
		if r.ReservationDate.Before(start) || !r.ReservationDate.Before(end) {
			continue
		}
		if slot := b.slot(r.Status); slot != nil {
			*slot = append(*slot, r)
		}
	}
	sortByDate(b.Pending)
	sortByDate(b.Completed)
	return b
}

func sortByDate(rs []model.Reservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].ReservationDate.Before(rs[j].ReservationDate)
	})
}

func (b *Buckets) slot(s model.Status) *[]model.Reservation {
	switch s {
	case model.StatusPending:
		return &b.Pending
	case model.StatusCompleted:
		return &b.Completed
	case model.StatusCancelled:
		return &b.Cancelled
	}
	return nil
}

// Get returns the bucket for s.
func (b Buckets) Get(s model.Status) []model.Reservation {
	if slot := b.slot(s); slot != nil {
		return *slot
	}
	return nil
}

// Find locates a reservation in any bucket.
func (b Buckets) Find(id int64) (model.Reservation, bool) {
	for _, s := range model.Statuses {
		for _, r := range b.Get(s) {
			if r.ID == id {
				return r, true
			}
		}
	}
	return model.Reservation{}, false
}

// Totals sums reservations and guests over all three buckets.
func (b Buckets) Totals() Totals {
	var t Totals
	for _, s := range model.Statuses {
		for _, r := range b.Get(s) {
			t.Reservations++
			t.Guests += r.GuestCount
		}
	}
	return t
}

// move takes the reservation out of whichever bucket holds it and
// appends it to the bucket for to, with its status set to to.  It
// reports whether the reservation was on the board.
func (b *Buckets) move(id int64, to model.Status) bool {
	var (
		found model.Reservation
		ok    bool
	)
	for _, s := range model.Statuses {
		slot := b.slot(s)
		for i, r := range *slot {
			if r.ID == id {
				found, ok = r, true
				*slot = append((*slot)[:i:i], (*slot)[i+1:]...)
				break
			}
		}
		if ok {
			break
		}
	}
	dst := b.slot(to)
	if !ok || dst == nil {
		return false
	}
	found.Status = to
	*dst = append(*dst, found)
	if to != model.StatusCancelled {
		sortByDate(*dst)
	}
	return true
}

func (b Buckets) clone() Buckets {
	return Buckets{
		Pending:   append([]model.Reservation{}, b.Pending...),
		Completed: append([]model.Reservation{}, b.Completed...),
		Cancelled: append([]model.Reservation{}, b.Cancelled...),
	}
}

// ReservedDays returns the set of calendar dates (in loc) that have at
// least one reservation, regardless of status.
func ReservedDays(rs []model.Reservation, loc *time.Location) map[string]struct{} {
	out := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		out[r.ReservationDate.In(loc).Format(DateLayout)] = struct{}{}
	}
	return out
}
