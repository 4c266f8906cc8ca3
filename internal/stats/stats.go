// Package stats aggregates reservations for the statistics view.  All
// functions are pure over the slice they are given.
package stats

import (
	"sort"
	"time"

	"github.com/iliyamo/reserveease-console/internal/model"
)

type Month struct {
	Month        time.Month `json:"month"`
	Reservations int        `json:"reservations"`
	Guests       int        `json:"guests"`
}

// Monthly returns reservation and guest counts for each month of year.
func Monthly(res []model.Reservation, year int, loc *time.Location) [12]Month {
	var out [12]Month
	for i := range out {
		out[i].Month = time.Month(i + 1)
	}
	for _, r := range res {
		t := r.ReservationDate.In(loc)
		if t.Year() != year {
			continue
		}
		m := &out[t.Month()-1]
		m.Reservations++
		m.Guests += r.GuestCount
	}
	return out
}

// PeakHours counts reservations per local hour of day, over reservations
// strictly between from and to.
func PeakHours(res []model.Reservation, from, to time.Time, loc *time.Location) [24]int {
	var out [24]int
	for _, r := range res {
		if !r.ReservationDate.After(from) || !r.ReservationDate.Before(to) {
			continue
		}
		out[r.ReservationDate.In(loc).Hour()]++
	}
	return out
}

// Yearly maps each year to its monthly reservation counts.
func Yearly(res []model.Reservation, loc *time.Location) map[int][12]int {
	out := map[int][12]int{}
	for _, r := range res {
		t := r.ReservationDate.In(loc)
		counts := out[t.Year()]
		counts[t.Month()-1]++
		out[t.Year()] = counts
	}
	return out
}

// Years lists the years that have reservations, ascending.
func Years(res []model.Reservation, loc *time.Location) []int {
	y := Yearly(res, loc)
	out := make([]int, 0, len(y))
	for year := range y {
		out = append(out, year)
	}
	sort.Ints(out)
	return out
}

type ClientCount struct {
	ClientID     int64  `json:"client_id"`
	Name         string `json:"name"`
	Reservations int    `json:"reservations"`
	Guests       int    `json:"guests"`
}

// PerClient counts reservations per client, busiest first.  Ties keep
// the order in which clients first appear.
func PerClient(res []model.Reservation) []ClientCount {
	idx := map[int64]int{}
	out := []ClientCount{}
	for _, r := range res {
		i, ok := idx[r.Client.ID]
		if !ok {
			i = len(out)
			idx[r.Client.ID] = i
			out = append(out, ClientCount{ClientID: r.Client.ID, Name: r.Client.Name})
		}
		out[i].Reservations++
		out[i].Guests += r.GuestCount
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Reservations > out[b].Reservations })
	return out
}
