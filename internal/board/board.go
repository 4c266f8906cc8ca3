// Package board is the day board controller: it projects the shared
// reservation collection onto one calendar day, grouped by status, and
// moves reservations between status groups.
package board

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/reserveease-console/internal/events"
	"github.com/iliyamo/reserveease-console/internal/metrics"
	"github.com/iliyamo/reserveease-console/internal/model"
)

// Store is the part of the shared data store the board depends on.
type Store interface {
	Reservations() ([]model.Reservation, error)
	Revision() uint64
	Generation() uint64
	BeginReservationMutation(id int64) uint64
	IsLatest(id int64, seq uint64) bool
	ApplyReservationStatus(id int64, seq uint64, status model.Status) bool
}

// Patcher sends a status change to the backend.
type Patcher interface {
	PatchReservationStatus(ctx context.Context, id int64, status model.Status) error
}

// Options configure a Board.
type Options struct {
	Policy    Policy
	Location  *time.Location
	Publisher events.Publisher
	Logger    *slog.Logger
	Now       func() time.Time
}

// View is what the board renders for the selected day.
type View struct {
	Day          string   `json:"day"`
	Buckets      Buckets  `json:"buckets"`
	Totals       Totals   `json:"totals"`
	ReservedDays []string `json:"reserved_days"`
	Policy       string   `json:"policy"`
}

// override is a local status that the store does not hold yet.
type override struct {
	status   model.Status
	seq      uint64
	inflight bool
}

// Board holds the selected day and the projected buckets.  Day
// navigation never touches the network.
type Board struct {
	store  Store
	api    Patcher
	pub    events.Publisher
	log    *slog.Logger
	policy Policy
	loc    *time.Location
	now    func() time.Time

	mu        sync.Mutex
	day       time.Time
	buckets   Buckets
	projRev   uint64
	projGen   uint64
	projDay   time.Time
	projected bool
	overrides map[int64]override

	reservedRev uint64
	reserved    map[string]struct{}
	reservedOK  bool
}

// New builds a Board showing today.
func New(st Store, api Patcher, opts Options) *Board {
	if st == nil || api == nil {
		panic("nil dependency passed to board.New")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	b := &Board{
		store:     st,
		api:       api,
		pub:       opts.Publisher,
		log:       opts.Logger.With("component", "board"),
		policy:    opts.Policy,
		loc:       opts.Location,
		now:       opts.Now,
		overrides: map[int64]override{},
	}
	b.day, _ = DayBounds(b.now(), b.loc)
	return b
}

// Policy returns the configured move policy.
func (b *Board) Policy() Policy { return b.policy }

// Day returns the start of the selected day.
func (b *Board) Day() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.day
}

// SetDay selects the calendar day containing d.
func (b *Board) SetDay(d time.Time) {
	b.mu.Lock()
	b.day, _ = DayBounds(d, b.loc)
	b.mu.Unlock()
}

func (b *Board) Previous() { b.shift(-1) }
func (b *Board) Next()     { b.shift(1) }
func (b *Board) Today()    { b.SetDay(b.now()) }

// Reset forgets local moves and selects today, as after New.  Used
// when the staff session ends.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.day, _ = DayBounds(b.now(), b.loc)
	b.overrides = map[int64]override{}
	b.buckets = Buckets{}
	b.projected = false
	b.reservedOK = false
	b.reserved = nil
}

func (b *Board) shift(days int) {
	b.mu.Lock()
	b.day = b.day.AddDate(0, 0, days)
	b.mu.Unlock()
}

// refresh re-projects the buckets when the store or the selected day
// changed since the last projection.  Must be called with b.mu held.
func (b *Board) refresh() error {
	rev, gen := b.store.Revision(), b.store.Generation()
	if b.projected && rev == b.projRev && b.day.Equal(b.projDay) {
		return nil
	}
	rs, err := b.store.Reservations()
	if err != nil {
		return err
	}
	if gen != b.projGen {
		// refreshed data supersedes unconfirmed local moves
		for id, ov := range b.overrides {
			if !ov.inflight {
				delete(b.overrides, id)
			}
		}
	}
	b.buckets = Project(rs, b.day, b.loc)
	ids := make([]int64, 0, len(b.overrides))
	for id := range b.overrides {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return b.overrides[ids[i]].seq < b.overrides[ids[j]].seq })
	for _, id := range ids {
		b.buckets.move(id, b.overrides[id].status)
	}
	b.projRev, b.projGen, b.projDay, b.projected = rev, gen, b.day, true

	if !b.reservedOK || b.reservedRev != rev {
		b.reserved = ReservedDays(rs, b.loc)
		b.reservedRev, b.reservedOK = rev, true
	}
	return nil
}

// Buckets returns a copy of the current buckets.
func (b *Board) Buckets() (Buckets, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(); err != nil {
		return Buckets{}, err
	}
	return b.buckets.clone(), nil
}

// View returns buckets, totals and reserved days for the selected day.
func (b *Board) View() (View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(); err != nil {
		return View{}, err
	}
	days := make([]string, 0, len(b.reserved))
	for d := range b.reserved {
		days = append(days, d)
	}
	sort.Strings(days)
	return View{
		Day:          b.day.Format(DateLayout),
		Buckets:      b.buckets.clone(),
		Totals:       b.buckets.Totals(),
		ReservedDays: days,
		Policy:       b.policy.String(),
	}, nil
}

// ReservedDays returns the set of dates holding at least one reservation.
// It is recomputed only when the store's data changes.
func (b *Board) ReservedDays() (map[string]struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(b.reserved))
	for d := range b.reserved {
		out[d] = struct{}{}
	}
	return out, nil
}

// Move changes the status of a reservation on the board and asks the
// backend to confirm it.  What the board shows while the request runs
// and after a rejection depends on the board's Policy.  A rejected move
// returns a *MoveError.
func (b *Board) Move(ctx context.Context, id int64, to model.Status) error {
	if !to.Valid() {
		return model.ErrInvalidStatus
	}

	b.mu.Lock()
	if err := b.refresh(); err != nil {
		b.mu.Unlock()
		return err
	}
	cur, ok := b.buckets.Find(id)
	if !ok {
		b.mu.Unlock()
		return ErrReservationNotOnBoard
	}
	from := cur.Status
	if from == to {
		b.mu.Unlock()
		metrics.BoardMoves.WithLabelValues("noop").Inc()
		return nil
	}
	seq := b.store.BeginReservationMutation(id)
	if b.policy != PolicyPessimistic {
		b.overrides[id] = override{status: to, seq: seq, inflight: true}
		b.buckets.move(id, to)
	}
	b.mu.Unlock()

	err := b.api.PatchReservationStatus(ctx, id, to)
	if err == nil {
		return b.confirm(ctx, cur, from, to, seq)
	}
	return b.reject(id, from, to, seq, err)
}

func (b *Board) confirm(ctx context.Context, cur model.Reservation, from, to model.Status, seq uint64) error {
	applied := b.store.ApplyReservationStatus(cur.ID, seq, to)

	b.mu.Lock()
	if ov, ok := b.overrides[cur.ID]; ok && ov.seq == seq {
		delete(b.overrides, cur.ID)
	}
	b.mu.Unlock()

	if !applied {
		metrics.BoardMoves.WithLabelValues("superseded").Inc()
		b.log.Info("status confirmation superseded by a newer move", "reservation_id", cur.ID, "status", to)
		return nil
	}
	metrics.BoardMoves.WithLabelValues("applied").Inc()
	b.log.Info("reservation status changed", "reservation_id", cur.ID, "from", from, "to", to)

	ev := events.StatusChangedEvent{
		ReservationID:   cur.ID,
		ClientID:        cur.Client.ID,
		ClientName:      cur.Client.Name,
		From:            string(from),
		To:              string(to),
		GuestCount:      cur.GuestCount,
		ReservationDate: cur.ReservationDate.UTC().Format(time.RFC3339),
		ChangedAt:       b.now().UTC().Format(time.RFC3339),
		Source:          "board",
	}
	if err := b.pub.PublishStatusChanged(ctx, ev); err != nil {
		b.log.Warn("publish status change failed", "reservation_id", cur.ID, "err", err)
	}
	return nil
}

func (b *Board) reject(id int64, from, to model.Status, seq uint64, cause error) error {
	merr := &MoveError{ID: id, From: from, To: to, Err: cause}

	b.mu.Lock()
	defer b.mu.Unlock()
	ov, mine := b.overrides[id]
	mine = mine && ov.seq == seq
	switch b.policy {
	case PolicyRollback:
		if mine && b.store.IsLatest(id, seq) {
			delete(b.overrides, id)
			b.projected = false
			merr.RolledBack = true
			metrics.BoardMoves.WithLabelValues("rolled_back").Inc()
		} else {
			metrics.BoardMoves.WithLabelValues("superseded").Inc()
		}
	case PolicyNoRollback:
		if mine {
			ov.inflight = false
			b.overrides[id] = ov
		}
		metrics.BoardMoves.WithLabelValues("unconfirmed").Inc()
	default:
		metrics.BoardMoves.WithLabelValues("rejected").Inc()
	}
	b.log.Error("reservation status change rejected", "reservation_id", id, "from", from, "to", to,
		"policy", b.policy.String(), "rolled_back", merr.RolledBack, "err", cause)
	return merr
}
