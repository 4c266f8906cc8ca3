package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/reserveease-console/internal/events"
	"github.com/iliyamo/reserveease-console/internal/model"
	"github.com/iliyamo/reserveease-console/internal/store"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func res(id int64, when time.Time, guests int, st model.Status) model.Reservation {
	return model.Reservation{
		ID:              id,
		Client:          model.Client{ID: 1, Name: "Ana", PhoneNumber: "555-1111"},
		ReservationDate: when,
		GuestCount:      guests,
		Status:          st,
	}
}

type listAPI struct {
	mu  sync.Mutex
	res []model.Reservation
}

func (l *listAPI) ListReservations(context.Context) ([]model.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Reservation(nil), l.res...), nil
}

func (l *listAPI) ListClients(context.Context) ([]model.Client, error) { return nil, nil }

// patcher answers PatchReservationStatus from a queue of results.  When
// gate is set each call blocks until a result is sent on it.
type patcher struct {
	mu    sync.Mutex
	err   error
	gate  chan error
	calls int
}

func (p *patcher) PatchReservationStatus(ctx context.Context, id int64, s model.Status) error {
	p.mu.Lock()
	p.calls++
	gate, err := p.gate, p.err
	p.mu.Unlock()
	if gate != nil {
		return <-gate
	}
	return err
}

type recorder struct {
	mu  sync.Mutex
	evs []events.StatusChangedEvent
}

func (r *recorder) PublishStatusChanged(_ context.Context, ev events.StatusChangedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return nil
}

func newBoard(t *testing.T, rs []model.Reservation, p *patcher, policy Policy) (*Board, *store.Store, *recorder) {
	t.Helper()
	st := store.New(&listAPI{res: rs}, nil)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := &recorder{}
	b := New(st, p, Options{
		Policy:    policy,
		Location:  time.UTC,
		Publisher: rec,
		Now:       func() time.Time { return at(12, 0) },
	})
	return b, st, rec
}

func ids(rs []model.Reservation) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProject(t *testing.T) {
	rs := []model.Reservation{
		res(1, at(20, 0), 2, model.StatusPending),
		res(2, at(18, 0), 4, model.StatusPending),
		res(3, at(19, 0), 3, model.StatusCompleted),
		res(4, at(21, 0), 5, model.StatusCancelled),
		res(5, at(9, 0), 1, model.StatusCancelled),
		res(6, day.AddDate(0, 0, 1), 8, model.StatusPending),  // next midnight
		res(7, day.Add(-time.Second), 8, model.StatusPending), // previous day
		res(8, day, 6, model.StatusCompleted),                 // this midnight
		res(9, at(23, 59).Add(59*time.Second), 1, model.StatusPending),
	}
	b := Project(rs, at(15, 0), time.UTC)

	tt := []struct {
		name string
		got  []model.Reservation
		want []int64
	}{
		{"pending by date", b.Pending, []int64{2, 1, 9}},
		{"completed by date", b.Completed, []int64{8, 3}},
		{"cancelled in collection order", b.Cancelled, []int64{4, 5}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(tc.got); !equalIDs(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}

	tot := b.Totals()
	if tot.Reservations != 7 || tot.Guests != 2+4+3+5+1+6+1 {
		t.Fatalf("Totals = %+v", tot)
	}
}

func TestProjectUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on the 15th is 21:00 on the 14th in loc.
	r := res(1, time.Date(2025, 3, 15, 2, 0, 0, 0, time.UTC), 2, model.StatusPending)
	b := Project([]model.Reservation{r}, time.Date(2025, 3, 14, 12, 0, 0, 0, loc), loc)
	if len(b.Pending) != 1 {
		t.Fatalf("expected reservation on the local day, got %+v", b)
	}
}

func TestTotalsSingleReservation(t *testing.T) {
	b := Project([]model.Reservation{res(1, at(19, 0), 4, model.StatusPending)}, day, time.UTC)
	if got := b.Totals(); got != (Totals{Reservations: 1, Guests: 4}) {
		t.Fatalf("Totals = %+v", got)
	}
}

func TestNavigation(t *testing.T) {
	rs := []model.Reservation{
		res(1, at(19, 0), 2, model.StatusPending),
		res(2, at(19, 0).AddDate(0, 0, 1), 3, model.StatusPending),
	}
	b, _, _ := newBoard(t, rs, &patcher{}, PolicyRollback)

	v, err := b.View()
	if err != nil || v.Day != "2025-03-14" || len(v.Buckets.Pending) != 1 || v.Buckets.Pending[0].ID != 1 {
		t.Fatalf("initial view = %+v, %v", v, err)
	}
	b.Next()
	v, _ = b.View()
	if v.Day != "2025-03-15" || len(v.Buckets.Pending) != 1 || v.Buckets.Pending[0].ID != 2 {
		t.Fatalf("next view = %+v", v)
	}
	b.Previous()
	b.Previous()
	v, _ = b.View()
	if v.Day != "2025-03-13" || v.Totals.Reservations != 0 {
		t.Fatalf("previous view = %+v", v)
	}
	b.Today()
	if v, _ = b.View(); v.Day != "2025-03-14" {
		t.Fatalf("today view = %+v", v)
	}
	if !equalStrings(v.ReservedDays, []string{"2025-03-14", "2025-03-15"}) {
		t.Fatalf("ReservedDays = %v", v.ReservedDays)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReservedDaysFollowStore(t *testing.T) {
	b, st, _ := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusCancelled)}, &patcher{}, PolicyRollback)
	days, err := b.ReservedDays()
	if err != nil {
		t.Fatalf("ReservedDays: %v", err)
	}
	if _, ok := days["2025-03-14"]; !ok || len(days) != 1 {
		t.Fatalf("ReservedDays = %v", days)
	}
	st.UpsertReservation(res(2, at(19, 0).AddDate(0, 1, 0), 2, model.StatusPending))
	days, _ = b.ReservedDays()
	if _, ok := days["2025-04-14"]; !ok {
		t.Fatalf("ReservedDays not recomputed after store change: %v", days)
	}
}

func TestReservedDaysIndependentOfSelectedDay(t *testing.T) {
	jan := func(d int) time.Time { return time.Date(2025, 1, d, 19, 0, 0, 0, time.UTC) }
	b, _, _ := newBoard(t, []model.Reservation{
		res(1, jan(1), 2, model.StatusPending),
		res(2, jan(3), 4, model.StatusCancelled),
	}, &patcher{}, PolicyRollback)

	tt := []struct {
		name string
		nav  func()
	}{
		{"today", b.Today},
		{"first reserved day", func() { b.SetDay(jan(1)) }},
		{"day between", func() { b.SetDay(jan(2)) }},
		{"next", b.Next},
		{"previous", b.Previous},
		{"far future", func() { b.SetDay(jan(1).AddDate(1, 0, 0)) }},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			tc.nav()
			days, err := b.ReservedDays()
			if err != nil {
				t.Fatalf("ReservedDays: %v", err)
			}
			_, first := days["2025-01-01"]
			_, third := days["2025-01-03"]
			if len(days) != 2 || !first || !third {
				t.Fatalf("ReservedDays on %s = %v, want exactly 2025-01-01 and 2025-01-03",
					b.Day().Format(DateLayout), days)
			}
			v, err := b.View()
			if err != nil {
				t.Fatalf("View: %v", err)
			}
			if len(v.ReservedDays) != 2 || v.ReservedDays[0] != "2025-01-01" || v.ReservedDays[1] != "2025-01-03" {
				t.Fatalf("View.ReservedDays = %v", v.ReservedDays)
			}
		})
	}
}

func TestMoveSuccess(t *testing.T) {
	for _, policy := range []Policy{PolicyRollback, PolicyNoRollback, PolicyPessimistic} {
		t.Run(policy.String(), func(t *testing.T) {
			b, st, rec := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, &patcher{}, policy)
			if err := b.Move(context.Background(), 1, model.StatusCompleted); err != nil {
				t.Fatalf("Move: %v", err)
			}
			bk, _ := b.Buckets()
			if len(bk.Pending) != 0 || len(bk.Completed) != 1 || bk.Completed[0].Status != model.StatusCompleted {
				t.Fatalf("buckets after move = %+v", bk)
			}
			if r, _ := st.Reservation(1); r.Status != model.StatusCompleted {
				t.Fatalf("store status = %s", r.Status)
			}
			if len(rec.evs) != 1 || rec.evs[0].From != "pending" || rec.evs[0].To != "completed" {
				t.Fatalf("events = %+v", rec.evs)
			}
		})
	}
}

func TestMoveSameBucketIsNoop(t *testing.T) {
	p := &patcher{}
	b, _, _ := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, p, PolicyRollback)
	if err := b.Move(context.Background(), 1, model.StatusPending); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if p.calls != 0 {
		t.Fatalf("expected no backend call, got %d", p.calls)
	}
}

func TestMoveRejectsUnknown(t *testing.T) {
	b, _, _ := newBoard(t, []model.Reservation{res(1, at(19, 0).AddDate(0, 0, 2), 2, model.StatusPending)}, &patcher{}, PolicyRollback)
	if err := b.Move(context.Background(), 1, model.StatusCompleted); !errors.Is(err, ErrReservationNotOnBoard) {
		t.Fatalf("expected ErrReservationNotOnBoard, got %v", err)
	}
	if err := b.Move(context.Background(), 1, model.Status("seated")); !errors.Is(err, model.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestMoveFailure(t *testing.T) {
	boom := errors.New("backend down")
	tt := []struct {
		policy     Policy
		rolledBack bool
		// bucket the card shows in after the failure
		want model.Status
	}{
		{PolicyRollback, true, model.StatusPending},
		{PolicyNoRollback, false, model.StatusCancelled},
		{PolicyPessimistic, false, model.StatusPending},
	}
	for _, tc := range tt {
		t.Run(tc.policy.String(), func(t *testing.T) {
			b, st, rec := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, &patcher{err: boom}, tc.policy)
			err := b.Move(context.Background(), 1, model.StatusCancelled)
			var merr *MoveError
			if !errors.As(err, &merr) || !errors.Is(err, boom) {
				t.Fatalf("expected MoveError wrapping cause, got %v", err)
			}
			if merr.RolledBack != tc.rolledBack || merr.From != model.StatusPending || merr.To != model.StatusCancelled {
				t.Fatalf("MoveError = %+v", merr)
			}
			bk, _ := b.Buckets()
			if got := bk.Get(tc.want); len(got) != 1 || got[0].ID != 1 || got[0].Status != tc.want {
				t.Fatalf("buckets after failure = %+v", bk)
			}
			if r, _ := st.Reservation(1); r.Status != model.StatusPending {
				t.Fatalf("store must keep the server status, got %s", r.Status)
			}
			if len(rec.evs) != 0 {
				t.Fatalf("no event expected on failure, got %+v", rec.evs)
			}
		})
	}
}

func TestNoRollbackClearsOnRefresh(t *testing.T) {
	b, st, _ := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, &patcher{err: errors.New("x")}, PolicyNoRollback)
	_ = b.Move(context.Background(), 1, model.StatusCompleted)
	if bk, _ := b.Buckets(); len(bk.Completed) != 1 {
		t.Fatalf("unconfirmed move must stay visible: %+v", bk)
	}
	if err := st.RefreshReservations(context.Background()); err != nil {
		t.Fatalf("RefreshReservations: %v", err)
	}
	if bk, _ := b.Buckets(); len(bk.Pending) != 1 || len(bk.Completed) != 0 {
		t.Fatalf("refresh must restore server status: %+v", bk)
	}
}

func TestNoRollbackSurvivesOtherMoves(t *testing.T) {
	p := &patcher{err: errors.New("rejected")}
	b, st, _ := newBoard(t, []model.Reservation{
		res(1, at(19, 0), 2, model.StatusPending),
		res(2, at(20, 0), 4, model.StatusPending),
	}, p, PolicyNoRollback)

	if err := b.Move(context.Background(), 1, model.StatusCompleted); err == nil {
		t.Fatalf("expected a rejected move")
	}
	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()
	if err := b.Move(context.Background(), 2, model.StatusCancelled); err != nil {
		t.Fatalf("Move: %v", err)
	}
	st.UpsertReservation(res(3, at(21, 0), 2, model.StatusPending))

	bk, _ := b.Buckets()
	if got := bk.Completed; len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unconfirmed move of card 1 lost after unrelated changes: %+v", bk)
	}
	if got := bk.Cancelled; len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("confirmed move of card 2 missing: %+v", bk)
	}
}

func TestReset(t *testing.T) {
	b, st, _ := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, &patcher{err: errors.New("x")}, PolicyNoRollback)
	_ = b.Move(context.Background(), 1, model.StatusCompleted)
	b.Next()
	b.Next()

	b.Reset()
	if !b.Day().Equal(day) {
		t.Fatalf("Reset must select today, got %s", b.Day())
	}
	st.UpsertReservation(res(2, at(20, 0), 2, model.StatusPending))
	bk, _ := b.Buckets()
	if len(bk.Pending) != 2 || len(bk.Completed) != 0 {
		t.Fatalf("local moves must not survive Reset: %+v", bk)
	}
}

func TestOptimisticMoveVisibleWhileInFlight(t *testing.T) {
	tt := []struct {
		policy Policy
		want   model.Status
	}{
		{PolicyRollback, model.StatusCompleted},
		{PolicyPessimistic, model.StatusPending},
	}
	for _, tc := range tt {
		t.Run(tc.policy.String(), func(t *testing.T) {
			p := &patcher{gate: make(chan error)}
			b, _, _ := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, p, tc.policy)
			done := make(chan error, 1)
			go func() { done <- b.Move(context.Background(), 1, model.StatusCompleted) }()

			waitCalls(t, p, 1)
			bk, _ := b.Buckets()
			if got := bk.Get(tc.want); len(got) != 1 {
				t.Fatalf("in-flight buckets = %+v", bk)
			}
			p.gate <- nil
			if err := <-done; err != nil {
				t.Fatalf("Move: %v", err)
			}
			if bk, _ = b.Buckets(); len(bk.Completed) != 1 {
				t.Fatalf("confirmed buckets = %+v", bk)
			}
		})
	}
}

func TestStaleFailureDoesNotRollBackNewerMove(t *testing.T) {
	p := &patcher{gate: make(chan error)}
	b, st, _ := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, p, PolicyRollback)

	first := make(chan error, 1)
	go func() { first <- b.Move(context.Background(), 1, model.StatusCompleted) }()
	waitCalls(t, p, 1)

	second := make(chan error, 1)
	go func() { second <- b.Move(context.Background(), 1, model.StatusCancelled) }()
	waitCalls(t, p, 2)

	// Both requests block on the same gate; the first value sent goes to
	// whichever goroutine receives first, so send success to both.
	p.gate <- nil
	p.gate <- nil
	<-first
	<-second

	r, _ := st.Reservation(1)
	bk, _ := b.Buckets()
	if r.Status != bk.Get(r.Status)[0].Status {
		t.Fatalf("board and store disagree: store=%s buckets=%+v", r.Status, bk)
	}
}

func TestOutOfOrderResponses(t *testing.T) {
	st := store.New(&listAPI{res: []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}}, nil)
	if err := st.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	older := st.BeginReservationMutation(1)
	newer := st.BeginReservationMutation(1)

	if !st.ApplyReservationStatus(1, newer, model.StatusCancelled) {
		t.Fatalf("newer response must apply")
	}
	if st.ApplyReservationStatus(1, older, model.StatusCompleted) {
		t.Fatalf("older response must be dropped")
	}
	b := New(st, &patcher{}, Options{Location: time.UTC, Now: func() time.Time { return at(8, 0) }})
	bk, _ := b.Buckets()
	if len(bk.Cancelled) != 1 {
		t.Fatalf("board must show the newest confirmed status: %+v", bk)
	}
}

func TestRollbackSkippedWhenSuperseded(t *testing.T) {
	p := &patcher{gate: make(chan error, 1)}
	b, st, _ := newBoard(t, []model.Reservation{res(1, at(19, 0), 2, model.StatusPending)}, p, PolicyRollback)

	done := make(chan error, 1)
	go func() { done <- b.Move(context.Background(), 1, model.StatusCompleted) }()
	waitCalls(t, p, 1)
	// another view starts a newer mutation of the same reservation
	st.BeginReservationMutation(1)
	p.gate <- errors.New("rejected")

	var merr *MoveError
	if err := <-done; !errors.As(err, &merr) || merr.RolledBack {
		t.Fatalf("expected unrolled MoveError, got %v", err)
	}
}

func waitCalls(t *testing.T, p *patcher, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		c := p.calls
		p.mu.Unlock()
		if c >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d backend calls", n)
}

func TestParsePolicy(t *testing.T) {
	tt := []struct {
		in   string
		want Policy
		err  bool
	}{
		{"", PolicyRollback, false},
		{"rollback", PolicyRollback, false},
		{"NONE", PolicyNoRollback, false},
		{"pessimistic", PolicyPessimistic, false},
		{"maybe", PolicyRollback, true},
	}
	for _, tc := range tt {
		got, err := ParsePolicy(tc.in)
		if (err != nil) != tc.err || got != tc.want {
			t.Errorf("ParsePolicy(%q) = %v, %v", tc.in, got, err)
		}
	}
}
