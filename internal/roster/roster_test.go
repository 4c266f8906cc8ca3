package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/reserveease-console/internal/model"
)

var existing = []model.Client{
	{ID: 1, Name: "Ana Ruiz", PhoneNumber: "555-1111", Email: "ana@example.com"},
	{ID: 2, Name: "Bo Chen", PhoneNumber: "555-2222"},
}

func TestCheckDuplicates(t *testing.T) {
	tt := []struct {
		name string
		in   model.ClientInput
		self int64
		want error
	}{
		{"duplicate phone", model.ClientInput{Name: "X", PhoneNumber: "555-1111"}, 0, ErrDuplicatePhone},
		{"duplicate phone with spaces", model.ClientInput{Name: "X", PhoneNumber: " 555-2222 "}, 0, ErrDuplicatePhone},
		{"duplicate email any case", model.ClientInput{Name: "X", PhoneNumber: "555-9999", Email: "ANA@example.com"}, 0, ErrDuplicateEmail},
		{"empty email never collides", model.ClientInput{Name: "X", PhoneNumber: "555-9999"}, 0, nil},
		{"editing self keeps own phone", model.ClientInput{Name: "Ana", PhoneNumber: "555-1111", Email: "ana@example.com"}, 1, nil},
		{"editing into another client's phone", model.ClientInput{Name: "Ana", PhoneNumber: "555-2222"}, 1, ErrDuplicatePhone},
		{"unique", model.ClientInput{Name: "New", PhoneNumber: "555-3333", Email: "new@example.com"}, 0, nil},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if err := CheckDuplicates(existing, tc.in, tc.self); !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}
}

type fakeAPI struct {
	created []model.ClientInput
	updated map[int64]model.ClientInput
	deleted []int64
	err     error
}

func (f *fakeAPI) CreateClient(_ context.Context, in model.ClientInput) (model.Client, error) {
	if f.err != nil {
		return model.Client{}, f.err
	}
	f.created = append(f.created, in)
	return model.Client{ID: 99, Name: in.Name, PhoneNumber: in.PhoneNumber, Email: in.Email}, nil
}

func (f *fakeAPI) UpdateClient(_ context.Context, id int64, in model.ClientInput) (model.Client, error) {
	if f.err != nil {
		return model.Client{}, f.err
	}
	if f.updated == nil {
		f.updated = map[int64]model.ClientInput{}
	}
	f.updated[id] = in
	return model.Client{ID: id, Name: in.Name, PhoneNumber: in.PhoneNumber, Email: in.Email}, nil
}

func (f *fakeAPI) DeleteClient(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStore struct {
	clients   []model.Client
	res       []model.Reservation
	refreshes int
}

func (f *fakeStore) Clients() ([]model.Client, error)           { return f.clients, nil }
func (f *fakeStore) Reservations() ([]model.Reservation, error) { return f.res, nil }
func (f *fakeStore) RefreshClients(context.Context) error {
	f.refreshes++
	return nil
}

func TestCreateRejectsDuplicateBeforeNetwork(t *testing.T) {
	api := &fakeAPI{}
	st := &fakeStore{clients: existing}
	svc := NewService(api, st, nil)

	_, err := svc.Create(context.Background(), model.ClientInput{Name: "Dup", PhoneNumber: "555-1111"})
	if !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("expected ErrDuplicatePhone, got %v", err)
	}
	if len(api.created) != 0 || st.refreshes != 0 {
		t.Fatalf("no request or refresh expected: created=%d refreshes=%d", len(api.created), st.refreshes)
	}
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(&fakeAPI{}, &fakeStore{}, nil)
	if _, err := svc.Create(context.Background(), model.ClientInput{PhoneNumber: "1"}); !errors.Is(err, model.ErrClientName) {
		t.Fatalf("expected ErrClientName, got %v", err)
	}
}

func TestWritesRefreshClients(t *testing.T) {
	api := &fakeAPI{}
	st := &fakeStore{clients: existing}
	svc := NewService(api, st, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, model.ClientInput{Name: "  Cy  ", PhoneNumber: "555-3333"})
	if err != nil || c.Name != "Cy" {
		t.Fatalf("Create = %+v, %v", c, err)
	}
	if _, err := svc.Update(ctx, 1, model.ClientInput{Name: "Ana R", PhoneNumber: "555-1111"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if st.refreshes != 3 {
		t.Fatalf("expected 3 refreshes, got %d", st.refreshes)
	}
	if api.updated[1].Name != "Ana R" || len(api.deleted) != 1 {
		t.Fatalf("api state = %+v", api)
	}
}

func TestWriteFailureSkipsRefresh(t *testing.T) {
	boom := errors.New("500")
	st := &fakeStore{}
	svc := NewService(&fakeAPI{err: boom}, st, nil)
	if err := svc.Delete(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if st.refreshes != 0 {
		t.Fatalf("refresh after failure")
	}
}

func TestRowsAndSearch(t *testing.T) {
	st := &fakeStore{
		clients: existing,
		res: []model.Reservation{
			{ID: 1, Client: existing[0]},
			{ID: 2, Client: existing[0]},
			{ID: 3, Client: existing[1]},
		},
	}
	svc := NewService(&fakeAPI{}, st, nil)

	tt := []struct {
		term string
		want []int64
	}{
		{"", []int64{1, 2}},
		{"ana", []int64{1}},
		{"2222", []int64{2}},
		{"EXAMPLE.COM", []int64{1}},
		{"zzz", nil},
	}
	for _, tc := range tt {
		t.Run(tc.term, func(t *testing.T) {
			rows, err := svc.Rows(tc.term)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != len(tc.want) {
				t.Fatalf("rows = %+v", rows)
			}
			for i, r := range rows {
				if r.ID != tc.want[i] {
					t.Fatalf("rows = %+v", rows)
				}
			}
		})
	}

	rows, _ := svc.Rows("")
	if rows[0].Reservations != 2 || rows[1].Reservations != 1 {
		t.Fatalf("counts = %+v", rows)
	}
	mine, _ := svc.ReservationsOf(1)
	if len(mine) != 2 {
		t.Fatalf("ReservationsOf = %+v", mine)
	}
}
