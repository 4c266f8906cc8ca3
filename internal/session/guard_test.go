package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/reserveease-console/internal/apiclient"
	"github.com/iliyamo/reserveease-console/internal/session/sessiontest"
	"github.com/iliyamo/reserveease-console/internal/tokenstore"
)

type fakeAPI struct {
	refreshCalls atomic.Int32
	refresh      func(refresh string) (string, error)
	obtain       func(cr apiclient.Credentials) (apiclient.TokenPair, error)
	register     func(in apiclient.RegisterInput) error
}

func (f *fakeAPI) RefreshToken(_ context.Context, refresh string) (string, error) {
	f.refreshCalls.Add(1)
	if f.refresh == nil {
		return "", errors.New("refresh not configured")
	}
	return f.refresh(refresh)
}

func (f *fakeAPI) ObtainToken(_ context.Context, cr apiclient.Credentials) (apiclient.TokenPair, error) {
	return f.obtain(cr)
}

func (f *fakeAPI) RegisterUser(_ context.Context, in apiclient.RegisterInput) error {
	return f.register(in)
}

func newStore(t *testing.T, access, refresh string) tokenstore.Store {
	t.Helper()
	s := tokenstore.NewMemory()
	ctx := context.Background()
	if access != "" {
		_ = s.Set(ctx, tokenstore.KeyAccess, access)
	}
	if refresh != "" {
		_ = s.Set(ctx, tokenstore.KeyRefresh, refresh)
	}
	return s
}

func TestGuardCheck(t *testing.T) {
	fresh := sessiontest.AccessToken(t, 1, time.Now().Add(time.Hour))
	expired := sessiontest.AccessToken(t, 1, time.Now().Add(-time.Minute))
	renewed := sessiontest.AccessToken(t, 1, time.Now().Add(2*time.Hour))

	tt := []struct {
		name       string
		access     string
		refresh    string
		refreshFn  func(string) (string, error)
		want       State
		wantCalls  int32
		wantStored string
	}{
		{name: "no credential", want: StateUnauthorized},
		{name: "fresh token", access: fresh, want: StateAuthorized, wantStored: fresh},
		{
			name: "expired token refreshed", access: expired, refresh: "r1",
			refreshFn: func(r string) (string, error) {
				if r != "r1" {
					return "", errors.New("wrong refresh token")
				}
				return renewed, nil
			},
			want: StateAuthorized, wantCalls: 1, wantStored: renewed,
		},
		{
			name: "expired token refresh rejected", access: expired, refresh: "r1",
			refreshFn: func(string) (string, error) {
				return "", &apiclient.HTTPError{StatusCode: 401}
			},
			want: StateUnauthorized, wantCalls: 1, wantStored: expired,
		},
		{
			name: "expired token refresh network failure", access: expired, refresh: "r1",
			refreshFn: func(string) (string, error) { return "", apiclient.ErrNetwork },
			want:      StateUnauthorized, wantCalls: 1, wantStored: expired,
		},
		{name: "expired token without refresh", access: expired, want: StateUnauthorized, wantStored: expired},
		{name: "malformed token", access: "not-a-jwt", refresh: "r1", want: StateUnauthorized, wantStored: "not-a-jwt"},
		{
			name: "token without exp is refreshed", access: sessiontest.TokenWithoutExpiry(t), refresh: "r1",
			refreshFn: func(string) (string, error) { return renewed, nil },
			want:      StateAuthorized, wantCalls: 1, wantStored: renewed,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t, tc.access, tc.refresh)
			api := &fakeAPI{refresh: tc.refreshFn}
			g := NewGuard(store, api, nil)
			if g.State() != StateUnknown {
				t.Fatalf("new guard should start unknown")
			}
			if got := g.Check(context.Background()); got != tc.want {
				t.Fatalf("Check = %v, want %v", got, tc.want)
			}
			if g.State() != tc.want {
				t.Fatalf("State = %v after check", g.State())
			}
			if n := api.refreshCalls.Load(); n != tc.wantCalls {
				t.Fatalf("refresh calls = %d, want %d", n, tc.wantCalls)
			}
			stored, _ := tokenstore.Lookup(context.Background(), store, tokenstore.KeyAccess)
			if stored != tc.wantStored {
				t.Fatalf("stored access = %q, want %q", stored, tc.wantStored)
			}
		})
	}
}

func TestGuardConcurrentChecksShareOneRefresh(t *testing.T) {
	expired := sessiontest.AccessToken(t, 1, time.Now().Add(-time.Minute))
	renewed := sessiontest.AccessToken(t, 1, time.Now().Add(time.Hour))
	release := make(chan struct{})
	api := &fakeAPI{refresh: func(string) (string, error) {
		<-release
		return renewed, nil
	}}
	g := NewGuard(newStore(t, expired, "r"), api, nil)

	const n = 8
	results := make(chan State, n)
	var started sync.WaitGroup
	started.Add(1)
	go func() {
		started.Done()
		results <- g.Check(context.Background())
	}()
	started.Wait()
	// wait for the first check to reach the refresh call
	deadline := time.Now().Add(2 * time.Second)
	for api.refreshCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if g.State() != StateUnknown {
		t.Fatalf("state must be unknown while the refresh is pending, got %v", g.State())
	}
	for i := 1; i < n; i++ {
		go func() { results <- g.Check(context.Background()) }()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	for i := 0; i < n; i++ {
		if s := <-results; s != StateAuthorized {
			t.Fatalf("check %d = %v", i, s)
		}
	}
	if c := api.refreshCalls.Load(); c != 1 {
		t.Fatalf("expected exactly one refresh, got %d", c)
	}
}

func TestLoginClearsPreviousSession(t *testing.T) {
	store := newStore(t, "old-access", "old-refresh")
	api := &fakeAPI{obtain: func(cr apiclient.Credentials) (apiclient.TokenPair, error) {
		if cr.Password != "secret" {
			return apiclient.TokenPair{}, &apiclient.HTTPError{StatusCode: 401}
		}
		return apiclient.TokenPair{Access: "new-access", Refresh: "new-refresh"}, nil
	}}
	g := NewGuard(store, api, nil)
	ctx := context.Background()

	if err := g.Login(ctx, "staff@example.com", "wrong"); !errors.Is(err, apiclient.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if v, _ := tokenstore.Lookup(ctx, store, tokenstore.KeyRefresh); v != "" {
		t.Fatalf("failed login must leave no session, refresh=%q", v)
	}
	if err := g.Login(ctx, " staff@example.com ", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if v, _ := tokenstore.Lookup(ctx, store, tokenstore.KeyAccess); v != "new-access" {
		t.Fatalf("access = %q", v)
	}
	if g.State() != StateAuthorized {
		t.Fatalf("state = %v", g.State())
	}
	if err := g.Login(ctx, "", "x"); !errors.Is(err, ErrCredentials) {
		t.Fatalf("expected ErrCredentials, got %v", err)
	}
}

func TestRegisterAndLogout(t *testing.T) {
	store := newStore(t, "a", "r")
	var got apiclient.RegisterInput
	api := &fakeAPI{register: func(in apiclient.RegisterInput) error {
		got = in
		return nil
	}}
	g := NewGuard(store, api, nil)
	ctx := context.Background()

	err := g.Register(ctx, apiclient.RegisterInput{Email: "new@example.com", Password: "pw", Name: "Luigi's", PhoneNumber: "555"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.Email != "new@example.com" || got.Name != "Luigi's" {
		t.Fatalf("unexpected register payload %+v", got)
	}
	if v, _ := tokenstore.Lookup(ctx, store, tokenstore.KeyAccess); v != "" {
		t.Fatalf("register must clear stored session")
	}

	_ = store.Set(ctx, tokenstore.KeyAccess, "a")
	if err := g.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if v, _ := tokenstore.Lookup(ctx, store, tokenstore.KeyAccess); v != "" {
		t.Fatalf("logout must clear stored session")
	}
	if g.State() != StateUnauthorized {
		t.Fatalf("state = %v", g.State())
	}
}

func TestGuardRefreshRequiresStatus200(t *testing.T) {
	expired := sessiontest.AccessToken(t, 1, time.Now().Add(-time.Minute))
	renewed := sessiontest.AccessToken(t, 1, time.Now().Add(time.Hour))

	tt := []struct {
		code int
		want State
	}{
		{http.StatusOK, StateAuthorized},
		{http.StatusCreated, StateUnauthorized},
		{http.StatusAccepted, StateUnauthorized},
		{http.StatusUnauthorized, StateUnauthorized},
	}
	for _, tc := range tt {
		t.Run(strconv.Itoa(tc.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/token/refresh/" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.code)
				_ = json.NewEncoder(w).Encode(map[string]string{"access": renewed})
			}))
			defer srv.Close()

			store := newStore(t, expired, "r1")
			api := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, apiclient.StoreTokens{Store: store})
			g := NewGuard(store, api, nil)
			if got := g.Check(context.Background()); got != tc.want {
				t.Fatalf("refresh answered %d: Check = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestGuardCheckOutlivesCancelledCaller(t *testing.T) {
	expired := sessiontest.AccessToken(t, 1, time.Now().Add(-time.Minute))
	renewed := sessiontest.AccessToken(t, 1, time.Now().Add(time.Hour))
	release := make(chan struct{})
	api := &fakeAPI{refresh: func(string) (string, error) {
		<-release
		return renewed, nil
	}}
	g := NewGuard(newStore(t, expired, "r"), api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan State, 1)
	go func() { first <- g.Check(ctx) }()
	deadline := time.Now().Add(2 * time.Second)
	for api.refreshCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	second := make(chan State, 1)
	go func() { second <- g.Check(context.Background()) }()
	cancel()
	if s := <-first; s != StateUnauthorized {
		t.Fatalf("cancelled caller = %v, want unauthorized", s)
	}
	close(release)
	if s := <-second; s != StateAuthorized {
		t.Fatalf("waiting caller = %v, want authorized", s)
	}
	if c := api.refreshCalls.Load(); c != 1 {
		t.Fatalf("expected one refresh, got %d", c)
	}
}
