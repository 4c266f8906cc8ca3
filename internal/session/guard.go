// Package session decides whether the console holds a usable staff
// session and manages the login, register and logout flows that reset it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/reserveease-console/internal/apiclient"
	"github.com/iliyamo/reserveease-console/internal/metrics"
	"github.com/iliyamo/reserveease-console/internal/tokenstore"
)

// State is the guard's view of the session.
type State int

const (
	// StateUnknown means a check is pending; protected content must not
	// be served yet.
	StateUnknown State = iota
	StateAuthorized
	StateUnauthorized
)

func (s State) String() string {
	switch s {
	case StateAuthorized:
		return "authorized"
	case StateUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// ErrCredentials is returned by Login when email or password is empty.
var ErrCredentials = errors.New("email and password are required")

// API is the subset of the backend the guard talks to.
type API interface {
	RefreshToken(ctx context.Context, refresh string) (string, error)
	ObtainToken(ctx context.Context, cr apiclient.Credentials) (apiclient.TokenPair, error)
	RegisterUser(ctx context.Context, in apiclient.RegisterInput) error
}

type check struct {
	done  chan struct{}
	state State
}

// Guard gates protected views.  Concurrent checks share one evaluation,
// so at most one refresh round-trip is in flight at a time.
type Guard struct {
	tokens tokenstore.Store
	api    API
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	inflight *check
}

// NewGuard builds a Guard in the unknown state.
func NewGuard(tokens tokenstore.Store, api API, log *slog.Logger) *Guard {
	if tokens == nil || api == nil {
		panic("nil dependency passed to session.NewGuard")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{tokens: tokens, api: api, log: log.With("component", "session"), now: time.Now}
}

// State reports the last settled state, or StateUnknown while a check runs.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight != nil {
		return StateUnknown
	}
	return g.state
}

// checkTimeout bounds one shared evaluation, refresh round-trip included.
const checkTimeout = 15 * time.Second

// Check evaluates the stored credentials and always settles on
// StateAuthorized or StateUnauthorized.  The shared evaluation does not
// depend on any one caller's context; a caller whose context ends before
// it finishes gets StateUnauthorized while the others keep waiting.
func (g *Guard) Check(ctx context.Context) State {
	g.mu.Lock()
	c := g.inflight
	if c == nil {
		c = &check{done: make(chan struct{})}
		g.inflight = c
		go g.run(context.WithoutCancel(ctx), c)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		return c.state
	case <-ctx.Done():
		return StateUnauthorized
	}
}

func (g *Guard) run(ctx context.Context, c *check) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	c.state = g.evaluate(ctx)
	metrics.GuardChecks.WithLabelValues(c.state.String()).Inc()

	g.mu.Lock()
	g.state = c.state
	g.inflight = nil
	g.mu.Unlock()
	close(c.done)
}

func (g *Guard) evaluate(ctx context.Context) State {
	access, err := tokenstore.Lookup(ctx, g.tokens, tokenstore.KeyAccess)
	if err != nil {
		g.log.Error("read access token", "err", err)
		return StateUnauthorized
	}
	if access == "" {
		return StateUnauthorized
	}
	exp, err := TokenExpiry(access)
	switch {
	case errors.Is(err, ErrMalformedToken):
		g.log.Warn("stored access token is not a jwt", "err", err)
		return StateUnauthorized
	case err == nil && exp.After(g.now()):
		return StateAuthorized
	}
	return g.refresh(ctx)
}

// refresh performs the single refresh exchange allowed per check.
func (g *Guard) refresh(ctx context.Context) State {
	refresh, err := tokenstore.Lookup(ctx, g.tokens, tokenstore.KeyRefresh)
	if err != nil || refresh == "" {
		g.log.Info("access token expired and no refresh token stored")
		return StateUnauthorized
	}
	access, err := g.api.RefreshToken(ctx, refresh)
	if err != nil {
		g.log.Info("token refresh rejected", "err", err)
		return StateUnauthorized
	}
	if err := g.tokens.Set(ctx, tokenstore.KeyAccess, access); err != nil {
		g.log.Error("store refreshed access token", "err", err)
		return StateUnauthorized
	}
	g.log.Debug("access token refreshed")
	return StateAuthorized
}

func (g *Guard) settle(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Login starts a clean session: stored tokens are cleared before the
// credentials are exchanged, so a failed attempt leaves no session behind.
func (g *Guard) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrCredentials
	}
	if err := g.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	g.settle(StateUnauthorized)
	tp, err := g.api.ObtainToken(ctx, apiclient.Credentials{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := g.tokens.Set(ctx, tokenstore.KeyAccess, tp.Access); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if err := g.tokens.Set(ctx, tokenstore.KeyRefresh, tp.Refresh); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	g.settle(StateAuthorized)
	g.log.Info("staff logged in", "email", email)
	return nil
}

// Register creates a staff account.  Like Login it first drops any
// stored session; the new account must log in afterwards.
func (g *Guard) Register(ctx context.Context, in apiclient.RegisterInput) error {
	if err := g.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	g.settle(StateUnauthorized)
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return ErrCredentials
	}
	if err := g.api.RegisterUser(ctx, in); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Logout clears stored credentials.
func (g *Guard) Logout(ctx context.Context) error {
	g.settle(StateUnauthorized)
	if err := g.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}
