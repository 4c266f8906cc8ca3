package middleware // reusable HTTP middleware for the console surface

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reserveease-console/internal/session"
)

// LoginPath is where an unauthorized caller is sent.
const LoginPath = "/login"

// SessionChecker is satisfied by *session.Guard.
type SessionChecker interface {
	Check(ctx context.Context) session.State
}

// RequireSession gates protected routes on the staff session.  Nothing
// protected is served until the guard has settled: the check blocks until
// the stored token is either accepted, refreshed or rejected.  A rejected
// session answers 401 with a redirect hint to the login page.
func RequireSession(guard SessionChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Check shares one evaluation between concurrent requests, so a
			// burst of requests with an expired token refreshes it once.
			state := guard.Check(c.Request().Context())
			if state != session.StateAuthorized {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":    "unauthorized",
					"redirect": LoginPath,
				})
			}
			c.Set("session_state", state.String())
			return next(c)
		}
	}
}

// DataGate is satisfied by *store.Store.
type DataGate interface {
	Start(ctx context.Context) bool
	Loading() bool
	Err() error
}

// RequireData holds back data views until the shared store has loaded.
// The first request after sign-in starts the load in the background and
// gets 503 like any request that arrives while it runs.  A request that
// finds the load failed answers 502 and starts a new load, so the error
// clears once the backend recovers.
func RequireData(st DataGate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			failed := st.Err()
			st.Start(context.WithoutCancel(c.Request().Context()))
			if failed != nil {
				return c.JSON(http.StatusBadGateway, echo.Map{"error": "data load failed", "detail": failed.Error()})
			}
			if st.Loading() {
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "loading"})
			}
			return next(c)
		}
	}
}
