package router // package router defines how HTTP routes are registered for the console

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/reserveease-console/internal/handler"
	"github.com/iliyamo/reserveease-console/internal/middleware"
)

// RegisterRoutes registers routes that need neither a session nor loaded
// data: liveness, readiness and, when enabled, Prometheus metrics.
func RegisterRoutes(e *echo.Echo, st handler.ReadyState, metricsEnabled bool) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(st))
	if metricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// RegisterAuth registers the sign-in flows under /v1/auth.  limiter
// throttles login and register; pass nil for none.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	var signIn []echo.MiddlewareFunc
	if limiter != nil {
		signIn = append(signIn, limiter)
	}
	// Login and register both start from a clean session.
	g.POST("/login", a.Login, signIn...)
	g.POST("/register", a.Register, signIn...)
	g.POST("/logout", a.Logout)
	// The session probe runs the guard itself, so it sits outside the
	// protected group and answers 200 with the state instead of 401.
	g.GET("/session", a.Session)
}

// Console bundles the handlers for the protected views.
type Console struct {
	Board        *handler.BoardHandler
	Clients      *handler.ClientHandler
	Reservations *handler.ReservationHandler
}

// RegisterConsole registers the protected views under /v1.  Every route
// first waits for the session guard and then for the shared data load.
func RegisterConsole(e *echo.Echo, h Console, guard middleware.SessionChecker, data middleware.DataGate) {
	g := e.Group("/v1", middleware.RequireSession(guard), middleware.RequireData(data))

	// Day board: the selected day, its three status columns and the
	// drag-and-drop status move.
	g.GET("/board", h.Board.Get)
	g.POST("/board/navigate", h.Board.Navigate)
	g.POST("/board/reservations/:id/move", h.Board.Move)

	// Client roster.
	g.GET("/clients", h.Clients.List)
	g.POST("/clients", h.Clients.Create)
	g.PUT("/clients/:id", h.Clients.Update)
	g.DELETE("/clients/:id", h.Clients.Delete)
	g.GET("/clients/:id/reservations", h.Clients.Reservations)

	// Reservation table.  The export route is registered before /:id so
	// it is never read as an id.
	g.GET("/reservations", h.Reservations.List)
	g.GET("/reservations/export", h.Reservations.Export)
	g.POST("/reservations", h.Reservations.Create)
	g.PUT("/reservations/:id", h.Reservations.Update)
	g.PATCH("/reservations/:id/status", h.Reservations.ChangeStatus)
	g.DELETE("/reservations/:id", h.Reservations.Delete)

	g.GET("/calendar", h.Reservations.Calendar)
	g.GET("/stats", h.Reservations.Stats)
}
