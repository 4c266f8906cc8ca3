package handler // HTTP handlers for the console surface

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness probe.  It answers "ok" whenever the process is
// serving, independent of the backend or the session.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ReadyState is what Ready needs from the shared store.
type ReadyState interface {
	Loading() bool
	Err() error
	Revision() uint64
}

// Ready reports whether the shared data has loaded.
func Ready(st ReadyState) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch {
		case st.Err() != nil:
			return c.JSON(http.StatusBadGateway, echo.Map{"status": "failed", "error": st.Err().Error()})
		case st.Loading():
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "loading"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready", "revision": st.Revision()})
	}
}
