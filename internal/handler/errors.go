package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reserveease-console/internal/apiclient"
	"github.com/iliyamo/reserveease-console/internal/board"
	"github.com/iliyamo/reserveease-console/internal/middleware"
	"github.com/iliyamo/reserveease-console/internal/model"
	"github.com/iliyamo/reserveease-console/internal/roster"
	"github.com/iliyamo/reserveease-console/internal/session"
	"github.com/iliyamo/reserveease-console/internal/store"
)

var validationErrors = []error{
	model.ErrInvalidStatus,
	model.ErrClientName,
	model.ErrClientPhone,
	model.ErrGuestCount,
	model.ErrReservationDate,
	model.ErrReservationClnt,
	session.ErrCredentials,
}

// writeError maps a domain or backend error onto a JSON error response.
func writeError(c echo.Context, err error) error {
	var merr *board.MoveError
	if errors.As(err, &merr) {
		code := http.StatusConflict
		if errors.Is(err, apiclient.ErrServer) || errors.Is(err, apiclient.ErrNetwork) {
			code = http.StatusBadGateway
		}
		return c.JSON(code, echo.Map{
			"error":       "status change not confirmed",
			"detail":      merr.Err.Error(),
			"rolled_back": merr.RolledBack,
		})
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}
	switch {
	case errors.Is(err, roster.ErrDuplicatePhone), errors.Is(err, roster.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, board.ErrReservationNotOnBoard):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, apiclient.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "redirect": middleware.LoginPath})
	case errors.Is(err, apiclient.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rejected by backend", "detail": backendBody(err)})
	case errors.Is(err, apiclient.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, store.ErrLoading):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "loading"})
	case errors.Is(err, store.ErrLoadFailed),
		errors.Is(err, apiclient.ErrServer),
		errors.Is(err, apiclient.ErrNetwork),
		errors.Is(err, model.ErrDecode):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "backend unavailable", "detail": err.Error()})
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func backendBody(err error) string {
	var he *apiclient.HTTPError
	if errors.As(err, &he) {
		return he.Body
	}
	return err.Error()
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}
