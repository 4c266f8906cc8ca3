package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reserveease-console/internal/model"
	"github.com/iliyamo/reserveease-console/internal/roster"
)

// ClientHandler serves the client roster.
type ClientHandler struct {
	Roster *roster.Service
}

func NewClientHandler(r *roster.Service) *ClientHandler {
	if r == nil {
		panic("nil roster passed to NewClientHandler")
	}
	return &ClientHandler{Roster: r}
}

// List returns roster rows, filtered by ?q=.
func (h *ClientHandler) List(c echo.Context) error {
	rows, err := h.Roster.Rows(c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *ClientHandler) Create(c echo.Context) error {
	var in model.ClientInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	cl, err := h.Roster.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *ClientHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	var in model.ClientInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	cl, err := h.Roster.Update(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *ClientHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	if err := h.Roster.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reservations lists one client's reservations.
func (h *ClientHandler) Reservations(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	res, err := h.Roster.ReservationsOf(id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
