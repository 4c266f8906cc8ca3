package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reserveease-console/internal/board"
	"github.com/iliyamo/reserveease-console/internal/model"
)

// BoardHandler serves the day board.
type BoardHandler struct {
	Board *board.Board
	Loc   *time.Location
}

func NewBoardHandler(b *board.Board, loc *time.Location) *BoardHandler {
	if b == nil {
		panic("nil board passed to NewBoardHandler")
	}
	if loc == nil {
		loc = time.Local
	}
	return &BoardHandler{Board: b, Loc: loc}
}

// Get returns the board.  ?day=YYYY-MM-DD selects a day first.
func (h *BoardHandler) Get(c echo.Context) error {
	if d := strings.TrimSpace(c.QueryParam("day")); d != "" {
		day, err := time.ParseInLocation(board.DateLayout, d, h.Loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be YYYY-MM-DD"})
		}
		h.Board.SetDay(day)
	}
	return h.view(c)
}

type navigateReq struct {
	Action string `json:"action"` // previous | next | today
}

// Navigate moves the selected day without touching the backend.
func (h *BoardHandler) Navigate(c echo.Context) error {
	var req navigateReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	switch strings.ToLower(req.Action) {
	case "previous", "prev":
		h.Board.Previous()
	case "next":
		h.Board.Next()
	case "today":
		h.Board.Today()
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action must be previous, next or today"})
	}
	return h.view(c)
}

type moveReq struct {
	Status model.Status `json:"status"`
}

// Move drops a card into another status column.
func (h *BoardHandler) Move(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	var req moveReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, err)
	}
	if err := h.Board.Move(c.Request().Context(), id, req.Status); err != nil {
		return writeError(c, err)
	}
	return h.view(c)
}

func (h *BoardHandler) view(c echo.Context) error {
	v, err := h.Board.View()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}
