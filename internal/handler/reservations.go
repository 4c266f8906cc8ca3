package handler

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reserveease-console/internal/export"
	"github.com/iliyamo/reserveease-console/internal/model"
	"github.com/iliyamo/reserveease-console/internal/schedule"
	"github.com/iliyamo/reserveease-console/internal/stats"
)

// ReservationHandler serves the reservation table, the calendar, the
// statistics view and the spreadsheet export.
type ReservationHandler struct {
	Schedule *schedule.Service
}

func NewReservationHandler(s *schedule.Service) *ReservationHandler {
	if s == nil {
		panic("nil schedule passed to NewReservationHandler")
	}
	return &ReservationHandler{Schedule: s}
}

// reservationReq accepts reservation_date either as a local wall-clock
// entry ("2025-01-01T19:30") or as RFC 3339.
type reservationReq struct {
	ClientID        int64        `json:"client_id"`
	ReservationDate string       `json:"reservation_date"`
	GuestCount      int          `json:"guest_count"`
	Status          model.Status `json:"status"`
	Notes           string       `json:"notes"`
}

func (r reservationReq) input(loc *time.Location) (model.ReservationInput, error) {
	in := model.ReservationInput{ClientID: r.ClientID, GuestCount: r.GuestCount, Status: r.Status, Notes: r.Notes}
	if strings.TrimSpace(r.ReservationDate) == "" {
		return in, model.ErrReservationDate
	}
	t, err := model.ParseLocalDateTime(strings.TrimSpace(r.ReservationDate), loc)
	if err != nil {
		return in, err
	}
	in.ReservationDate = t
	return in, nil
}

// List returns the reservation table, filtered by ?q=.
func (h *ReservationHandler) List(c echo.Context) error {
	res, err := h.Schedule.Search(c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) Create(c echo.Context) error {
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, err)
	}
	in, err := req.input(h.Schedule.Location())
	if err != nil {
		return writeError(c, err)
	}
	r, err := h.Schedule.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *ReservationHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, err)
	}
	in, err := req.input(h.Schedule.Location())
	if err != nil {
		return writeError(c, err)
	}
	r, err := h.Schedule.Update(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	if err := h.Schedule.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type statusReq struct {
	Status model.Status `json:"status"`
}

// ChangeStatus is the table's status dropdown.
func (h *ReservationHandler) ChangeStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badID(c)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, err)
	}
	if err := h.Schedule.ChangeStatus(c.Request().Context(), id, req.Status); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// Calendar returns events between ?from= and ?to= (YYYY-MM-DD, both optional).
func (h *ReservationHandler) Calendar(c echo.Context) error {
	from, to, ok := h.window(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from/to must be YYYY-MM-DD"})
	}
	evs, err := h.Schedule.Events(from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, evs)
}

// Stats returns the statistics view for ?year= (default: current year).
// Peak hours cover ?from= to ?to=, defaulting to the whole year.
func (h *ReservationHandler) Stats(c echo.Context) error {
	loc := h.Schedule.Location()
	year := time.Now().In(loc).Year()
	if y := c.QueryParam("year"); y != "" {
		t, err := time.Parse("2006", y)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "year must be YYYY"})
		}
		year = t.Year()
	}
	from, to, ok := h.window(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from/to must be YYYY-MM-DD"})
	}
	if from.IsZero() {
		from = time.Date(year, 1, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	}
	if to.IsZero() {
		to = time.Date(year+1, 1, 1, 0, 0, 0, 0, loc)
	}

	res, err := h.Schedule.Search("")
	if err != nil {
		return writeError(c, err)
	}
	yearly := map[string][12]int{}
	for y, counts := range stats.Yearly(res, loc) {
		yearly[time.Date(y, 1, 1, 0, 0, 0, 0, loc).Format("2006")] = counts
	}
	return c.JSON(http.StatusOK, echo.Map{
		"year":       year,
		"monthly":    stats.Monthly(res, year, loc),
		"peak_hours": stats.PeakHours(res, from, to, loc),
		"yearly":     yearly,
		"years":      stats.Years(res, loc),
		"per_client": stats.PerClient(res),
	})
}

// Export streams the reservation table, filtered by ?q=, as an XLSX file.
func (h *ReservationHandler) Export(c echo.Context) error {
	res, err := h.Schedule.Search(c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	var buf bytes.Buffer
	if err := export.WriteReservations(&buf, res, h.Schedule.Location()); err != nil {
		return writeError(c, err)
	}
	name := "reservations-" + time.Now().In(h.Schedule.Location()).Format("20060102") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// window parses optional ?from= and ?to= dates.  to is exclusive and
// covers the whole named day.
func (h *ReservationHandler) window(c echo.Context) (time.Time, time.Time, bool) {
	loc := h.Schedule.Location()
	var from, to time.Time
	if s := c.QueryParam("from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return from, to, false
		}
		from = t
	}
	if s := c.QueryParam("to"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return from, to, false
		}
		to = t.AddDate(0, 0, 1)
	}
	return from, to, true
}
