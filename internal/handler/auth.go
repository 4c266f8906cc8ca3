package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reserveease-console/internal/apiclient"
	"github.com/iliyamo/reserveease-console/internal/session"
)

// SessionFlows is satisfied by *session.Guard.
type SessionFlows interface {
	Check(ctx context.Context) session.State
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, in apiclient.RegisterInput) error
	Logout(ctx context.Context) error
}

// DataLifecycle is satisfied by *store.Store.
type DataLifecycle interface {
	Start(ctx context.Context) bool
	Reset()
}

// ViewState is per-session view state, such as the board's selected day
// and local moves.  *board.Board satisfies it.
type ViewState interface {
	Reset()
}

// AuthHandler serves sign-in, sign-up and sign-out.
type AuthHandler struct {
	Guard SessionFlows
	Data  DataLifecycle
	Views []ViewState
}

func NewAuthHandler(g SessionFlows, d DataLifecycle, views ...ViewState) *AuthHandler {
	if g == nil || d == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Guard: g, Data: d, Views: views}
}

// endSession drops everything cached for the signed-in account.
func (h *AuthHandler) endSession() {
	h.Data.Reset()
	for _, v := range h.Views {
		v.Reset()
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Login exchanges credentials for a session.  Cached data from a
// previous session is dropped and reloaded in the background.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	h.endSession()
	if err := h.Guard.Login(c.Request().Context(), req.Email, req.Password); err != nil {
		return writeError(c, err)
	}
	h.Data.Start(context.WithoutCancel(c.Request().Context()))
	return c.JSON(http.StatusOK, echo.Map{"status": session.StateAuthorized.String()})
}

// Register creates a staff account.  The caller must log in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	h.endSession()
	in := apiclient.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name, PhoneNumber: req.PhoneNumber}
	if err := h.Guard.Register(c.Request().Context(), in); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "registered", "next": "/login"})
}

// Logout ends the session and drops cached data.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Guard.Logout(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	h.endSession()
	return c.NoContent(http.StatusNoContent)
}

// Session reports the guard's view of the stored session.
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"state": h.Guard.Check(c.Request().Context()).String()})
}
