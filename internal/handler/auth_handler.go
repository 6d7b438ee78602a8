package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/service"
)

// Sessions starts and ends login sessions for a request.
type Sessions interface {
	Login(c echo.Context, uid uint64) error
	Logout(c echo.Context) error
	RevokeOthers(c echo.Context, uid uint64) error
}

const invalidLoginMessage = "Please enter a correct username and password. Note that both fields may be case-sensitive."

type AuthHandler struct {
	accounts service.AccountService
	sessions Sessions
}

func NewAuthHandler(accounts service.AccountService, sessions Sessions) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

type SignupForm struct {
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Password1 string `form:"password1" json:"-"`
	Password2 string `form:"password2" json:"-"`
}

type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"-" validate:"required"`
	Next     string `form:"next" json:"next,omitempty"`
}

type FormResponse struct {
	Form   string `json:"form"`
	Values any    `json:"values"`
}

func (h *AuthHandler) SignupForm(c echo.Context) error {
	return c.JSON(http.StatusOK, FormResponse{Form: "signup", Values: SignupForm{}})
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var f SignupForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "account", f)
	}
	_, err := h.accounts.Signup(c.Request().Context(), service.SignupInput{
		Username:  f.Username,
		Email:     f.Email,
		Password1: f.Password1,
		Password2: f.Password2,
	})
	if err != nil {
		return respond(c, err, "account", f)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.JSON(http.StatusOK, FormResponse{Form: "login", Values: LoginForm{Next: safeNext(c.QueryParam("next"))}})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var f LoginForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "session", f)
	}
	if f.Next == "" {
		f.Next = c.QueryParam("next")
	}
	f.Next = safeNext(f.Next)
	u, err := h.accounts.Authenticate(c.Request().Context(), f.Username, f.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			verr := &service.ValidationError{}
			verr.Add(service.NonFieldErrors, invalidLoginMessage)
			return formError(c, verr, f)
		}
		return respond(c, err, "session", f)
	}
	if err := h.sessions.Login(c, u.ID); err != nil {
		return respond(c, err, "session", nil)
	}
	dest := f.Next
	if dest == "" {
		dest = "/"
	}
	return c.Redirect(http.StatusSeeOther, dest)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c); err != nil {
		return respond(c, err, "session", nil)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// safeNext keeps only local absolute paths so login cannot redirect off-site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
