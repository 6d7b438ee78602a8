package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/middleware"
	"github.com/shinyyama/campus-market/internal/service"
)

type AccountHandler struct {
	accounts service.AccountService
	listings service.ListingService
	sessions Sessions
}

func NewAccountHandler(accounts service.AccountService, listings service.ListingService, sessions Sessions) *AccountHandler {
	return &AccountHandler{accounts: accounts, listings: listings, sessions: sessions}
}

type ProfileForm struct {
	FirstName string `form:"first_name" json:"firstName"`
	LastName  string `form:"last_name" json:"lastName"`
	Email     string `form:"email" json:"email"`
}

type PasswordForm struct {
	OldPassword  string `form:"old_password" json:"-"`
	NewPassword1 string `form:"new_password1" json:"-"`
	NewPassword2 string `form:"new_password2" json:"-"`
}

type ProfileResponse struct {
	User     UserView      `json:"user"`
	Listings []ListingView `json:"listings"`
}

type DashboardResponse struct {
	Listings []ListingView `json:"listings"`
}

func (h *AccountHandler) Profile(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	ctx := c.Request().Context()
	u, err := h.accounts.Get(ctx, uid)
	if err != nil {
		return respond(c, err, "account", nil)
	}
	listings, err := h.listings.ListBySeller(ctx, uid)
	if err != nil {
		return respond(c, err, "listings", nil)
	}
	return c.JSON(http.StatusOK, ProfileResponse{User: toUserView(u), Listings: toListingViews(listings)})
}

func (h *AccountHandler) Dashboard(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	listings, err := h.listings.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		return respond(c, err, "listings", nil)
	}
	return c.JSON(http.StatusOK, DashboardResponse{Listings: toListingViews(listings)})
}

func (h *AccountHandler) EditForm(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	u, err := h.accounts.Get(c.Request().Context(), uid)
	if err != nil {
		return respond(c, err, "account", nil)
	}
	return c.JSON(http.StatusOK, FormResponse{
		Form:   "profile",
		Values: ProfileForm{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email},
	})
}

func (h *AccountHandler) Edit(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	var f ProfileForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "account", f)
	}
	_, err := h.accounts.UpdateProfile(c.Request().Context(), uid, service.ProfileInput{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
	})
	if err != nil {
		return respond(c, err, "account", f)
	}
	return c.Redirect(http.StatusSeeOther, "/account")
}

func (h *AccountHandler) PasswordForm(c echo.Context) error {
	return c.JSON(http.StatusOK, FormResponse{Form: "password", Values: PasswordForm{}})
}

// ChangePassword updates the password and ends every other session of the user.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	var f PasswordForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "password", nil)
	}
	err := h.accounts.ChangePassword(c.Request().Context(), uid, service.PasswordChangeInput{
		OldPassword:  f.OldPassword,
		NewPassword1: f.NewPassword1,
		NewPassword2: f.NewPassword2,
	})
	if err != nil {
		return respond(c, err, "password", nil)
	}
	if err := h.sessions.RevokeOthers(c, uid); err != nil {
		return respond(c, err, "session", nil)
	}
	return c.Redirect(http.StatusSeeOther, "/account")
}
