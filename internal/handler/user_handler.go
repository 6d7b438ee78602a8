package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/service"
)

// UserHandler serves public seller profiles.
type UserHandler struct {
	accounts service.AccountService
	listings service.ListingService
}

func NewUserHandler(accounts service.AccountService, listings service.ListingService) *UserHandler {
	return &UserHandler{accounts: accounts, listings: listings}
}

type PublicUserResponse struct {
	User     UserSummary   `json:"user"`
	JoinedAt string        `json:"joinedAt"`
	Listings []ListingView `json:"listings"`
}

// GetPublic shows a seller with their unsold listings. Contact details stay private.
func (h *UserHandler) GetPublic(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return respond(c, service.ErrNotFound, "user", nil)
	}
	ctx := c.Request().Context()
	u, err := h.accounts.Get(ctx, id)
	if err != nil {
		return respond(c, err, "user", nil)
	}
	all, err := h.listings.ListBySeller(ctx, u.ID)
	if err != nil {
		return respond(c, err, "listings", nil)
	}
	unsold := make([]model.Listing, 0, len(all))
	for _, l := range all {
		if !l.IsSold {
			unsold = append(unsold, l)
		}
	}
	return c.JSON(http.StatusOK, PublicUserResponse{
		User:     toUserSummary(u),
		JoinedAt: timestamp(u.CreatedAt),
		Listings: toListingViews(unsold),
	})
}
