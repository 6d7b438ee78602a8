package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/service"
)

type HomeHandler struct {
	listings   service.ListingService
	categories service.CategoryService
}

func NewHomeHandler(listings service.ListingService, categories service.CategoryService) *HomeHandler {
	return &HomeHandler{listings: listings, categories: categories}
}

type HomeResponse struct {
	Listings   []ListingView  `json:"listings"`
	Categories []CategoryView `json:"categories"`
}

func (h *HomeHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	listings, err := h.listings.Latest(ctx)
	if err != nil {
		return respond(c, err, "listings", nil)
	}
	categories, err := h.categories.List(ctx)
	if err != nil {
		return respond(c, err, "categories", nil)
	}
	return c.JSON(http.StatusOK, HomeResponse{
		Listings:   toListingViews(listings),
		Categories: toCategoryViews(categories),
	})
}
