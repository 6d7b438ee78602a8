package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/middleware"
	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/service"
	"github.com/shinyyama/campus-market/internal/storage"
)

type ListingHandler struct {
	listings   service.ListingService
	categories service.CategoryService
}

func NewListingHandler(listings service.ListingService, categories service.CategoryService) *ListingHandler {
	return &ListingHandler{listings: listings, categories: categories}
}

type ListingForm struct {
	Category    string `form:"category" json:"category"`
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Price       string `form:"price" json:"price"`
	IsSold      string `form:"is_sold" json:"isSold,omitempty"`
}

type ListingIndexResponse struct {
	Listings   []ListingView  `json:"listings"`
	Query      string         `json:"query"`
	CategoryID uint64         `json:"categoryId"`
	Categories []CategoryView `json:"categories"`
}

type ListingDetailResponse struct {
	Listing ListingView   `json:"listing"`
	Related []ListingView `json:"related"`
	IsOwner bool          `json:"isOwner"`
}

type ListingFormResponse struct {
	Form       string         `json:"form"`
	Title      string         `json:"title"`
	Values     ListingForm    `json:"values"`
	Categories []CategoryView `json:"categories,omitempty"`
	Listing    *ListingView   `json:"listing,omitempty"`
}

// Index browses unsold listings. query and q are synonyms; an unparsable category matches nothing.
func (h *ListingHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	query := c.QueryParam("query")
	if query == "" {
		query = c.QueryParam("q")
	}
	categories, err := h.categories.List(ctx)
	if err != nil {
		return respond(c, err, "categories", nil)
	}
	resp := ListingIndexResponse{
		Listings:   []ListingView{},
		Query:      query,
		Categories: toCategoryViews(categories),
	}
	if raw := c.QueryParam("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusOK, resp)
		}
		resp.CategoryID = id
	}

	listings, err := h.listings.Search(ctx, query, resp.CategoryID)
	if err != nil {
		return respond(c, err, "listings", nil)
	}
	resp.Listings = toListingViews(listings)
	return c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) Detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return respond(c, service.ErrNotFound, "listing", nil)
	}
	ctx := c.Request().Context()
	l, err := h.listings.Get(ctx, id)
	if err != nil {
		return respond(c, err, "listing", nil)
	}
	related, err := h.listings.Related(ctx, l)
	if err != nil {
		return respond(c, err, "listing", nil)
	}
	uid, _ := middleware.UserID(c)
	return c.JSON(http.StatusOK, ListingDetailResponse{
		Listing: toListingView(l),
		Related: toListingViews(related),
		IsOwner: l.OwnedBy(uid),
	})
}

func (h *ListingHandler) NewForm(c echo.Context) error {
	categories, err := h.categories.List(c.Request().Context())
	if err != nil {
		return respond(c, err, "categories", nil)
	}
	return c.JSON(http.StatusOK, ListingFormResponse{
		Form:       "listing",
		Title:      "New listing",
		Categories: toCategoryViews(categories),
	})
}

func (h *ListingHandler) Create(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	var f ListingForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "listing", f)
	}
	in, err := f.input(c)
	if err != nil {
		return respond(c, err, "listing", f)
	}
	in.IsSold = false
	l, err := h.listings.Create(c.Request().Context(), uid, in)
	if err != nil {
		return respond(c, err, "listing", f)
	}
	return c.Redirect(http.StatusSeeOther, listingPath(l.ID))
}

func (h *ListingHandler) EditForm(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	id, ok := pathID(c, "id")
	if !ok {
		return respond(c, service.ErrNotFound, "listing", nil)
	}
	l, err := h.listings.GetOwned(c.Request().Context(), id, uid)
	if err != nil {
		return respond(c, err, "listing", nil)
	}
	view := toListingView(l)
	return c.JSON(http.StatusOK, ListingFormResponse{
		Form:    "listing",
		Title:   "Edit listing",
		Values:  formFromListing(l),
		Listing: &view,
	})
}

func (h *ListingHandler) Edit(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	id, ok := pathID(c, "id")
	if !ok {
		return respond(c, service.ErrNotFound, "listing", nil)
	}
	var f ListingForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "listing", f)
	}
	in, err := f.input(c)
	if err != nil {
		return respond(c, err, "listing", f)
	}
	l, err := h.listings.Update(c.Request().Context(), id, uid, in)
	if err != nil {
		return respond(c, err, "listing", f)
	}
	return c.Redirect(http.StatusSeeOther, listingPath(l.ID))
}

func (h *ListingHandler) Delete(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	id, ok := pathID(c, "id")
	if !ok {
		return respond(c, service.ErrNotFound, "listing", nil)
	}
	if err := h.listings.Delete(c.Request().Context(), id, uid); err != nil {
		return respond(c, err, "listing", nil)
	}
	return c.Redirect(http.StatusSeeOther, "/listings")
}

// input converts the bound form and the optional image upload into a service input.
func (f ListingForm) input(c echo.Context) (service.ListingInput, error) {
	in := service.ListingInput{
		Title:       f.Title,
		Description: f.Description,
		Price:       f.Price,
		IsSold:      checked(f.IsSold),
	}
	if raw := strings.TrimSpace(f.Category); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			verr := &service.ValidationError{}
			verr.Add("category", "Select a valid choice. That choice is not one of the available choices.")
			return in, verr
		}
		in.CategoryID = id
	}
	image, err := readImage(c)
	if err != nil {
		return in, err
	}
	in.Image = image
	return in, nil
}

// readImage returns the uploaded image bytes, reading at most one byte past the size limit.
func readImage(c echo.Context) ([]byte, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	if fh.Size > storage.MaxImageSize {
		verr := &service.ValidationError{}
		verr.Add("image", fmt.Sprintf("Ensure the image is at most %d MB.", storage.MaxImageSize>>20))
		return nil, verr
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(io.LimitReader(src, storage.MaxImageSize+1))
}

func formFromListing(l *model.Listing) ListingForm {
	f := ListingForm{
		Category:    strconv.FormatUint(l.CategoryID, 10),
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price.StringFixed(2),
	}
	if l.IsSold {
		f.IsSold = "on"
	}
	return f
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func listingPath(id uint64) string {
	return "/listings/" + strconv.FormatUint(id, 10)
}
