package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/shinyyama/campus-market/internal/handler"
	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/service"
)

var _ = Describe("ListingHandler", func() {
	var (
		e          *echo.Echo
		listings   *mockListingService
		categories *mockCategoryService
	)

	BeforeEach(func() {
		e = newEcho()
		listings = &mockListingService{}
		categories = &mockCategoryService{categories: []model.Category{{ID: 1, Name: "Furniture", Slug: "furniture"}}}
		h := handler.NewListingHandler(listings, categories)
		e.GET("/listings", h.Index)
		e.GET("/listings/:id", h.Detail)
		e.POST("/listings/new", h.Create, as(7))
		e.POST("/listings/:id/edit", h.Edit, as(7))
		e.POST("/listings/:id/delete", h.Delete, as(7))
	})

	Describe("Index", func() {
		It("accepts q as a synonym for query", func() {
			var gotKeyword string
			var gotCategory uint64
			listings.searchFn = func(_ context.Context, keyword string, categoryID uint64) ([]model.Listing, error) {
				gotKeyword, gotCategory = keyword, categoryID
				return []model.Listing{{ID: 3, Title: "Chair", Price: decimal.RequireFromString("25")}}, nil
			}
			rec := get(e, "/listings?q=chair&category=1")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(gotKeyword).To(Equal("chair"))
			Expect(gotCategory).To(Equal(uint64(1)))
			Expect(body(rec)).To(ContainSubstring(`"price":"25.00"`))
		})

		It("matches nothing for an unparsable category", func() {
			rec := get(e, "/listings?category=abc")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(listings.searchCalls).To(BeZero())
			Expect(body(rec)).To(ContainSubstring(`"listings":[]`))
		})
	})

	Describe("Detail", func() {
		It("reports malformed ids as not found", func() {
			rec := get(e, "/listings/abc")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("renders the listing", func() {
			listings.getFn = func(_ context.Context, id uint64) (*model.Listing, error) {
				return &model.Listing{ID: id, Title: "Chair", Price: decimal.RequireFromString("10.5")}, nil
			}
			rec := get(e, "/listings/4")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(body(rec)).To(ContainSubstring(`"title":"Chair"`))
		})
	})

	Describe("Create", func() {
		It("passes the form and upload to the service and redirects to the listing", func() {
			var got service.ListingInput
			var seller uint64
			listings.createFn = func(_ context.Context, sellerID uint64, in service.ListingInput) (*model.Listing, error) {
				got, seller = in, sellerID
				return &model.Listing{ID: 42}, nil
			}

			buf := &bytes.Buffer{}
			w := multipart.NewWriter(buf)
			Expect(w.WriteField("category", "1")).To(Succeed())
			Expect(w.WriteField("title", "Chair")).To(Succeed())
			Expect(w.WriteField("price", "25")).To(Succeed())
			Expect(w.WriteField("is_sold", "on")).To(Succeed())
			fw, err := w.CreateFormFile("image", "chair.png")
			Expect(err).NotTo(HaveOccurred())
			_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(w.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/listings/new", buf)
			req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
			rec := serve(e, req)

			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/listings/42"))
			Expect(seller).To(Equal(uint64(7)))
			Expect(got.CategoryID).To(Equal(uint64(1)))
			Expect(got.Title).To(Equal("Chair"))
			Expect(got.IsSold).To(BeFalse())
			Expect(got.Image).To(HaveLen(8))
		})

		It("rejects a category that is not a number", func() {
			rec := postForm(e, "/listings/new", url.Values{"category": {"x"}, "title": {"Chair"}})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			Expect(body(rec)).To(ContainSubstring(`"category":["Select a valid choice.`))
		})

		It("renders service validation errors with the submitted values", func() {
			listings.createFn = func(context.Context, uint64, service.ListingInput) (*model.Listing, error) {
				verr := &service.ValidationError{}
				verr.Add("price", "Enter a number.")
				return nil, verr
			}
			rec := postForm(e, "/listings/new", url.Values{"category": {"1"}, "title": {"Chair"}, "price": {"abc"}})
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			b := body(rec)
			Expect(b).To(ContainSubstring(`"validation_failed"`))
			Expect(b).To(ContainSubstring(`"price":["Enter a number."]`))
			Expect(b).To(ContainSubstring(`"title":"Chair"`))
		})
	})

	Describe("Edit", func() {
		It("honors the sold checkbox", func() {
			var got service.ListingInput
			listings.updateFn = func(_ context.Context, id, actorID uint64, in service.ListingInput) (*model.Listing, error) {
				got = in
				return &model.Listing{ID: id}, nil
			}
			rec := postForm(e, "/listings/5/edit", url.Values{"title": {"Chair"}, "price": {"1"}, "is_sold": {"on"}})
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/listings/5"))
			Expect(got.IsSold).To(BeTrue())
		})

		It("hides listings the actor does not own", func() {
			listings.updateFn = func(context.Context, uint64, uint64, service.ListingInput) (*model.Listing, error) {
				return nil, service.ErrNotFound
			}
			rec := postForm(e, "/listings/5/edit", url.Values{"title": {"Chair"}})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Delete", func() {
		It("redirects to the listing index", func() {
			var deleted uint64
			listings.deleteFn = func(_ context.Context, id, _ uint64) error {
				deleted = id
				return nil
			}
			rec := postForm(e, "/listings/5/delete", nil)
			Expect(rec.Code).To(Equal(http.StatusSeeOther))
			Expect(rec.Header().Get(echo.HeaderLocation)).To(Equal("/listings"))
			Expect(deleted).To(Equal(uint64(5)))
		})

		It("is not reachable with GET", func() {
			rec := get(e, "/listings/5/delete")
			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})
