package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
	"github.com/shinyyama/campus-market/internal/service"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func fieldErrors(err error) map[string][]string {
	var verr *service.ValidationError
	Expect(errors.As(err, &verr)).To(BeTrue(), "expected a validation error, got %v", err)
	return verr.Fields
}

var _ = Describe("ListingService", func() {
	var (
		ctx        context.Context
		repo       *mockListingRepo
		categories *mockCategoryRepo
		images     *mockImageStore
		svc        service.ListingService
		stored     *model.Listing
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &mockListingRepo{}
		categories = &mockCategoryRepo{}
		images = &mockImageStore{}
		stored = nil
		repo.createFn = func(_ context.Context, l *model.Listing) error {
			l.ID = 42
			cp := *l
			stored = &cp
			return nil
		}
		repo.findByIDFn = func(_ context.Context, id uint64) (*model.Listing, error) {
			if stored == nil || stored.ID != id {
				return nil, gorm.ErrRecordNotFound
			}
			cp := *stored
			return &cp, nil
		}
		repo.findOwnedFn = func(_ context.Context, id, sellerID uint64) (*model.Listing, error) {
			if stored == nil || stored.ID != id || stored.SellerID != sellerID {
				return nil, gorm.ErrRecordNotFound
			}
			cp := *stored
			return &cp, nil
		}
		repo.updateFn = func(_ context.Context, l *model.Listing) error {
			cp := *l
			stored = &cp
			return nil
		}
		svc = service.NewListingService(repo, categories, images)
	})

	Describe("Create", func() {
		It("assigns the acting user as seller", func() {
			l, err := svc.Create(ctx, 5, service.ListingInput{CategoryID: 1, Title: " Chair ", Price: "75"})
			Expect(err).NotTo(HaveOccurred())
			Expect(l.SellerID).To(Equal(uint64(5)))
			Expect(l.Title).To(Equal("Chair"))
			Expect(l.Price.Equal(decimal.NewFromInt(75))).To(BeTrue())
			Expect(l.IsSold).To(BeFalse())
			Expect(l.ImageURL).To(BeNil())
		})

		It("ignores is_sold on create", func() {
			l, err := svc.Create(ctx, 5, service.ListingInput{CategoryID: 1, Title: "Chair", Price: "75", IsSold: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(l.IsSold).To(BeFalse())
		})

		It("stores an uploaded image", func() {
			l, err := svc.Create(ctx, 5, service.ListingInput{CategoryID: 1, Title: "Chair", Price: "75", Image: pngBytes})
			Expect(err).NotTo(HaveOccurred())
			Expect(images.saved).To(HaveLen(1))
			Expect(*l.ImageURL).To(Equal("/media/item_images/new.png"))
		})

		It("removes the stored image when the insert fails", func() {
			repo.createFn = func(context.Context, *model.Listing) error { return errStorage }
			_, err := svc.Create(ctx, 5, service.ListingInput{CategoryID: 1, Title: "Chair", Price: "75", Image: pngBytes})
			Expect(err).To(MatchError(errStorage))
			Expect(images.deleted).To(ConsistOf("/media/item_images/new.png"))
		})

		DescribeTable("rejects invalid input without writing",
			func(in service.ListingInput, field string) {
				_, err := svc.Create(ctx, 5, in)
				Expect(fieldErrors(err)).To(HaveKey(field))
				Expect(stored).To(BeNil())
				Expect(images.saved).To(BeEmpty())
			},
			Entry("missing title", service.ListingInput{CategoryID: 1, Price: "1"}, "title"),
			Entry("missing category", service.ListingInput{Title: "x", Price: "1"}, "category"),
			Entry("negative price", service.ListingInput{CategoryID: 1, Title: "x", Price: "-1"}, "price"),
			Entry("non-numeric price", service.ListingInput{CategoryID: 1, Title: "x", Price: "abc"}, "price"),
			Entry("too many decimals", service.ListingInput{CategoryID: 1, Title: "x", Price: "1.005"}, "price"),
			Entry("too many digits", service.ListingInput{CategoryID: 1, Title: "x", Price: "123456789"}, "price"),
			Entry("not an image", service.ListingInput{CategoryID: 1, Title: "x", Price: "1", Image: []byte("hello")}, "image"),
		)

		It("rejects an unknown category", func() {
			categories.findByIDFn = func(context.Context, uint64) (*model.Category, error) {
				return nil, gorm.ErrRecordNotFound
			}
			_, err := svc.Create(ctx, 5, service.ListingInput{CategoryID: 9, Title: "x", Price: "1"})
			Expect(fieldErrors(err)).To(HaveKey("category"))
		})
	})

	Describe("owner-only operations", func() {
		BeforeEach(func() {
			old := "/media/item_images/old.png"
			stored = &model.Listing{ID: 42, SellerID: 5, CategoryID: 1, Title: "Chair", Price: decimal.NewFromInt(75), ImageURL: &old}
		})

		It("hides the listing from non-owners", func() {
			_, err := svc.GetOwned(ctx, 42, 6)
			Expect(err).To(MatchError(service.ErrNotFound))

			_, err = svc.Update(ctx, 42, 6, service.ListingInput{Title: "Mine", Price: "1"})
			Expect(err).To(MatchError(service.ErrNotFound))
			Expect(repo.updateCalls).To(BeZero())

			Expect(svc.Delete(ctx, 42, 6)).To(MatchError(service.ErrNotFound))
			Expect(repo.deleteCalls).To(BeZero())
		})

		It("lets the owner edit and mark sold while keeping the category", func() {
			l, err := svc.Update(ctx, 42, 5, service.ListingInput{CategoryID: 3, Title: "Armchair", Price: "60.50", IsSold: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Title).To(Equal("Armchair"))
			Expect(l.IsSold).To(BeTrue())
			Expect(l.CategoryID).To(Equal(uint64(1)))
			Expect(l.Price.String()).To(Equal("60.5"))
			Expect(*l.ImageURL).To(Equal("/media/item_images/old.png"))
			Expect(images.deleted).To(BeEmpty())
		})

		It("replaces the image and discards the old file", func() {
			l, err := svc.Update(ctx, 42, 5, service.ListingInput{Title: "Chair", Price: "75", Image: pngBytes})
			Expect(err).NotTo(HaveOccurred())
			Expect(*l.ImageURL).To(Equal("/media/item_images/new.png"))
			Expect(images.deleted).To(ConsistOf("/media/item_images/old.png"))
		})

		It("deletes for the owner and removes the image", func() {
			Expect(svc.Delete(ctx, 42, 5)).To(Succeed())
			Expect(repo.deleteCalls).To(Equal(1))
			Expect(images.deleted).To(ConsistOf("/media/item_images/old.png"))
		})
	})

	Describe("queries", func() {
		It("trims the keyword and passes the category through", func() {
			var got repository.ListingFilter
			repo.searchFn = func(_ context.Context, f repository.ListingFilter) ([]model.Listing, error) {
				got = f
				return nil, nil
			}
			_, err := svc.Search(ctx, "  chair ", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(repository.ListingFilter{Keyword: "chair", CategoryID: 3}))
		})

		It("caps the homepage and related lists", func() {
			var latestLimit, relatedLimit int
			repo.latestFn = func(_ context.Context, limit int) ([]model.Listing, error) {
				latestLimit = limit
				return nil, nil
			}
			repo.relatedFn = func(_ context.Context, _ *model.Listing, limit int) ([]model.Listing, error) {
				relatedLimit = limit
				return nil, nil
			}
			_, _ = svc.Latest(ctx)
			_, _ = svc.Related(ctx, &model.Listing{ID: 1})
			Expect(latestLimit).To(Equal(6))
			Expect(relatedLimit).To(Equal(3))
		})

		It("maps a missing listing to ErrNotFound", func() {
			_, err := svc.Get(ctx, 404)
			Expect(err).To(MatchError(service.ErrNotFound))
		})
	})
})
