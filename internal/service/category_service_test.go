package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/service"
)

var errStorage = errors.New("storage unavailable")

var _ = Describe("CategoryService", func() {
	var (
		ctx  context.Context
		repo *mockCategoryRepo
		svc  service.CategoryService
		used map[string]uint64
	)

	BeforeEach(func() {
		ctx = context.Background()
		used = map[string]uint64{}
		repo = &mockCategoryRepo{}
		repo.slugTakenFn = func(_ context.Context, slug string, excludeID uint64) (bool, error) {
			owner, ok := used[slug]
			return ok && owner != excludeID, nil
		}
		repo.createFn = func(_ context.Context, c *model.Category) error {
			c.ID = uint64(len(used) + 1)
			used[c.Slug] = c.ID
			return nil
		}
		svc = service.NewCategoryService(repo)
	})

	It("derives a slug from the name", func() {
		c := &model.Category{Name: "Home & Garden"}
		Expect(svc.Save(ctx, c)).To(Succeed())
		Expect(c.Slug).To(Equal("home-garden"))
	})

	It("appends a counter when the slug is taken", func() {
		for _, want := range []string{"books", "books-2", "books-3"} {
			c := &model.Category{Name: "Books"}
			Expect(svc.Save(ctx, c)).To(Succeed())
			Expect(c.Slug).To(Equal(want))
		}
	})

	It("falls back when nothing slug-worthy is left", func() {
		c := &model.Category{Name: "!!!"}
		Expect(svc.Save(ctx, c)).To(Succeed())
		Expect(c.Slug).To(Equal("category"))
	})

	It("keeps an existing slug when the name changes", func() {
		c := &model.Category{Name: "Books"}
		Expect(svc.Save(ctx, c)).To(Succeed())

		c.Name = "Textbooks"
		Expect(svc.Save(ctx, c)).To(Succeed())
		Expect(c.Slug).To(Equal("books"))
		Expect(repo.saveCalls).To(Equal(1))
	})

	It("does not count the category's own slug as a collision", func() {
		used["books"] = 7
		c := &model.Category{ID: 7, Name: "Books"}
		Expect(svc.Save(ctx, c)).To(Succeed())
		Expect(c.Slug).To(Equal("books"))
	})

	It("rejects an empty name", func() {
		err := svc.Save(ctx, &model.Category{Name: "  "})
		var verr *service.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Fields).To(HaveKey("name"))
		Expect(repo.createCalls).To(BeZero())
	})

	It("aborts when the slug lookup fails", func() {
		repo.slugTakenFn = func(context.Context, string, uint64) (bool, error) {
			return false, errStorage
		}
		err := svc.Save(ctx, &model.Category{Name: "Books"})
		Expect(err).To(MatchError(errStorage))
		Expect(repo.createCalls).To(BeZero())
	})
})
