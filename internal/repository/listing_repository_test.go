package repository_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
)

type fixtures struct {
	ctx        context.Context
	users      repository.UserRepository
	categories repository.CategoryRepository
	listings   repository.ListingRepository
	convs      repository.ConversationRepository
	base       time.Time
	seq        int
}

func newFixtures(gdb *gorm.DB) *fixtures {
	return &fixtures{
		ctx:        context.Background(),
		users:      repository.NewUserRepository(gdb),
		categories: repository.NewCategoryRepository(gdb),
		listings:   repository.NewListingRepository(gdb),
		convs:      repository.NewConversationRepository(gdb),
		base:       time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixtures) user(name string) *model.User {
	u := &model.User{Username: name, PasswordHash: "x"}
	Expect(f.users.Create(f.ctx, u)).To(Succeed())
	return u
}

func (f *fixtures) category(name, slug string) *model.Category {
	c := &model.Category{Name: name, Slug: slug}
	Expect(f.categories.Create(f.ctx, c)).To(Succeed())
	return c
}

// listing creates listings one minute apart so creation order is unambiguous.
func (f *fixtures) listing(seller *model.User, cat *model.Category, title, description string, sold bool) *model.Listing {
	f.seq++
	l := &model.Listing{
		CategoryID:  cat.ID,
		SellerID:    seller.ID,
		Title:       title,
		Description: description,
		Price:       decimal.RequireFromString("10.00"),
		IsSold:      sold,
		CreatedAt:   f.base.Add(time.Duration(f.seq) * time.Minute),
	}
	Expect(f.listings.Create(f.ctx, l)).To(Succeed())
	return l
}

func titles(list []model.Listing) []string {
	out := make([]string, 0, len(list))
	for _, l := range list {
		out = append(out, l.Title)
	}
	return out
}

var _ = Describe("ListingRepository", func() {
	var (
		f         *fixtures
		seller    *model.User
		furniture *model.Category
		books     *model.Category
	)

	BeforeEach(func() {
		f = newFixtures(openTestDB())
		seller = f.user("seller")
		furniture = f.category("Furniture", "furniture")
		books = f.category("Books", "books")
	})

	Describe("Search", func() {
		BeforeEach(func() {
			f.listing(seller, furniture, "Wooden Chair", "solid oak", false)
			f.listing(seller, furniture, "Desk", "comes with a CHAIR mat", false)
			f.listing(seller, furniture, "Sold Chair", "", true)
			f.listing(seller, books, "Chairs of History", "a book", false)
			f.listing(seller, books, "100% cotton bag", "half_price", false)
		})

		It("returns unsold listings newest first", func() {
			list, err := f.listings.Search(f.ctx, repository.ListingFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"100% cotton bag", "Chairs of History", "Desk", "Wooden Chair"}))
			Expect(list[0].Category.Slug).To(Equal("books"))
			Expect(list[0].Seller.Username).To(Equal("seller"))
		})

		// SQLite's LOWER folds ASCII only, so keyword cases here stay ASCII.
		// MySQL and Postgres fold the full Unicode range.
		It("matches the keyword against title or description case-insensitively", func() {
			list, err := f.listings.Search(f.ctx, repository.ListingFilter{Keyword: "chair"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"Chairs of History", "Desk", "Wooden Chair"}))
		})

		It("combines keyword and category", func() {
			list, err := f.listings.Search(f.ctx, repository.ListingFilter{Keyword: "chair", CategoryID: furniture.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"Desk", "Wooden Chair"}))
		})

		It("treats LIKE wildcards in the keyword literally", func() {
			list, err := f.listings.Search(f.ctx, repository.ListingFilter{Keyword: "%"})
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"100% cotton bag"}))

			list, err = f.listings.Search(f.ctx, repository.ListingFilter{Keyword: "d_sk"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})

		It("returns nothing for an unknown category", func() {
			list, err := f.listings.Search(f.ctx, repository.ListingFilter{CategoryID: 999})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})

	Describe("Related", func() {
		It("returns up to the limit of unsold listings in the same category, excluding itself", func() {
			target := f.listing(seller, furniture, "Target", "", false)
			f.listing(seller, furniture, "A", "", false)
			f.listing(seller, furniture, "B", "", true)
			f.listing(seller, furniture, "C", "", false)
			f.listing(seller, furniture, "D", "", false)
			f.listing(seller, furniture, "E", "", false)
			f.listing(seller, books, "F", "", false)

			list, err := f.listings.Related(f.ctx, target, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"E", "D", "C"}))
		})
	})

	Describe("Latest", func() {
		It("returns unsold listings by id descending", func() {
			for _, t := range []string{"1", "2", "3", "4", "5", "6", "7"} {
				f.listing(seller, books, t, "", false)
			}
			f.listing(seller, books, "sold", "", true)

			list, err := f.listings.Latest(f.ctx, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"7", "6", "5", "4", "3", "2"}))
		})
	})

	Describe("ownership", func() {
		var (
			other *model.User
			l     *model.Listing
		)

		BeforeEach(func() {
			other = f.user("other")
			l = f.listing(seller, furniture, "Chair", "", false)
		})

		It("finds owned listings only for the seller", func() {
			got, err := f.listings.FindOwned(f.ctx, l.ID, seller.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Chair"))

			_, err = f.listings.FindOwned(f.ctx, l.ID, other.ID)
			Expect(err).To(MatchError(gorm.ErrRecordNotFound))
		})

		It("updates the editable columns", func() {
			l.Title = "Armchair"
			l.IsSold = true
			Expect(f.listings.Update(f.ctx, l)).To(Succeed())

			got, err := f.listings.FindByID(f.ctx, l.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Armchair"))
			Expect(got.IsSold).To(BeTrue())
			Expect(got.Price.Equal(decimal.RequireFromString("10"))).To(BeTrue())
		})

		It("lists sold and unsold listings of a seller", func() {
			f.listing(seller, books, "Sold Book", "", true)
			f.listing(other, books, "Not Mine", "", false)

			list, err := f.listings.ListBySeller(f.ctx, seller.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"Sold Book", "Chair"}))
		})

		It("refuses to delete someone else's listing", func() {
			Expect(f.listings.Delete(f.ctx, l.ID, other.ID)).To(MatchError(gorm.ErrRecordNotFound))
			_, err := f.listings.FindByID(f.ctx, l.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("deletes the listing together with its conversations", func() {
			cv := &model.Conversation{ListingID: l.ID, Members: []model.User{*seller, *other}, ModifiedAt: f.base}
			Expect(f.convs.Create(f.ctx, cv)).To(Succeed())
			Expect(f.convs.CreateMessage(f.ctx, &model.ConversationMessage{
				ConversationID: cv.ID, CreatedByID: other.ID, Content: "hi", CreatedAt: f.base,
			})).To(Succeed())

			Expect(f.listings.Delete(f.ctx, l.ID, seller.ID)).To(Succeed())

			_, err := f.listings.FindByID(f.ctx, l.ID)
			Expect(err).To(MatchError(gorm.ErrRecordNotFound))
			inbox, err := f.convs.ListForMember(f.ctx, other.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(inbox).To(BeEmpty())
			msgs, err := f.convs.ListMessages(f.ctx, cv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})
	})
})
