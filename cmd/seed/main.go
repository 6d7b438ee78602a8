package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/campus-market/internal/config"
	"github.com/shinyyama/campus-market/internal/db"
	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
	"github.com/shinyyama/campus-market/internal/service"
	"github.com/shinyyama/campus-market/internal/storage"
	"gorm.io/gorm"
)

type seedListing struct {
	Seller      string
	Category    string
	Title       string
	Description string
	Price       string
}

var categoryNames = []string{"Books", "Electronics", "Furniture", "Clothing", "Sports", "Kitchen"}

// demoPassword is shared by every seeded account.
const demoPassword = "campus-demo-2024"

var demoUsers = []string{"alice", "bob", "carol"}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}

	userRepo := repository.NewUserRepository(gdb)
	categoryRepo := repository.NewCategoryRepository(gdb)
	categories := service.NewCategoryService(categoryRepo)
	accounts := service.NewAccountService(userRepo)
	listings := service.NewListingService(repository.NewListingRepository(gdb), categoryRepo, images)

	bySlug, err := seedCategories(ctx, categories)
	if err != nil {
		return err
	}
	users, err := seedUsers(ctx, accounts, userRepo)
	if err != nil {
		return err
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("listings already exist; skipping (set FORCE_SEED=true to override)")
		return nil
	}
	for _, it := range buildSeedListings() {
		cat, ok := bySlug[it.Category]
		if !ok {
			return fmt.Errorf("unknown category %q", it.Category)
		}
		_, err := listings.Create(ctx, users[it.Seller], service.ListingInput{
			CategoryID:  cat,
			Title:       it.Title,
			Description: it.Description,
			Price:       it.Price,
		})
		if err != nil {
			return fmt.Errorf("create listing %q: %w", it.Title, err)
		}
	}
	log.Printf("seeded %d categories, %d users, %d listings", len(bySlug), len(users), len(buildSeedListings()))
	return nil
}

// seedCategories creates missing categories and returns every category id by slug.
func seedCategories(ctx context.Context, svc service.CategoryService) (map[string]uint64, error) {
	existing, err := svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	bySlug := make(map[string]uint64, len(existing))
	byName := make(map[string]bool, len(existing))
	for _, c := range existing {
		bySlug[c.Slug] = c.ID
		byName[strings.ToLower(c.Name)] = true
	}
	for _, name := range categoryNames {
		if byName[strings.ToLower(name)] {
			continue
		}
		c := &model.Category{Name: name}
		if err := svc.Save(ctx, c); err != nil {
			return nil, fmt.Errorf("save category %q: %w", name, err)
		}
		bySlug[c.Slug] = c.ID
	}
	return bySlug, nil
}

func seedUsers(ctx context.Context, svc service.AccountService, repo repository.UserRepository) (map[string]uint64, error) {
	ids := make(map[string]uint64, len(demoUsers))
	for _, name := range demoUsers {
		u, err := repo.FindByUsername(ctx, name)
		if err == nil {
			ids[name] = u.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user %q: %w", name, err)
		}
		u, err = svc.Signup(ctx, service.SignupInput{
			Username:  name,
			Email:     name + "@example.com",
			Password1: demoPassword,
			Password2: demoPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("signup %q: %w", name, err)
		}
		ids[name] = u.ID
	}
	return ids, nil
}

func buildSeedListings() []seedListing {
	return []seedListing{
		{"alice", "furniture", "Oak desk chair", "Sturdy chair, fits under most dorm desks.", "35"},
		{"alice", "furniture", "IKEA bookshelf", "Five shelves, pick up only.", "20"},
		{"alice", "kitchen", "Rice cooker", "3 cup, works fine.", "15.50"},
		{"bob", "books", "Calculus: Early Transcendentals", "8th edition, some highlighting.", "40"},
		{"bob", "books", "Intro to Algorithms", "Hardcover, like new.", "55"},
		{"bob", "electronics", "USB-C monitor", "24 inch, one cable for power and video.", "90"},
		{"carol", "electronics", "Noise cancelling headphones", "Great for the library.", "70"},
		{"carol", "clothing", "Winter coat", "Size M, navy.", "45"},
		{"carol", "sports", "Yoga mat", "Barely used.", "10"},
	}
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Listing{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count listings: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	force := os.Getenv("FORCE_SEED")
	return strings.EqualFold(force, "true"), nil
}
