package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/shinyyama/campus-market/internal/config"
	"github.com/shinyyama/campus-market/internal/db"
	"github.com/shinyyama/campus-market/internal/repository"
	"github.com/shinyyama/campus-market/internal/service"
	"github.com/shinyyama/campus-market/internal/storage"
)

// Options selects the image directory and who the imported listings belong to.
type Options struct {
	Dir      string `env:"SAMPLE_DIR" envDefault:"./sample-items"`
	Seller   string `env:"SAMPLE_SELLER" envDefault:"alice"`
	Category string `env:"SAMPLE_CATEGORY" envDefault:"furniture"` // slug
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	var opts Options
	if err := env.Parse(&opts); err != nil {
		return fmt.Errorf("parse options: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}

	userRepo := repository.NewUserRepository(gdb)
	categoryRepo := repository.NewCategoryRepository(gdb)
	listings := service.NewListingService(repository.NewListingRepository(gdb), categoryRepo, images)

	seller, err := userRepo.FindByUsername(ctx, opts.Seller)
	if err != nil {
		return fmt.Errorf("find seller %q: %w", opts.Seller, err)
	}
	category, err := categoryRepo.FindBySlug(ctx, opts.Category)
	if err != nil {
		return fmt.Errorf("find category %q: %w", opts.Category, err)
	}

	var paths []string
	for _, ext := range []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp"} {
		matches, err := filepath.Glob(filepath.Join(opts.Dir, ext))
		if err != nil {
			return fmt.Errorf("glob sample items: %w", err)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		log.Printf("no sample items found in %s", opts.Dir)
		return nil
	}

	owned, err := listings.ListBySeller(ctx, seller.ID)
	if err != nil {
		return fmt.Errorf("list seller listings: %w", err)
	}
	existing := make(map[string]bool, len(owned))
	for _, l := range owned {
		existing[l.Title] = true
	}

	basePrice := 20
	inserted, skipped := 0, 0
	for idx, p := range paths {
		filename := filepath.Base(p)
		title := toTitle(strings.TrimSuffix(filename, filepath.Ext(filename)))
		if existing[title] {
			skipped++
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", filename, err)
		}
		_, err = listings.Create(ctx, seller.ID, service.ListingInput{
			CategoryID:  category.ID,
			Title:       title,
			Description: fmt.Sprintf("%s - sample listing.", title),
			Price:       fmt.Sprint(basePrice + (idx*5)%50),
			Image:       data,
		})
		if err != nil {
			return fmt.Errorf("insert %s: %w", filename, err)
		}
		existing[title] = true
		inserted++
	}

	log.Printf("seed complete: inserted=%d skipped=%d total=%d", inserted, skipped, len(paths))
	return nil
}

func toTitle(base string) string {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(base)
	parts := strings.Fields(normalized)
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
