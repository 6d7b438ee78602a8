package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/shinyyama/campus-market/internal/config"
	"github.com/shinyyama/campus-market/internal/db"
	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
	"github.com/shinyyama/campus-market/internal/service"
	"github.com/shinyyama/campus-market/internal/storage"
)

type Options struct {
	TimeoutSeconds int  `env:"TIMEOUT_SECONDS" envDefault:"300"`
	ForceSeed      bool `env:"FORCE_SEED" envDefault:"false"` // replace existing images too
}

func main() {
	_ = godotenv.Load()

	var opts Options
	if err := env.Parse(&opts); err != nil {
		log.Fatalf("failed to parse env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.TimeoutSeconds)*time.Second)
	defer cancel()

	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("failed to get sql db: %v", err)
	}
	defer sqlDB.Close()

	images, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	listings := service.NewListingService(repository.NewListingRepository(gdb), repository.NewCategoryRepository(gdb), images)

	var targets []model.Listing
	q := gdb.WithContext(ctx).Model(&model.Listing{})
	if !opts.ForceSeed {
		q = q.Where("image_url IS NULL")
	}
	if err := q.Order("id").Find(&targets).Error; err != nil {
		log.Fatalf("failed to load listings: %v", err)
	}
	log.Printf("target listings=%d (force=%v)", len(targets), opts.ForceSeed)

	updated := 0
	for _, l := range targets {
		data, err := fetchPlaceholder(ctx, fmt.Sprintf("listing-%d", l.ID))
		if err != nil {
			log.Printf("[listing %d] placeholder failed: %v", l.ID, err)
			continue
		}
		_, err = listings.Update(ctx, l.ID, l.SellerID, service.ListingInput{
			Title:       l.Title,
			Description: l.Description,
			Price:       l.Price.StringFixed(2),
			IsSold:      l.IsSold,
			Image:       data,
		})
		if err != nil {
			log.Printf("[listing %d] update failed: %v", l.ID, err)
			continue
		}
		updated++
	}

	log.Printf("seed-images completed: %d of %d listings updated", updated, len(targets))
}

func fetchPlaceholder(ctx context.Context, seed string) ([]byte, error) {
	u := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", url.PathEscape(seed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("placeholder status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, storage.MaxImageSize+1))
}
