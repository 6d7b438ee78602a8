package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
	"github.com/shinyyama/campus-market/internal/storage"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	HomepageListings = 6
	RelatedListings  = 3
	priceMaxDigits   = 10
	pricePlaces      = 2
)

// ListingInput is a submitted create or edit form. CategoryID is only read on
// create and IsSold only on edit. A nil Image keeps the current one.
type ListingInput struct {
	CategoryID  uint64
	Title       string
	Description string
	Price       string
	IsSold      bool
	Image       []byte
}

type ListingService interface {
	Search(ctx context.Context, keyword string, categoryID uint64) ([]model.Listing, error)
	Latest(ctx context.Context) ([]model.Listing, error)
	Get(ctx context.Context, id uint64) (*model.Listing, error)
	Related(ctx context.Context, l *model.Listing) ([]model.Listing, error)
	ListBySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error)
	Create(ctx context.Context, sellerID uint64, in ListingInput) (*model.Listing, error)
	// GetOwned, Update and Delete report ErrNotFound for listings the actor does not own.
	GetOwned(ctx context.Context, id, actorID uint64) (*model.Listing, error)
	Update(ctx context.Context, id, actorID uint64, in ListingInput) (*model.Listing, error)
	Delete(ctx context.Context, id, actorID uint64) error
}

type listingService struct {
	repo       repository.ListingRepository
	categories repository.CategoryRepository
	images     storage.ImageStore
}

func NewListingService(repo repository.ListingRepository, categories repository.CategoryRepository, images storage.ImageStore) ListingService {
	return &listingService{repo: repo, categories: categories, images: images}
}

func (s *listingService) Search(ctx context.Context, keyword string, categoryID uint64) ([]model.Listing, error) {
	return s.repo.Search(ctx, repository.ListingFilter{Keyword: strings.TrimSpace(keyword), CategoryID: categoryID})
}

func (s *listingService) Latest(ctx context.Context) ([]model.Listing, error) {
	return s.repo.Latest(ctx, HomepageListings)
}

func (s *listingService) Get(ctx context.Context, id uint64) (*model.Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *listingService) Related(ctx context.Context, l *model.Listing) ([]model.Listing, error) {
	return s.repo.Related(ctx, l, RelatedListings)
}

func (s *listingService) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

func (s *listingService) Create(ctx context.Context, sellerID uint64, in ListingInput) (*model.Listing, error) {
	l := &model.Listing{SellerID: sellerID}
	contentType, err := s.apply(ctx, l, in, true)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		url, err := s.images.Save(ctx, in.Image, contentType)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		l.ImageURL = &url
	}
	if err := s.repo.Create(ctx, l); err != nil {
		s.discardImage(ctx, l.ImageURL)
		return nil, err
	}
	return s.Get(ctx, l.ID)
}

func (s *listingService) GetOwned(ctx context.Context, id, actorID uint64) (*model.Listing, error) {
	l, err := s.repo.FindOwned(ctx, id, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *listingService) Update(ctx context.Context, id, actorID uint64, in ListingInput) (*model.Listing, error) {
	l, err := s.GetOwned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	previous := l.ImageURL
	contentType, err := s.apply(ctx, l, in, false)
	if err != nil {
		return nil, err
	}
	l.IsSold = in.IsSold
	if contentType != "" {
		url, err := s.images.Save(ctx, in.Image, contentType)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		l.ImageURL = &url
	}
	if err := s.repo.Update(ctx, l); err != nil {
		if l.ImageURL != previous {
			s.discardImage(ctx, l.ImageURL)
		}
		return nil, err
	}
	if l.ImageURL != previous {
		s.discardImage(ctx, previous)
	}
	return s.Get(ctx, l.ID)
}

func (s *listingService) Delete(ctx context.Context, id, actorID uint64) error {
	l, err := s.GetOwned(ctx, id, actorID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, l.ID, actorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.discardImage(ctx, l.ImageURL)
	return nil
}

// apply validates in and copies it onto l. It returns the sniffed content type of
// an uploaded image, or "" when none was sent.
func (s *listingService) apply(ctx context.Context, l *model.Listing, in ListingInput, withCategory bool) (string, error) {
	v := &ValidationError{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		v.Add("title", msgRequired)
	case utf8.RuneCountInString(title) > 255:
		v.Add("title", "Ensure this value has at most 255 characters.")
	}

	price, msg := parsePrice(in.Price)
	if msg != "" {
		v.Add("price", msg)
	}

	if withCategory {
		if in.CategoryID == 0 {
			v.Add("category", msgRequired)
		} else if _, err := s.categories.FindByID(ctx, in.CategoryID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return "", err
			}
			v.Add("category", msgInvalidChoice)
		}
	}

	var contentType string
	if len(in.Image) > 0 {
		ct, err := storage.Detect(in.Image)
		switch {
		case errors.Is(err, storage.ErrImageTooLarge):
			v.Add("image", fmt.Sprintf("Ensure the image is at most %d MB.", storage.MaxImageSize>>20))
		case err != nil:
			v.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		default:
			contentType = ct
		}
	}

	if err := v.Err(); err != nil {
		return "", err
	}
	l.Title = title
	l.Description = strings.TrimSpace(in.Description)
	l.Price = price
	if withCategory {
		l.CategoryID = in.CategoryID
	}
	return contentType, nil
}

// parsePrice accepts a non-negative amount with at most two decimal places that fits decimal(10,2).
func parsePrice(raw string) (decimal.Decimal, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, msgRequired
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "Enter a number."
	}
	if d.IsNegative() {
		return decimal.Zero, "Ensure this value is greater than or equal to 0."
	}
	if d.Exponent() < -pricePlaces && !d.Equal(d.Round(pricePlaces)) {
		return decimal.Zero, fmt.Sprintf("Ensure that there are no more than %d decimal places.", pricePlaces)
	}
	whole := d.Truncate(0).String()
	if len(whole) > priceMaxDigits-pricePlaces {
		return decimal.Zero, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", priceMaxDigits-pricePlaces)
	}
	return d.Round(pricePlaces), ""
}

func (s *listingService) discardImage(ctx context.Context, url *string) {
	if url == nil {
		return
	}
	if err := s.images.Delete(ctx, *url); err != nil {
		slog.WarnContext(ctx, "failed to delete listing image", "url", *url, "error", err)
	}
}
