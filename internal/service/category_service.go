package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
	"github.com/shinyyama/campus-market/internal/slug"
	"gorm.io/gorm"
)

const categorySlugFallback = "category"

type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id uint64) (*model.Category, error)
	// Save creates or updates c. An empty slug is derived from the name once and kept afterwards.
	Save(ctx context.Context, c *model.Category) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.repo.List(ctx)
}

func (s *categoryService) Get(ctx context.Context, id uint64) (*model.Category, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *categoryService) Save(ctx context.Context, c *model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name", msgRequired)
	}
	if utf8.RuneCountInString(c.Name) > 255 {
		return invalid("name", "Ensure this value has at most 255 characters.")
	}
	if c.Slug == "" {
		id := c.ID
		generated, err := slug.Unique(ctx, c.Name, categorySlugFallback, func(ctx context.Context, candidate string) (bool, error) {
			return s.repo.SlugTaken(ctx, candidate, id)
		})
		if err != nil {
			return err
		}
		c.Slug = generated
	}
	if c.ID == 0 {
		return s.repo.Create(ctx, c)
	}
	return s.repo.Save(ctx, c)
}
