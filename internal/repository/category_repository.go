package repository

import (
	"context"

	"github.com/shinyyama/campus-market/internal/model"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	Save(ctx context.Context, c *model.Category) error
	FindByID(ctx context.Context, id uint64) (*model.Category, error)
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	// SlugTaken reports whether a category other than excludeID owns slug.
	SlugTaken(ctx context.Context, slug string, excludeID uint64) (bool, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(c).Error
}

func (r *categoryRepository) Save(ctx context.Context, c *model.Category) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Save(c).Error
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint64) (*model.Category, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var c model.Category
	if err := db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var c model.Category
	if err := db.Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Category
	if err := db.Order("name ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *categoryRepository) SlugTaken(ctx context.Context, slug string, excludeID uint64) (bool, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return false, err
	}
	q := db.Model(&model.Category{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
