package repository

import (
	"context"
	"strings"

	"github.com/shinyyama/campus-market/internal/model"
	"gorm.io/gorm"
)

// ListingFilter narrows the browse query. Zero values mean "no restriction".
type ListingFilter struct {
	Keyword    string
	CategoryID uint64
}

type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	FindOwned(ctx context.Context, id, sellerID uint64) (*model.Listing, error)
	Search(ctx context.Context, f ListingFilter) ([]model.Listing, error)
	Latest(ctx context.Context, limit int) ([]model.Listing, error)
	Related(ctx context.Context, l *model.Listing, limit int) ([]model.Listing, error)
	ListBySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, id, sellerID uint64) error
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func withRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Seller")
}

func (r *listingRepository) Create(ctx context.Context, l *model.Listing) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Omit("Category", "Seller").Create(l).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var l model.Listing
	if err := withRefs(db).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) FindOwned(ctx context.Context, id, sellerID uint64) (*model.Listing, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var l model.Listing
	if err := withRefs(db).
		Where("id = ? AND seller_id = ?", id, sellerID).
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) Search(ctx context.Context, f ListingFilter) ([]model.Listing, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	q := withRefs(db).Where("listings.is_sold = ?", false)
	if f.CategoryID != 0 {
		q = q.Where("listings.category_id = ?", f.CategoryID)
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		p := containsPattern(kw)
		// Case folding follows the database's LOWER; SQLite folds ASCII only.
		q = q.Where("(LOWER(listings.title) LIKE ? ESCAPE '!' OR LOWER(listings.description) LIKE ? ESCAPE '!')", p, p)
	}
	var list []model.Listing
	if err := q.Order("listings.created_at DESC, listings.id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepository) Latest(ctx context.Context, limit int) ([]model.Listing, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Listing
	if err := withRefs(db).
		Where("is_sold = ?", false).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepository) Related(ctx context.Context, l *model.Listing, limit int) ([]model.Listing, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Listing
	if err := withRefs(db).
		Where("category_id = ? AND is_sold = ? AND id <> ?", l.CategoryID, false, l.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepository) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Listing, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Listing
	if err := withRefs(db).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Update writes the seller-editable columns only.
func (r *listingRepository) Update(ctx context.Context, l *model.Listing) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Model(l).
		Where("seller_id = ?", l.SellerID).
		Select("title", "description", "price", "image_url", "is_sold", "updated_at").
		Updates(l).Error
}

// Delete removes a listing together with the conversations about it.
func (r *listingRepository) Delete(ctx context.Context, id, sellerID uint64) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var l model.Listing
		if err := tx.Where("id = ? AND seller_id = ?", id, sellerID).First(&l).Error; err != nil {
			return err
		}
		convIDs := tx.Model(&model.Conversation{}).Select("id").Where("listing_id = ?", id)
		if err := tx.Where("conversation_id IN (?)", convIDs).Delete(&model.ConversationMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM conversation_members WHERE conversation_id IN (?)", convIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", id).Delete(&model.Conversation{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&l)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
