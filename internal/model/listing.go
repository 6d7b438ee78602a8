package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Listing struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	CategoryID  uint64          `gorm:"column:category_id;not null;index"`
	Category    Category        `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	Title       string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ImageURL    *string         `gorm:"column:image_url;size:512"`
	IsSold      bool            `gorm:"column:is_sold;not null;default:false;index"`
	SellerID    uint64          `gorm:"column:seller_id;not null;index"`
	Seller      User            `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}

// OwnedBy reports whether uid is the listing's seller.
func (l *Listing) OwnedBy(uid uint64) bool {
	return l != nil && uid != 0 && l.SellerID == uid
}
