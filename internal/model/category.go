package model

import "time"

// SlugMaxLength is the column width of categories.slug.
const SlugMaxLength = 50

type Category struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:255;not null"`
	Slug      string    `gorm:"size:50;not null;uniqueIndex:uk_categories_slug"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Category) TableName() string {
	return "categories"
}
