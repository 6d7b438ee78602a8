package model

import (
	"strings"
	"time"
)

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:150;not null;uniqueIndex:uk_users_username"`
	Email        string    `gorm:"size:254;not null;default:''"`
	FirstName    string    `gorm:"size:150;not null;default:''"`
	LastName     string    `gorm:"size:150;not null;default:''"`
	PasswordHash string    `gorm:"column:password_hash;size:60;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the username when no name is set.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}
