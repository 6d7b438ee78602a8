package repository

import (
	"context"
	"strings"

	"github.com/shinyyama/campus-market/internal/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, id uint64, firstName, lastName, email string) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return false, err
	}
	var cnt int64
	if err := db.Model(&model.User{}).
		Where("LOWER(username) = ?", strings.ToLower(username)).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint64, firstName, lastName, email string) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"first_name": firstName,
		"last_name":  lastName,
		"email":      email,
	}).Error
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Model(&model.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}
