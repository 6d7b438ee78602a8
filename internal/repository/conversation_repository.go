package repository

import (
	"context"
	"time"

	"github.com/shinyyama/campus-market/internal/model"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(tx ConversationRepository) error) error
	Create(ctx context.Context, cv *model.Conversation) error
	FindForMember(ctx context.Context, listingID, uid uint64) (*model.Conversation, error)
	FindByIDForMember(ctx context.Context, id, uid uint64) (*model.Conversation, error)
	ListForMember(ctx context.Context, uid uint64) ([]model.Conversation, error)
	CreateMessage(ctx context.Context, msg *model.ConversationMessage) error
	ListMessages(ctx context.Context, convID uint64) ([]model.ConversationMessage, error)
	Touch(ctx context.Context, convID uint64, at time.Time) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) WithTx(ctx context.Context, fn func(tx ConversationRepository) error) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(&conversationRepository{db: tx})
	})
}

// Create inserts the conversation and its member links. Members must already exist.
func (r *conversationRepository) Create(ctx context.Context, cv *model.Conversation) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Omit("Listing", "Members.*").Create(cv).Error
}

func memberOf(db *gorm.DB, uid uint64) *gorm.DB {
	return db.Table("conversation_members").Select("conversation_id").Where("user_id = ?", uid)
}

// FindForMember returns the newest conversation about listingID that uid belongs to, or nil.
func (r *conversationRepository) FindForMember(ctx context.Context, listingID, uid uint64) (*model.Conversation, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Conversation
	if err := db.
		Where("listing_id = ? AND id IN (?)", listingID, memberOf(db, uid)).
		Order("modified_at DESC, id DESC").
		Limit(1).
		Find(&list).Error; err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r *conversationRepository) FindByIDForMember(ctx context.Context, id, uid uint64) (*model.Conversation, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var cv model.Conversation
	if err := db.
		Preload("Listing").
		Preload("Members").
		Where("id = ? AND id IN (?)", id, memberOf(db, uid)).
		First(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) ListForMember(ctx context.Context, uid uint64) ([]model.Conversation, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var list []model.Conversation
	if err := db.
		Preload("Listing").
		Preload("Members").
		Where("id IN (?)", memberOf(db, uid)).
		Order("modified_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) CreateMessage(ctx context.Context, msg *model.ConversationMessage) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Omit("CreatedBy").Create(msg).Error
}

func (r *conversationRepository) ListMessages(ctx context.Context, convID uint64) ([]model.ConversationMessage, error) {
	db, err := conn(ctx, r.db)
	if err != nil {
		return nil, err
	}
	var msgs []model.ConversationMessage
	if err := db.
		Preload("CreatedBy").
		Where("conversation_id = ?", convID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// Touch moves the conversation's recency marker to at.
func (r *conversationRepository) Touch(ctx context.Context, convID uint64, at time.Time) error {
	db, err := conn(ctx, r.db)
	if err != nil {
		return err
	}
	return db.Model(&model.Conversation{}).
		Where("id = ?", convID).
		UpdateColumn("modified_at", at).Error
}
