package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shinyyama/campus-market/internal/model"
	"github.com/shinyyama/campus-market/internal/repository"
	"gorm.io/gorm"
)

type ConversationService interface {
	// Open returns the listing and the actor's existing conversation about it, if any.
	Open(ctx context.Context, listingID, actorID uint64) (*model.Listing, *model.Conversation, error)
	// Start posts the first message of a new conversation. When the actor already
	// has a conversation about the listing it is returned untouched with created=false.
	Start(ctx context.Context, listingID, actorID uint64, content string) (cv *model.Conversation, created bool, err error)
	PostMessage(ctx context.Context, convID, actorID uint64, content string) (*model.ConversationMessage, error)
	Inbox(ctx context.Context, actorID uint64) ([]model.Conversation, error)
	Get(ctx context.Context, convID, actorID uint64) (*model.Conversation, []model.ConversationMessage, error)
}

type conversationService struct {
	convRepo    repository.ConversationRepository
	listingRepo repository.ListingRepository
	now         func() time.Time
}

func NewConversationService(convRepo repository.ConversationRepository, listingRepo repository.ListingRepository) ConversationService {
	return NewConversationServiceWithClock(convRepo, listingRepo, func() time.Time { return time.Now().UTC() })
}

func NewConversationServiceWithClock(convRepo repository.ConversationRepository, listingRepo repository.ListingRepository, now func() time.Time) ConversationService {
	return &conversationService{convRepo: convRepo, listingRepo: listingRepo, now: now}
}

func (s *conversationService) Open(ctx context.Context, listingID, actorID uint64) (*model.Listing, *model.Conversation, error) {
	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if listing.SellerID == actorID {
		return listing, nil, ErrOwnListing
	}
	cv, err := s.convRepo.FindForMember(ctx, listing.ID, actorID)
	if err != nil {
		return nil, nil, err
	}
	return listing, cv, nil
}

func (s *conversationService) Start(ctx context.Context, listingID, actorID uint64, content string) (*model.Conversation, bool, error) {
	listing, existing, err := s.Open(ctx, listingID, actorID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	content, err = messageContent(content)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	cv := &model.Conversation{
		ListingID:  listing.ID,
		Members:    []model.User{{ID: actorID}, {ID: listing.SellerID}},
		ModifiedAt: now.Truncate(time.Millisecond),
	}
	err = s.convRepo.WithTx(ctx, func(tx repository.ConversationRepository) error {
		if err := tx.Create(ctx, cv); err != nil {
			return err
		}
		_, err := s.appendMessage(ctx, tx, cv, actorID, content, now)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return cv, true, nil
}

func (s *conversationService) PostMessage(ctx context.Context, convID, actorID uint64, content string) (*model.ConversationMessage, error) {
	content, err := messageContent(content)
	if err != nil {
		return nil, err
	}
	var msg *model.ConversationMessage
	err = s.convRepo.WithTx(ctx, func(tx repository.ConversationRepository) error {
		cv, err := tx.FindByIDForMember(ctx, convID, actorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		msg, err = s.appendMessage(ctx, tx, cv, actorID, content, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// appendMessage inserts a message and moves the conversation's recency marker
// strictly past its previous value. Callers run it inside a transaction.
func (s *conversationService) appendMessage(ctx context.Context, tx repository.ConversationRepository, cv *model.Conversation, actorID uint64, content string, now time.Time) (*model.ConversationMessage, error) {
	msg := &model.ConversationMessage{
		ConversationID: cv.ID,
		CreatedByID:    actorID,
		Content:        content,
		CreatedAt:      now,
	}
	if err := tx.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	at := nextRecency(cv.ModifiedAt, now)
	if err := tx.Touch(ctx, cv.ID, at); err != nil {
		return nil, err
	}
	cv.ModifiedAt = at
	return msg, nil
}

// nextRecency returns now at millisecond precision, or one millisecond past prev
// when the clock has not moved beyond it.
func nextRecency(prev, now time.Time) time.Time {
	at := now.Truncate(time.Millisecond)
	if !at.After(prev) {
		at = prev.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return at
}

func (s *conversationService) Inbox(ctx context.Context, actorID uint64) ([]model.Conversation, error) {
	return s.convRepo.ListForMember(ctx, actorID)
}

func (s *conversationService) Get(ctx context.Context, convID, actorID uint64) (*model.Conversation, []model.ConversationMessage, error) {
	cv, err := s.convRepo.FindByIDForMember(ctx, convID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	msgs, err := s.convRepo.ListMessages(ctx, cv.ID)
	if err != nil {
		return nil, nil, err
	}
	return cv, msgs, nil
}

func messageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("content", msgRequired)
	}
	return content, nil
}
