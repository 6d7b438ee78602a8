package model

import "time"

type ConversationMessage struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64    `gorm:"column:conversation_id;not null;index"`
	Content        string    `gorm:"type:text;not null"`
	CreatedByID    uint64    `gorm:"column:created_by_id;not null;index"`
	CreatedBy      User      `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
