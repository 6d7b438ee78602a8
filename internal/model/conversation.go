package model

import "time"

// Conversation is a thread about one listing. ModifiedAt moves forward on every
// message and is only ever written together with the message insert.
type Conversation struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ListingID  uint64    `gorm:"column:listing_id;not null;index"`
	Listing    Listing   `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	Members    []User    `gorm:"many2many:conversation_members;"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	ModifiedAt time.Time `gorm:"column:modified_at;not null;index"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasMember reports whether uid is one of the loaded members.
func (c *Conversation) HasMember(uid uint64) bool {
	if c == nil {
		return false
	}
	for _, m := range c.Members {
		if m.ID == uid {
			return true
		}
	}
	return false
}
