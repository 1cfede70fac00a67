package models

import (
	"time"

	"gorm.io/gorm"
)

type Message struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ChatID    uint           `gorm:"not null;index" json:"chat_id"`
	SenderID  uint           `gorm:"not null;index" json:"sender_id"`
	Content   string         `gorm:"type:text" json:"content"`
	MediaURL  string         `gorm:"size:512" json:"media_url"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Chat   Chat `gorm:"foreignKey:ChatID" json:"-"`
	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

// MessageRecipient is one delivery record per (message, recipient). The
// composite unique index is what makes status advancement idempotent under
// retransmission; status only moves SENT -> DELIVERED -> READ.
type MessageRecipient struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	MessageID   uint       `gorm:"uniqueIndex:idx_message_recipient;not null" json:"message_id"`
	RecipientID uint       `gorm:"uniqueIndex:idx_message_recipient;not null;index" json:"recipient_id"`
	Status      string     `gorm:"size:20;not null;index" json:"status"` // SENT, DELIVERED, READ
	DeliveredAt *time.Time `json:"delivered_at"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Message Message `gorm:"foreignKey:MessageID" json:"-"`
}

func (MessageRecipient) TableName() string {
	return "message_recipients"
}
