package models

import (
	"time"

	"gorm.io/gorm"
)

type Chat struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:128" json:"name"` // empty for 1:1 chats
	IsGroup   bool           `gorm:"default:false;index" json:"is_group"`
	AvatarURL string         `gorm:"size:512" json:"avatar_url"`
	CreatedBy uint           `gorm:"not null;index" json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Participants []ChatParticipant `gorm:"foreignKey:ChatID" json:"participants,omitempty"`
}

// ChatParticipant ties a user to a chat. A row with LeftAt set is kept for
// history but no longer counts as membership anywhere (channel auth,
// fan-out, delivery records).
type ChatParticipant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ChatID    uint           `gorm:"uniqueIndex:idx_chat_user;not null" json:"chat_id"`
	UserID    uint           `gorm:"uniqueIndex:idx_chat_user;not null;index" json:"user_id"`
	Role      string         `gorm:"size:20;not null;default:'MEMBER'" json:"role"` // MEMBER, ADMIN
	JoinedAt  time.Time      `json:"joined_at"`
	LeftAt    *time.Time     `json:"left_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Chat Chat `gorm:"foreignKey:ChatID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}

func (p *ChatParticipant) Active() bool { return p.LeftAt == nil }
