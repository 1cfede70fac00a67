package models

import (
	"time"

	"gorm.io/gorm"
)

// Call rows are written only by the call service; once a terminal status
// (ENDED, MISSED, DECLINED, BUSY) is persisted the row never changes again.
type Call struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ChatID          uint           `gorm:"not null;index" json:"chat_id"`
	CallerID        uint           `gorm:"not null;index" json:"caller_id"`
	ReceiverID      uint           `gorm:"not null;index" json:"receiver_id"`
	Type            string         `gorm:"size:20;not null" json:"type"`         // AUDIO, VIDEO
	Status          string         `gorm:"size:20;not null;index" json:"status"` // INITIATED, RINGING, ANSWERED, ENDED, MISSED, DECLINED, BUSY
	StartedAt       time.Time      `json:"started_at"`
	AnsweredAt      *time.Time     `json:"answered_at"`
	EndedAt         *time.Time     `json:"ended_at"`
	DurationSeconds int            `json:"duration_seconds"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Chat     Chat `gorm:"foreignKey:ChatID" json:"-"`
	Caller   User `gorm:"foreignKey:CallerID" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}

type CallParticipant struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CallID    uint       `gorm:"not null;index" json:"call_id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Call Call `gorm:"foreignKey:CallID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (CallParticipant) TableName() string {
	return "call_participants"
}
