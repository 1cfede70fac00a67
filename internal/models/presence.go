package models

import (
	"time"

	"gorm.io/gorm"
)

// UserPresence is the persisted online flag and last-seen timestamp. The
// live roster of presence channels is in-memory (realtime.PresenceTracker);
// this row is what survives a restart and what other users read when the
// peer is offline.
type UserPresence struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	IsOnline   bool           `gorm:"default:false;index" json:"is_online"`
	LastSeenAt time.Time      `gorm:"not null;index" json:"last_seen_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (UserPresence) TableName() string {
	return "user_presence"
}
