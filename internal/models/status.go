package models

import (
	"time"

	"gorm.io/gorm"
)

// Status is ephemeral content. ExpiresAt is fixed at creation time
// (NewStatus); a status past its expiry is logically dead even before the
// scheduler purges the row.
type Status struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	MediaURL   string         `gorm:"size:512" json:"media_url"`
	Caption    string         `gorm:"size:512" json:"caption"`
	ExpiresAt  time.Time      `gorm:"not null;index" json:"expires_at"`
	ViewsCount int            `gorm:"default:0" json:"views_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Status) TableName() string {
	return "statuses"
}

// NewStatus sets the expiry explicitly rather than through a lifecycle hook.
func NewStatus(ownerID uint, mediaURL, caption string, ttl time.Duration) *Status {
	return &Status{
		UserID:    ownerID,
		MediaURL:  mediaURL,
		Caption:   caption,
		ExpiresAt: time.Now().Add(ttl),
	}
}

func (s *Status) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// StatusView exists at most once per (status, viewer); the composite unique
// index carries that invariant, the tracker only reacts to whether the
// insert actually happened.
type StatusView struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	StatusID uint      `gorm:"uniqueIndex:idx_status_viewer;not null" json:"status_id"`
	ViewerID uint      `gorm:"uniqueIndex:idx_status_viewer;not null;index" json:"viewer_id"`
	ViewedAt time.Time `json:"viewed_at"`

	Status Status `gorm:"foreignKey:StatusID" json:"-"`
	Viewer User   `gorm:"foreignKey:ViewerID" json:"-"`
}

func (StatusView) TableName() string {
	return "status_views"
}
