package repository

import (
	"errors"
	"time"

	"chatline/internal/models"

	"gorm.io/gorm"
)

type PresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func (r *PresenceRepository) GetByUserID(userID uint) (*models.UserPresence, error) {
	var p models.UserPresence
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetOnline upserts the persisted presence row. Last-seen always advances,
// so an offline user's row reads as "last seen at disconnect time".
func (r *PresenceRepository) SetOnline(userID uint, online bool) error {
	p, err := r.GetByUserID(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		p = &models.UserPresence{UserID: userID}
	}
	p.IsOnline = online
	p.LastSeenAt = time.Now()
	return r.db.Save(p).Error
}
