package repository

import (
	"time"

	"chatline/internal/models"

	"gorm.io/gorm"
)

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

func (r *CallRepository) Create(c *models.Call) error {
	return r.db.Create(c).Error
}

func (r *CallRepository) Update(c *models.Call) error {
	return r.db.Save(c).Error
}

func (r *CallRepository) GetByID(id uint) (*models.Call, error) {
	var c models.Call
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CallRepository) ListByChat(chatID uint, limit int) ([]models.Call, error) {
	var calls []models.Call
	err := r.db.Where("chat_id = ?", chatID).Order("id DESC").Limit(limit).Find(&calls).Error
	return calls, err
}

func (r *CallRepository) CreateParticipant(p *models.CallParticipant) error {
	return r.db.Create(p).Error
}

func (r *CallRepository) CloseParticipant(callID, userID uint, at time.Time) error {
	return r.db.Model(&models.CallParticipant{}).
		Where("call_id = ? AND user_id = ? AND left_at IS NULL", callID, userID).
		Update("left_at", at).Error
}

func (r *CallRepository) ListParticipants(callID uint) ([]models.CallParticipant, error) {
	var parts []models.CallParticipant
	err := r.db.Where("call_id = ?", callID).Find(&parts).Error
	return parts, err
}
