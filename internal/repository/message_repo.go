package repository

import (
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(m *models.Message) error {
	return r.db.Create(m).Error
}

func (r *MessageRepository) GetByID(id uint) (*models.Message, error) {
	var m models.Message
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) ListByChat(chatID uint, before uint, limit int) ([]models.Message, error) {
	q := r.db.Where("chat_id = ?", chatID).Order("id DESC").Limit(limit)
	if before > 0 {
		q = q.Where("id < ?", before)
	}
	var msgs []models.Message
	err := q.Find(&msgs).Error
	return msgs, err
}

func (r *MessageRepository) CreateRecipients(recipients []models.MessageRecipient) error {
	if len(recipients) == 0 {
		return nil
	}
	return r.db.Create(&recipients).Error
}

// AdvanceRecipient conditionally moves one delivery record forward. The
// WHERE clause restricts the update to rows still behind the new status, so
// concurrent duplicates resolve at the database without any lock here:
// exactly one call observes RowsAffected == 1.
func (r *MessageRepository) AdvanceRecipient(messageID, recipientID uint, newStatus string, behind []string, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": newStatus}
	switch newStatus {
	case domain.DeliveryDelivered:
		updates["delivered_at"] = at
	case domain.DeliveryRead:
		updates["read_at"] = at
	}
	res := r.db.Model(&models.MessageRecipient{}).
		Where("message_id = ? AND recipient_id = ? AND status IN ?", messageID, recipientID, behind).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *MessageRepository) ListRecipients(messageID uint) ([]models.MessageRecipient, error) {
	var recs []models.MessageRecipient
	err := r.db.Where("message_id = ?", messageID).Find(&recs).Error
	return recs, err
}
