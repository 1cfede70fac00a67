package repository

import (
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"

	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create stores the chat and its initial participant set in one transaction.
// The creator becomes ADMIN on group chats.
func (r *ChatRepository) Create(chat *models.Chat, participantIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, uid := range participantIDs {
			role := domain.ChatRoleMember
			if chat.IsGroup && uid == chat.CreatedBy {
				role = domain.ChatRoleAdmin
			}
			p := &models.ChatParticipant{
				ChatID:   chat.ID,
				UserID:   uid,
				Role:     role,
				JoinedAt: now,
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChatRepository) GetByID(id uint) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.Preload("Participants").First(&chat, id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// IsActiveParticipant reports whether the user currently belongs to the chat
// (joined and not left). This is the single membership predicate behind
// channel authorization, fan-out and delivery-record creation.
func (r *ChatRepository) IsActiveParticipant(chatID, userID uint) bool {
	var count int64
	r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ? AND left_at IS NULL", chatID, userID).
		Count(&count)
	return count > 0
}

func (r *ChatRepository) ListParticipantIDs(chatID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND left_at IS NULL", chatID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListChatIDsForUser returns the ids of every chat the user is an active
// participant of. Used for the presence fan-out target set.
func (r *ChatRepository) ListChatIDsForUser(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ChatParticipant{}).
		Where("user_id = ? AND left_at IS NULL", userID).
		Pluck("chat_id", &ids).Error
	return ids, err
}

func (r *ChatRepository) ListChatsForUser(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.
		Joins("JOIN chat_participants ON chat_participants.chat_id = chats.id").
		Where("chat_participants.user_id = ? AND chat_participants.left_at IS NULL", userID).
		Preload("Participants", "left_at IS NULL").
		Find(&chats).Error
	return chats, err
}

func (r *ChatRepository) AddParticipant(chatID, userID uint) error {
	p := &models.ChatParticipant{
		ChatID:   chatID,
		UserID:   userID,
		Role:     domain.ChatRoleMember,
		JoinedAt: time.Now(),
	}
	return r.db.Create(p).Error
}

func (r *ChatRepository) Leave(chatID, userID uint) error {
	now := time.Now()
	return r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ? AND left_at IS NULL", chatID, userID).
		Update("left_at", now).Error
}

// ListContactIDs returns every user sharing at least one active chat with
// the given user. Statuses fan out to this set.
func (r *ChatRepository) ListContactIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ChatParticipant{}).
		Distinct("user_id").
		Where("user_id <> ? AND left_at IS NULL AND chat_id IN (?)",
			userID,
			r.db.Model(&models.ChatParticipant{}).
				Select("chat_id").
				Where("user_id = ? AND left_at IS NULL", userID),
		).
		Pluck("user_id", &ids).Error
	return ids, err
}
