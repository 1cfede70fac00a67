package handler

import (
	"net/http"
	"strconv"

	"chatline/internal/domain"
	"chatline/internal/middleware"
	"chatline/internal/models"
	"chatline/internal/realtime"
	"chatline/internal/repository"
	"chatline/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatRepo *repository.ChatRepository
	msgRepo  *repository.MessageRepository
	delivery *service.DeliveryService
	fanout   *realtime.Fanout
}

func NewChatHandler(chatRepo *repository.ChatRepository, msgRepo *repository.MessageRepository, delivery *service.DeliveryService, fanout *realtime.Fanout) *ChatHandler {
	return &ChatHandler{chatRepo: chatRepo, msgRepo: msgRepo, delivery: delivery, fanout: fanout}
}

func (h *ChatHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		Name           string `json:"name"`
		IsGroup        bool   `json:"is_group"`
		ParticipantIDs []uint `json:"participant_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.IsGroup && len(req.ParticipantIDs) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direct chat takes exactly one other participant"})
		return
	}
	ids := append([]uint{userID}, req.ParticipantIDs...)
	chat := &models.Chat{Name: req.Name, IsGroup: req.IsGroup, CreatedBy: userID}
	if err := h.chatRepo.Create(chat, dedupe(ids)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (h *ChatHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chats, err := h.chatRepo.ListChatsForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) Leave(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !h.chatRepo.IsActiveParticipant(chatID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	if err := h.chatRepo.Leave(chatID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leave failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ChatHandler) AddParticipant(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chat, err := h.chatRepo.GetByID(chatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if !chat.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot add participants to a direct chat"})
		return
	}
	if !h.chatRepo.IsActiveParticipant(chatID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	if err := h.chatRepo.AddParticipant(chatID, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SendMessage stores the message, opens one delivery record per recipient
// and fans the event out. The delivery rows are created before publishing so
// a receipt racing the broadcast still finds its row.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content  string `json:"content"`
		MediaURL string `json:"media_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" && req.MediaURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}
	if !h.chatRepo.IsActiveParticipant(chatID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	chat, err := h.chatRepo.GetByID(chatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	participantIDs, err := h.chatRepo.ListParticipantIDs(chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	msg := &models.Message{ChatID: chatID, SenderID: userID, Content: req.Content, MediaURL: req.MediaURL}
	if err := h.msgRepo.Create(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	var recipients []models.MessageRecipient
	for _, pid := range participantIDs {
		if pid == userID {
			continue
		}
		recipients = append(recipients, models.MessageRecipient{
			MessageID:   msg.ID,
			RecipientID: pid,
			Status:      domain.DeliverySent,
		})
	}
	if err := h.msgRepo.CreateRecipients(recipients); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	h.fanout.Publish(realtime.MessageSent{Message: msg, IsGroup: chat.IsGroup, Participants: participantIDs})
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	chatID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !h.chatRepo.IsActiveParticipant(chatID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}
	before, _ := strconv.ParseUint(c.Query("before"), 10, 32)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	msgs, err := h.msgRepo.ListByChat(chatID, uint(before), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// MarkDelivered is the device-side delivery receipt. Safe to replay.
func (h *ChatHandler) MarkDelivered(c *gin.Context) {
	h.advance(c, domain.DeliveryDelivered)
}

// MarkRead advances the recipient's record to READ and, when that actually
// applied, notifies the chat.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	h.advance(c, domain.DeliveryRead)
}

func (h *ChatHandler) advance(c *gin.Context, status string) {
	userID := middleware.GetUserID(c)
	messageID, ok := paramID(c, "mid")
	if !ok {
		return
	}
	msg, err := h.msgRepo.GetByID(messageID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	applied, err := h.delivery.Advance(messageID, userID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if applied && status == domain.DeliveryRead {
		recs, _ := h.delivery.Recipients(messageID)
		for _, rec := range recs {
			if rec.RecipientID == userID && rec.ReadAt != nil {
				h.fanout.Publish(realtime.MessageRead{
					MessageID: messageID,
					ChatID:    msg.ChatID,
					ReaderID:  userID,
					ReadAt:    *rec.ReadAt,
				})
				break
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

// MessageInfo is the sender's "double-check" view: per-recipient records
// plus the derived overall status.
func (h *ChatHandler) MessageInfo(c *gin.Context) {
	userID := middleware.GetUserID(c)
	messageID, ok := paramID(c, "mid")
	if !ok {
		return
	}
	msg, err := h.msgRepo.GetByID(messageID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the sender"})
		return
	}
	overall, err := h.delivery.OverallStatus(messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status failed"})
		return
	}
	recs, err := h.delivery.Recipients(messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": messageID, "overall_status": overall, "recipients": recs})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
