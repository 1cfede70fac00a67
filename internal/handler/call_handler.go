package handler

import (
	"errors"
	"net/http"

	"chatline/internal/domain"
	"chatline/internal/middleware"
	"chatline/internal/models"
	"chatline/internal/repository"
	"chatline/internal/service"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	calls    *service.CallService
	chatRepo *repository.ChatRepository
}

func NewCallHandler(calls *service.CallService, chatRepo *repository.ChatRepository) *CallHandler {
	return &CallHandler{calls: calls, chatRepo: chatRepo}
}

func (h *CallHandler) Initiate(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		ChatID     uint   `json:"chat_id" binding:"required"`
		ReceiverID uint   `json:"receiver_id" binding:"required"`
		Type       string `json:"type" binding:"required,oneof=AUDIO VIDEO"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.chatRepo.IsActiveParticipant(req.ChatID, userID) || !h.chatRepo.IsActiveParticipant(req.ChatID, req.ReceiverID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "both peers must belong to the chat"})
		return
	}
	call, err := h.calls.Initiate(userID, req.ReceiverID, req.ChatID, req.Type)
	if err != nil {
		if errors.Is(err, domain.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "busy", "call": call})
			return
		}
		callError(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

func (h *CallHandler) Answer(c *gin.Context) {
	h.transition(c, h.calls.Answer)
}

func (h *CallHandler) Decline(c *gin.Context) {
	h.transition(c, h.calls.Decline)
}

func (h *CallHandler) End(c *gin.Context) {
	h.transition(c, h.calls.End)
}

func (h *CallHandler) Join(c *gin.Context) {
	userID := middleware.GetUserID(c)
	callID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.calls.JoinCall(callID, userID); err != nil {
		callError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CallHandler) Leave(c *gin.Context) {
	userID := middleware.GetUserID(c)
	callID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.calls.LeaveCall(callID, userID); err != nil {
		callError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CallHandler) Get(c *gin.Context) {
	callID, ok := paramID(c, "id")
	if !ok {
		return
	}
	call, err := h.calls.Get(callID)
	if err != nil {
		callError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h *CallHandler) transition(c *gin.Context, op func(callID, byUserID uint) (*models.Call, error)) {
	userID := middleware.GetUserID(c)
	callID, ok := paramID(c, "id")
	if !ok {
		return
	}
	call, err := op(callID, userID)
	if err != nil {
		callError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

func callError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "call is no longer in a state that allows this"})
	case errors.Is(err, domain.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "busy"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "call operation failed"})
	}
}
