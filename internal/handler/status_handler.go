package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatline/internal/domain"
	"chatline/internal/middleware"
	"chatline/internal/realtime"
	"chatline/internal/repository"
	"chatline/internal/service"
	"chatline/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

type StatusHandler struct {
	statuses *service.StatusService
	chatRepo *repository.ChatRepository
	fanout   *realtime.Fanout
	cloud    cloudinary.Client
}

func NewStatusHandler(statuses *service.StatusService, chatRepo *repository.ChatRepository, fanout *realtime.Fanout, cloud cloudinary.Client) *StatusHandler {
	return &StatusHandler{statuses: statuses, chatRepo: chatRepo, fanout: fanout, cloud: cloud}
}

// Create posts a status. Media arrives either as an already-uploaded URL in
// the JSON body or as a multipart file, which is pushed through Cloudinary
// first.
func (h *StatusHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var mediaURL, caption string

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		caption = c.PostForm("caption")
		file, header, err := c.Request.FormFile("media")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "media file required"})
			return
		}
		defer file.Close()
		publicID := fmt.Sprintf("status_%d_%d", userID, time.Now().UnixNano())
		if strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
			mediaURL, _, err = h.cloud.UploadVideo(c.Request.Context(), file, "statuses", publicID)
		} else {
			mediaURL, _, err = h.cloud.UploadImage(c.Request.Context(), file, "statuses", publicID)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}
	} else {
		var req struct {
			MediaURL string `json:"media_url"`
			Caption  string `json:"caption"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mediaURL, caption = req.MediaURL, req.Caption
	}
	if mediaURL == "" && caption == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty status"})
		return
	}
	status, err := h.statuses.Post(userID, mediaURL, caption)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	contactIDs, err := h.chatRepo.ListContactIDs(userID)
	if err == nil {
		h.fanout.Publish(realtime.StatusPosted{Status: status, ContactIDs: contactIDs})
	}
	c.JSON(http.StatusCreated, status)
}

// Feed lists the caller's and their contacts' unexpired statuses.
func (h *StatusHandler) Feed(c *gin.Context) {
	userID := middleware.GetUserID(c)
	contactIDs, err := h.chatRepo.ListContactIDs(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed failed"})
		return
	}
	statuses, err := h.statuses.Feed(userID, contactIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed failed"})
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// MarkViewed is idempotent: the second view of the same status returns
// is_new_view=false with a 200.
func (h *StatusHandler) MarkViewed(c *gin.Context) {
	userID := middleware.GetUserID(c)
	statusID, ok := paramID(c, "id")
	if !ok {
		return
	}
	isNew, err := h.statuses.RecordView(statusID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "status not found"})
		case errors.Is(err, domain.ErrExpired):
			c.JSON(http.StatusGone, gin.H{"error": "status expired"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "view failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_new_view": isNew})
}

// Viewers is owner-only.
func (h *StatusHandler) Viewers(c *gin.Context) {
	userID := middleware.GetUserID(c)
	statusID, ok := paramID(c, "id")
	if !ok {
		return
	}
	views, err := h.statuses.Viewers(statusID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "status not found"})
		case errors.Is(err, domain.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can list viewers"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "viewers failed"})
		}
		return
	}
	c.JSON(http.StatusOK, views)
}
