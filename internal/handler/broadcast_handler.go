package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"chatline/config"
	"chatline/internal/middleware"
	"chatline/internal/realtime"

	"github.com/gin-gonic/gin"
)

// BroadcastHandler hands out signed channel grants. The signature scheme is
// key:HMAC-SHA256(secret, "<socket_id>:<channel>") with the member-info JSON
// appended for presence channels, so the transport can verify a grant
// without a callback.
type BroadcastHandler struct {
	cfg        *config.BroadcastConfig
	authorizer *realtime.Authorizer
}

func NewBroadcastHandler(cfg *config.BroadcastConfig, authorizer *realtime.Authorizer) *BroadcastHandler {
	return &BroadcastHandler{cfg: cfg, authorizer: authorizer}
}

func (h *BroadcastHandler) Auth(c *gin.Context) {
	var req struct {
		ChannelName string `json:"channel_name" binding:"required"`
		SocketID    string `json:"socket_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	principal := realtime.Principal{
		ID:       middleware.GetUserID(c),
		Username: middleware.GetUsername(c),
	}
	decision := h.authorizer.Authorize(principal, req.ChannelName)
	switch decision.Kind {
	case realtime.AllowPrivate:
		c.JSON(http.StatusOK, gin.H{
			"auth": h.sign(req.SocketID + ":" + req.ChannelName),
		})
	case realtime.AllowPresence:
		channelData, err := json.Marshal(decision.Member)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "grant failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"auth":         h.sign(req.SocketID + ":" + req.ChannelName + ":" + string(channelData)),
			"channel_data": string(channelData),
		})
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func (h *BroadcastHandler) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(h.cfg.AppSecret))
	mac.Write([]byte(payload))
	return h.cfg.AppKey + ":" + hex.EncodeToString(mac.Sum(nil))
}
