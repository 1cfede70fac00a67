package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"chatline/config"
	"chatline/internal/auth"
	"chatline/internal/realtime"
	"chatline/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsFrame struct {
	Type     string `json:"type"` // subscribe, unsubscribe, typing
	Channel  string `json:"channel,omitempty"`
	ChatID   uint   `json:"chat_id,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// RealtimeWS upgrades to the event socket. The client authenticates with
// ?token=, then subscribes to channels frame by frame; every subscribe goes
// through the channel authorizer. The user flips online on their first open
// connection and offline when the last one drops.
func RealtimeWS(cfg *config.JWTConfig, hub *realtime.Hub, tracker *realtime.PresenceTracker, authorizer *realtime.Authorizer, presenceRepo *repository.PresenceRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		principal := realtime.Principal{ID: claims.UserID, Username: claims.Username}
		client := realtime.NewClient(claims.UserID, claims.Username)
		if first := hub.Register(client); first {
			if err := presenceRepo.SetOnline(claims.UserID, true); err != nil {
				log.Printf("[ws] persist online for user %d: %v", claims.UserID, err)
			}
			tracker.BroadcastOnlineStatusChanged(claims.UserID, true)
		}
		defer func() {
			channels := client.Channels()
			last := hub.Unregister(client)
			for _, name := range channels {
				if ch, ok := realtime.ParseChannel(name); ok && ch.IsPresence() {
					tracker.Leave(name, claims.UserID)
				}
			}
			client.Close()
			if last {
				if err := presenceRepo.SetOnline(claims.UserID, false); err != nil {
					log.Printf("[ws] persist offline for user %d: %v", claims.UserID, err)
				}
				tracker.BroadcastOnlineStatusChanged(claims.UserID, false)
			}
		}()

		go func() {
			ticker := time.NewTicker(wsPingPeriod)
			defer ticker.Stop()
			for {
				select {
				case msg, ok := <-client.Send:
					if !ok {
						return
					}
					conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()

		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var frame wsFrame
			if json.Unmarshal(raw, &frame) != nil {
				continue
			}
			switch frame.Type {
			case "subscribe":
				handleSubscribe(hub, tracker, authorizer, client, principal, frame.Channel)
			case "unsubscribe":
				if hub.Unsubscribe(client, frame.Channel) {
					if ch, ok := realtime.ParseChannel(frame.Channel); ok && ch.IsPresence() {
						tracker.Leave(frame.Channel, principal.ID)
					}
				}
			case "typing":
				// Typing is scoped to the presence channel of the chat;
				// only a current subscriber may emit it.
				name := realtime.PresenceChatChannel(frame.ChatID)
				for _, sub := range client.Channels() {
					if sub == name {
						tracker.SetTyping(frame.ChatID, principal.ID, frame.IsTyping)
						break
					}
				}
			}
		}
	}
}

func handleSubscribe(hub *realtime.Hub, tracker *realtime.PresenceTracker, authorizer *realtime.Authorizer, client *realtime.Client, principal realtime.Principal, channel string) {
	decision := authorizer.Authorize(principal, channel)
	if !decision.Allowed() {
		sendFrame(client, "subscription.denied", map[string]interface{}{"channel": channel})
		return
	}
	if !hub.Subscribe(client, channel) {
		return // already subscribed
	}
	var members []realtime.MemberInfo
	if decision.Kind == realtime.AllowPresence {
		tracker.Join(channel, *decision.Member)
		members = tracker.Members(channel)
	}
	sendFrame(client, "subscription.succeeded", map[string]interface{}{
		"channel": channel,
		"members": members,
	})
}

func sendFrame(client *realtime.Client, event string, data interface{}) {
	payload, err := json.Marshal(realtime.NewEnvelope(event, data))
	if err != nil {
		return
	}
	client.TrySend(payload)
}
