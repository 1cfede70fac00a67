package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"chatline/internal/domain"
)

// ChatIndex supplies the fan-out target set for online-status changes: every
// chat the user actively belongs to.
type ChatIndex interface {
	ListChatIDsForUser(userID uint) ([]uint, error)
}

// PresenceTracker holds the live roster of each presence channel. It tracks
// membership, never subscriptions: connection ownership stays with the hub,
// the tracker only counts connections per principal so that a multi-device
// user stays in the roster until the last device disconnects.
type PresenceTracker struct {
	mu        sync.RWMutex
	rosters   map[string]*roster
	transport Transport
	chats     ChatIndex
}

type roster struct {
	mu      sync.Mutex
	members map[uint]*presenceEntry
}

type presenceEntry struct {
	info  MemberInfo
	conns int
}

func NewPresenceTracker(transport Transport, chats ChatIndex) *PresenceTracker {
	return &PresenceTracker{
		rosters:   make(map[string]*roster),
		transport: transport,
		chats:     chats,
	}
}

func (t *PresenceTracker) getRoster(channel string) *roster {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rosters[channel]
	if !ok {
		r = &roster{members: make(map[uint]*presenceEntry)}
		t.rosters[channel] = r
	}
	return r
}

// Join adds (or refreshes) the member and bumps its connection count.
// "member joined" is emitted only when the member newly appears; a second
// device joining an existing member just refreshes the metadata snapshot.
func (t *PresenceTracker) Join(channel string, member MemberInfo) {
	r := t.getRoster(channel)
	r.mu.Lock()
	entry, ok := r.members[member.UserID]
	if !ok {
		entry = &presenceEntry{}
		r.members[member.UserID] = entry
	}
	entry.info = member
	entry.conns++
	first := entry.conns == 1
	r.mu.Unlock()
	if first {
		t.emit(channel, domain.EventMemberJoined, member)
	}
}

// Leave drops one connection for the principal; the member leaves the
// roster only when its last connection is gone.
func (t *PresenceTracker) Leave(channel string, userID uint) {
	r := t.getRoster(channel)
	r.mu.Lock()
	entry, ok := r.members[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry.conns--
	last := entry.conns <= 0
	if last {
		delete(r.members, userID)
	}
	r.mu.Unlock()
	if last {
		t.emit(channel, domain.EventMemberLeft, map[string]interface{}{"user_id": userID})
	}
}

// Members returns a roster snapshot, used for the initial payload after a
// presence subscription succeeds.
func (t *PresenceTracker) Members(channel string) []MemberInfo {
	r := t.getRoster(channel)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MemberInfo, 0, len(r.members))
	for _, e := range r.members {
		out = append(out, e.info)
	}
	return out
}

// SetTyping emits an ephemeral typing event. Nothing is retained and no
// timeout runs here; the receiving UI clears the indicator on its own after
// a quiet period.
func (t *PresenceTracker) SetTyping(chatID, userID uint, isTyping bool) {
	t.emit(PresenceChatChannel(chatID), domain.EventUserTyping, map[string]interface{}{
		"chat_id":   chatID,
		"user_id":   userID,
		"is_typing": isTyping,
	})
}

// BroadcastOnlineStatusChanged announces an online flag flip to the global
// roster and to every presence-chat channel of the user's active chats.
func (t *PresenceTracker) BroadcastOnlineStatusChanged(userID uint, isOnline bool) {
	now := time.Now().UTC()
	payload := map[string]interface{}{
		"user_id":      userID,
		"is_online":    isOnline,
		"last_seen_at": now.Format(time.RFC3339),
	}
	t.markOnline(PresenceUsersChannel, userID, isOnline, now)
	t.emit(PresenceUsersChannel, domain.EventUserStatusChanged, payload)
	chatIDs, err := t.chats.ListChatIDsForUser(userID)
	if err != nil {
		log.Printf("[presence] chat list for user %d: %v", userID, err)
		return
	}
	for _, chatID := range chatIDs {
		t.emit(PresenceChatChannel(chatID), domain.EventUserStatusChanged, payload)
	}
}

// markOnline refreshes the roster copy of the member's online flag so later
// presence grants read the current value.
func (t *PresenceTracker) markOnline(channel string, userID uint, online bool, at time.Time) {
	r := t.getRoster(channel)
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.members[userID]; ok {
		entry.info.IsOnline = online
		entry.info.LastSeenAt = &at
	}
}

func (t *PresenceTracker) emit(channel, event string, data interface{}) {
	payload, err := json.Marshal(NewEnvelope(event, data))
	if err != nil {
		log.Printf("[presence] marshal %s: %v", event, err)
		return
	}
	t.transport.Broadcast(channel, payload)
}
