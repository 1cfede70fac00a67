package realtime

import "time"

// Principal is the authenticated identity behind a connection, as resolved
// from the access token.
type Principal struct {
	ID       uint
	Username string
}

// MemberInfo is the roster payload embedded in presence grants and carried
// by the PresenceTracker.
type MemberInfo struct {
	UserID     uint       `json:"user_id"`
	Username   string     `json:"username"`
	AvatarURL  string     `json:"avatar_url"`
	IsOnline   bool       `json:"is_online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type DecisionKind int

const (
	Deny DecisionKind = iota
	AllowPrivate
	AllowPresence
)

// Decision is a normal outcome, not an error: Deny covers malformed names,
// unknown chats and non-members alike.
type Decision struct {
	Kind   DecisionKind
	Member *MemberInfo // set only for AllowPresence
}

func (d Decision) Allowed() bool { return d.Kind != Deny }

// ChatMembership is the membership predicate the authorizer consults for
// chat-scoped channels.
type ChatMembership interface {
	IsActiveParticipant(chatID, userID uint) bool
}

// ProfileDirectory resolves the member-info snapshot for presence grants.
type ProfileDirectory interface {
	Lookup(userID uint) (MemberInfo, error)
}

type Authorizer struct {
	chats    ChatMembership
	profiles ProfileDirectory
}

func NewAuthorizer(chats ChatMembership, profiles ProfileDirectory) *Authorizer {
	return &Authorizer{chats: chats, profiles: profiles}
}

// Authorize decides whether the principal may subscribe to the named
// channel. It never returns an error; anything that cannot be positively
// allowed is a Deny.
func (a *Authorizer) Authorize(p Principal, channelName string) Decision {
	ch, ok := ParseChannel(channelName)
	if !ok {
		return Decision{Kind: Deny}
	}
	switch ch.Type {
	case ChannelUser:
		if ch.ID == p.ID {
			return Decision{Kind: AllowPrivate}
		}
		return Decision{Kind: Deny}
	case ChannelChat:
		if a.chats.IsActiveParticipant(ch.ID, p.ID) {
			return Decision{Kind: AllowPrivate}
		}
		return Decision{Kind: Deny}
	case ChannelPresenceChat:
		if !a.chats.IsActiveParticipant(ch.ID, p.ID) {
			return Decision{Kind: Deny}
		}
		return Decision{Kind: AllowPresence, Member: a.memberInfo(p)}
	case ChannelPresenceUsers:
		// Any authenticated principal may watch the global roster.
		return Decision{Kind: AllowPresence, Member: a.memberInfo(p)}
	}
	return Decision{Kind: Deny}
}

func (a *Authorizer) memberInfo(p Principal) *MemberInfo {
	if a.profiles != nil {
		if info, err := a.profiles.Lookup(p.ID); err == nil {
			return &info
		}
	}
	// Directory miss still yields a usable roster entry.
	return &MemberInfo{UserID: p.ID, Username: p.Username}
}
