package realtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel identifies a broadcast destination. Channels are never persisted;
// a name parses to exactly one (type, scope) pair and every name maps to
// exactly one authorization predicate.
type ChannelType int

const (
	ChannelInvalid       ChannelType = iota
	ChannelUser                      // user.<id>: one user's private event stream
	ChannelChat                      // chat.<id>: private chat stream
	ChannelPresenceChat              // presence-chat.<id>: chat stream with live roster
	ChannelPresenceUsers             // presence-users: global online roster
)

type Channel struct {
	Type ChannelType
	ID   uint // zero for presence-users
}

const PresenceUsersChannel = "presence-users"

func UserChannel(id uint) string         { return fmt.Sprintf("user.%d", id) }
func ChatChannel(id uint) string         { return fmt.Sprintf("chat.%d", id) }
func PresenceChatChannel(id uint) string { return fmt.Sprintf("presence-chat.%d", id) }

func (c Channel) Name() string {
	switch c.Type {
	case ChannelUser:
		return UserChannel(c.ID)
	case ChannelChat:
		return ChatChannel(c.ID)
	case ChannelPresenceChat:
		return PresenceChatChannel(c.ID)
	case ChannelPresenceUsers:
		return PresenceUsersChannel
	}
	return ""
}

func (c Channel) IsPresence() bool {
	return c.Type == ChannelPresenceChat || c.Type == ChannelPresenceUsers
}

// ParseChannel maps a channel name to its Channel. ok is false for anything
// malformed; callers treat that exactly like a membership refusal.
func ParseChannel(name string) (Channel, bool) {
	if name == PresenceUsersChannel {
		return Channel{Type: ChannelPresenceUsers}, true
	}
	var typ ChannelType
	var rest string
	switch {
	case strings.HasPrefix(name, "presence-chat."):
		typ, rest = ChannelPresenceChat, strings.TrimPrefix(name, "presence-chat.")
	case strings.HasPrefix(name, "chat."):
		typ, rest = ChannelChat, strings.TrimPrefix(name, "chat.")
	case strings.HasPrefix(name, "user."):
		typ, rest = ChannelUser, strings.TrimPrefix(name, "user.")
	default:
		return Channel{}, false
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil || id == 0 {
		return Channel{}, false
	}
	return Channel{Type: typ, ID: uint(id)}, true
}
