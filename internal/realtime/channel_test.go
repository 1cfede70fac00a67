package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Channel
		wantOK bool
	}{
		{"user channel", "user.7", Channel{Type: ChannelUser, ID: 7}, true},
		{"chat channel", "chat.42", Channel{Type: ChannelChat, ID: 42}, true},
		{"presence chat channel", "presence-chat.42", Channel{Type: ChannelPresenceChat, ID: 42}, true},
		{"global presence", "presence-users", Channel{Type: ChannelPresenceUsers}, true},
		{"unknown prefix", "room.1", Channel{}, false},
		{"empty", "", Channel{}, false},
		{"non-numeric id", "chat.abc", Channel{}, false},
		{"zero id", "user.0", Channel{}, false},
		{"negative id", "chat.-5", Channel{}, false},
		{"trailing junk", "chat.1.extra", Channel{}, false},
		{"bare prefix", "chat.", Channel{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseChannel(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChannel_PresenceChatNotShadowedByChat(t *testing.T) {
	// "presence-chat." must not parse as a chat channel.
	ch, ok := ParseChannel("presence-chat.9")
	assert.True(t, ok)
	assert.Equal(t, ChannelPresenceChat, ch.Type)
	assert.Equal(t, uint(9), ch.ID)
}

func TestChannelName_RoundTrip(t *testing.T) {
	for _, name := range []string{"user.3", "chat.12", "presence-chat.12", "presence-users"} {
		ch, ok := ParseChannel(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, ch.Name())
	}
}

func TestChannelIsPresence(t *testing.T) {
	assert.False(t, Channel{Type: ChannelUser, ID: 1}.IsPresence())
	assert.False(t, Channel{Type: ChannelChat, ID: 1}.IsPresence())
	assert.True(t, Channel{Type: ChannelPresenceChat, ID: 1}.IsPresence())
	assert.True(t, Channel{Type: ChannelPresenceUsers}.IsPresence())
}
