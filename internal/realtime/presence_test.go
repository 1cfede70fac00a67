package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"chatline/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames []Delivery
}

func (f *fakeTransport) Broadcast(channel string, data []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, Delivery{Channel: channel, Payload: data})
	return 1
}

func (f *fakeTransport) all() []Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Delivery, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeTransport) events(channel string) []string {
	var names []string
	for _, d := range f.all() {
		if d.Channel != channel {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(d.Payload, &env); err == nil {
			names = append(names, env.Event)
		}
	}
	return names
}

type fakeChatIndex struct {
	chats map[uint][]uint // userID -> chat IDs
}

func (f *fakeChatIndex) ListChatIDsForUser(userID uint) ([]uint, error) {
	return f.chats[userID], nil
}

func TestPresenceTracker_JoinLeave(t *testing.T) {
	transport := &fakeTransport{}
	tracker := NewPresenceTracker(transport, &fakeChatIndex{})
	channel := PresenceChatChannel(42)
	alice := MemberInfo{UserID: 1, Username: "alice"}

	tracker.Join(channel, alice)
	assert.Equal(t, []string{domain.EventMemberJoined}, transport.events(channel))
	assert.Len(t, tracker.Members(channel), 1)

	// Second device: no duplicate joined event, still one roster entry.
	tracker.Join(channel, alice)
	assert.Equal(t, []string{domain.EventMemberJoined}, transport.events(channel))
	assert.Len(t, tracker.Members(channel), 1)

	// First device drops: member stays.
	tracker.Leave(channel, 1)
	assert.Equal(t, []string{domain.EventMemberJoined}, transport.events(channel))
	assert.Len(t, tracker.Members(channel), 1)

	// Last device drops: member leaves.
	tracker.Leave(channel, 1)
	assert.Equal(t, []string{domain.EventMemberJoined, domain.EventMemberLeft}, transport.events(channel))
	assert.Empty(t, tracker.Members(channel))
}

func TestPresenceTracker_LeaveUnknownMember(t *testing.T) {
	transport := &fakeTransport{}
	tracker := NewPresenceTracker(transport, &fakeChatIndex{})
	tracker.Leave(PresenceChatChannel(42), 99)
	assert.Empty(t, transport.all())
}

func TestPresenceTracker_MembersSnapshot(t *testing.T) {
	tracker := NewPresenceTracker(&fakeTransport{}, &fakeChatIndex{})
	channel := PresenceChatChannel(7)
	tracker.Join(channel, MemberInfo{UserID: 1, Username: "alice"})
	tracker.Join(channel, MemberInfo{UserID: 2, Username: "bob"})

	members := tracker.Members(channel)
	require.Len(t, members, 2)
	ids := map[uint]bool{}
	for _, m := range members {
		ids[m.UserID] = true
	}
	assert.True(t, ids[1])
	assert.True(t, ids[2])
}

func TestPresenceTracker_SetTyping(t *testing.T) {
	transport := &fakeTransport{}
	tracker := NewPresenceTracker(transport, &fakeChatIndex{})

	tracker.SetTyping(42, 1, true)
	frames := transport.all()
	require.Len(t, frames, 1)
	assert.Equal(t, PresenceChatChannel(42), frames[0].Channel)

	var env Envelope
	require.NoError(t, json.Unmarshal(frames[0].Payload, &env))
	assert.Equal(t, domain.EventUserTyping, env.Event)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), data["chat_id"])
	assert.Equal(t, float64(1), data["user_id"])
	assert.Equal(t, true, data["is_typing"])
	assert.NotEmpty(t, env.Timestamp)
}

func TestPresenceTracker_BroadcastOnlineStatusChanged(t *testing.T) {
	transport := &fakeTransport{}
	tracker := NewPresenceTracker(transport, &fakeChatIndex{chats: map[uint][]uint{1: {10, 20}}})

	tracker.BroadcastOnlineStatusChanged(1, true)

	assert.Equal(t, []string{domain.EventUserStatusChanged}, transport.events(PresenceUsersChannel))
	assert.Equal(t, []string{domain.EventUserStatusChanged}, transport.events(PresenceChatChannel(10)))
	assert.Equal(t, []string{domain.EventUserStatusChanged}, transport.events(PresenceChatChannel(20)))
}

func TestPresenceTracker_OnlineFlagRefreshesRoster(t *testing.T) {
	transport := &fakeTransport{}
	tracker := NewPresenceTracker(transport, &fakeChatIndex{})
	tracker.Join(PresenceUsersChannel, MemberInfo{UserID: 1, Username: "alice", IsOnline: true})

	tracker.BroadcastOnlineStatusChanged(1, false)

	members := tracker.Members(PresenceUsersChannel)
	require.Len(t, members, 1)
	assert.False(t, members[0].IsOnline)
	assert.NotNil(t, members[0].LastSeenAt)
}

func TestPresenceTracker_ConcurrentJoinLeave(t *testing.T) {
	transport := &fakeTransport{}
	tracker := NewPresenceTracker(transport, &fakeChatIndex{})
	channel := PresenceChatChannel(1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Join(channel, MemberInfo{UserID: 1, Username: "alice"})
		}()
	}
	wg.Wait()

	// Sixteen devices, one member, one joined event.
	assert.Len(t, tracker.Members(channel), 1)
	assert.Equal(t, []string{domain.EventMemberJoined}, transport.events(channel))

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Leave(channel, 1)
		}()
	}
	wg.Wait()

	assert.Empty(t, tracker.Members(channel))
	assert.Equal(t, []string{domain.EventMemberJoined, domain.EventMemberLeft}, transport.events(channel))
}
