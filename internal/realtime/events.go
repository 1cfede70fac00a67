package realtime

import (
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"
)

// Envelope is the wire format published to channels.
type Envelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

func NewEnvelope(event string, data interface{}) Envelope {
	return Envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// DomainEvent is a tagged variant: each event knows its wire name, its
// destination channels and its payload. Channel resolution is pure; the
// participant sets are captured when the event is built, before any
// publishing happens.
type DomainEvent interface {
	Name() string
	Channels() []string
	Data() interface{}
}

// MessageSent fans out to the chat channel plus, for push purposes, the
// private channel of every participant except the sender.
type MessageSent struct {
	Message      *models.Message
	IsGroup      bool
	Participants []uint
}

func (e MessageSent) Name() string {
	if e.IsGroup {
		return domain.EventGroupMessageSent
	}
	return domain.EventMessageSent
}

func (e MessageSent) Channels() []string {
	chans := []string{ChatChannel(e.Message.ChatID)}
	for _, pid := range e.Participants {
		if pid != e.Message.SenderID {
			chans = append(chans, UserChannel(pid))
		}
	}
	return chans
}

func (e MessageSent) Data() interface{} { return e.Message }

// MessageRead notifies the chat that one recipient reached READ.
type MessageRead struct {
	MessageID uint      `json:"message_id"`
	ChatID    uint      `json:"chat_id"`
	ReaderID  uint      `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}

func (e MessageRead) Name() string       { return domain.EventMessageRead }
func (e MessageRead) Channels() []string { return []string{ChatChannel(e.ChatID)} }
func (e MessageRead) Data() interface{}  { return e }

// CallIncoming rings the receiver's private channel.
type CallIncoming struct {
	Call *models.Call
}

func (e CallIncoming) Name() string       { return domain.EventCallIncoming }
func (e CallIncoming) Channels() []string { return []string{UserChannel(e.Call.ReceiverID)} }
func (e CallIncoming) Data() interface{}  { return e.Call }

// CallAnswered goes to both peers.
type CallAnswered struct {
	Call *models.Call
}

func (e CallAnswered) Name() string { return domain.EventCallAnswered }
func (e CallAnswered) Channels() []string {
	return []string{UserChannel(e.Call.CallerID), UserChannel(e.Call.ReceiverID)}
}
func (e CallAnswered) Data() interface{} { return e.Call }

// CallRejected tells the caller the receiver declined.
type CallRejected struct {
	Call *models.Call
}

func (e CallRejected) Name() string       { return domain.EventCallRejected }
func (e CallRejected) Channels() []string { return []string{UserChannel(e.Call.CallerID)} }
func (e CallRejected) Data() interface{}  { return e.Call }

// CallEnded covers ENDED and MISSED; the payload status says which.
type CallEnded struct {
	Call *models.Call
}

func (e CallEnded) Name() string { return domain.EventCallEnded }
func (e CallEnded) Channels() []string {
	return []string{UserChannel(e.Call.CallerID), UserChannel(e.Call.ReceiverID)}
}
func (e CallEnded) Data() interface{} { return e.Call }

// StatusPosted fans out to everyone sharing a chat with the owner.
type StatusPosted struct {
	Status     *models.Status
	ContactIDs []uint
}

func (e StatusPosted) Name() string { return domain.EventStatusPosted }
func (e StatusPosted) Channels() []string {
	chans := make([]string, 0, len(e.ContactIDs))
	for _, pid := range e.ContactIDs {
		chans = append(chans, UserChannel(pid))
	}
	return chans
}
func (e StatusPosted) Data() interface{} { return e.Status }
