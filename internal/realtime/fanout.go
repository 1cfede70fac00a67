package realtime

import (
	"encoding/json"
	"log"
)

// Transport delivers a serialized envelope to every current subscriber of a
// channel and reports how many clients it reached.
type Transport interface {
	Broadcast(channel string, data []byte) int
}

// PushSender mirrors user-channel events to an out-of-band push transport
// (FCM) for clients without an open socket. Best effort.
type PushSender interface {
	Push(userID uint, env Envelope)
}

// Delivery records one (channel, payload) dispatch of a publish.
type Delivery struct {
	Channel string
	Payload []byte
}

// Fanout resolves a domain event to its destination channels and publishes
// the envelope to each. Publishing is fire-and-forget: the state transition
// that produced the event has already happened and is never rolled back
// here, whatever the transport does.
type Fanout struct {
	transport Transport
	push      PushSender
}

func NewFanout(transport Transport, push PushSender) *Fanout {
	return &Fanout{transport: transport, push: push}
}

func (f *Fanout) Publish(ev DomainEvent) []Delivery {
	env := NewEnvelope(ev.Name(), ev.Data())
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[fanout] marshal %s: %v", ev.Name(), err)
		return nil
	}
	channels := ev.Channels()
	dispatched := make([]Delivery, 0, len(channels))
	for _, name := range channels {
		f.transport.Broadcast(name, data)
		dispatched = append(dispatched, Delivery{Channel: name, Payload: data})
		if f.push == nil {
			continue
		}
		if ch, ok := ParseChannel(name); ok && ch.Type == ChannelUser {
			f.push.Push(ch.ID, env)
		}
	}
	return dispatched
}
