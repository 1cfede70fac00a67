package domain

const (
	CallTypeAudio = "AUDIO"
	CallTypeVideo = "VIDEO"
)

const (
	CallStatusInitiated = "INITIATED"
	CallStatusRinging   = "RINGING"
	CallStatusAnswered  = "ANSWERED"
	CallStatusEnded     = "ENDED"
	CallStatusMissed    = "MISSED"
	CallStatusDeclined  = "DECLINED"
	CallStatusBusy      = "BUSY"
)

// CallTerminal reports whether a call status admits no further transitions.
func CallTerminal(status string) bool {
	switch status {
	case CallStatusEnded, CallStatusMissed, CallStatusDeclined, CallStatusBusy:
		return true
	}
	return false
}

const (
	DeliverySent      = "SENT"
	DeliveryDelivered = "DELIVERED"
	DeliveryRead      = "READ"
)

const (
	ChatRoleMember = "MEMBER"
	ChatRoleAdmin  = "ADMIN"
)

// Event names on the wire. CallRejected keeps its legacy casing for
// client compatibility.
const (
	EventMessageSent       = "message.sent"
	EventGroupMessageSent  = "group.message.sent"
	EventMessageRead       = "message.read"
	EventUserTyping        = "user.typing"
	EventUserStatusChanged = "user.status.changed"
	EventCallIncoming      = "call.incoming"
	EventCallAnswered      = "call.answered"
	EventCallRejected      = "CallRejected"
	EventCallEnded         = "call.ended"
	EventStatusPosted      = "status.posted"
	EventMemberJoined      = "member.joined"
	EventMemberLeft        = "member.left"
)
