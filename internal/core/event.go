package core

import "github.com/paperdesk/paperchat-server/internal/store"

// EventKind is a notification the hub emits to clients.
type EventKind int

const (
	// EventJoinedRoom confirms a join to the requesting client only.
	EventJoinedRoom EventKind = iota
	// EventMessageSent echoes a persisted message back to its sender.
	EventMessageSent
	// EventReceiveMessage delivers a message to the other room members.
	EventReceiveMessage
	// EventMessageNotification is the room-wide summary of a new message.
	EventMessageNotification
	// EventUserTyping relays a typing indicator to the other room members.
	EventUserTyping
	// EventMarkedRead confirms a mark-read to the requesting client only.
	EventMarkedRead
	// EventError reports a failed operation to the requesting client only.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind       EventKind
	PaperID    int64
	Message    *store.Message
	IsForMe    bool
	SenderID   int64
	SenderName string
	UserID     int64
	Role       store.Role
	IsTyping   bool
	MessageID  int64
	Error      *CoreError
}
