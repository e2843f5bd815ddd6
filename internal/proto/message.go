package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinRoom    = "join_room"
	InboundTypeLeaveRoom   = "leave_room"
	InboundTypeSendMessage = "send_message"
	InboundTypeTyping      = "typing"
	InboundTypeMarkRead    = "mark_read"

	OutboundTypeJoinedRoom          = "joined_room"
	OutboundTypeMessageSent         = "message_sent"
	OutboundTypeReceiveMessage      = "receive_message"
	OutboundTypeMessageNotification = "message_notification"
	OutboundTypeUserTyping          = "user_typing"
	OutboundTypeMarkedRead          = "marked_read"
	OutboundTypeError               = "error"
)

// JoinRoomData requests to join or leave a paper's room.
type JoinRoomData struct {
	PaperID int64 `json:"paperId"`
}

// SendMessageData is a chat message from the client. ReceiverID is only
// meaningful for teacher senders.
type SendMessageData struct {
	PaperID    int64  `json:"paperId"`
	Message    string `json:"message"`
	ReceiverID *int64 `json:"receiverId,omitempty"`
}

// TypingData is an ephemeral typing indicator.
type TypingData struct {
	PaperID  int64 `json:"paperId"`
	IsTyping bool  `json:"isTyping"`
}

// MarkReadData asks to flip one message's read bit.
type MarkReadData struct {
	MessageID int64 `json:"messageId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload is the wire form of a persisted message.
type MessagePayload struct {
	ID         int64  `json:"id"`
	PaperID    int64  `json:"paperId"`
	RoomID     int64  `json:"roomId"`
	SenderID   int64  `json:"senderId"`
	ReceiverID *int64 `json:"receiverId,omitempty"`
	Body       string `json:"message"`
	IsRead     bool   `json:"isRead"`
	TS         int64  `json:"ts"`
}

// JoinedRoomPayload confirms a join to the requesting client.
type JoinedRoomPayload struct {
	PaperID int64 `json:"paperId"`
}

// ReceiveMessagePayload delivers a message to other room members.
type ReceiveMessagePayload struct {
	MessagePayload
	IsForMe bool `json:"isForMe"`
}

// NotificationPayload is the room-wide summary of a new message.
type NotificationPayload struct {
	PaperID    int64  `json:"paperId"`
	SenderID   int64  `json:"senderId"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
	TS         int64  `json:"timestamp"`
}

// UserTypingPayload relays a typing indicator.
type UserTypingPayload struct {
	PaperID  int64  `json:"paperId"`
	UserID   int64  `json:"userId"`
	Role     string `json:"role"`
	IsTyping bool   `json:"isTyping"`
}

// MarkedReadPayload confirms a mark-read.
type MarkedReadPayload struct {
	MessageID int64 `json:"messageId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
