package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a paper's room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from a paper's room.
	CommandLeaveRoom
	// CommandSendMessage persists a message and fans it out.
	CommandSendMessage
	// CommandTyping broadcasts a typing indicator; never persisted.
	CommandTyping
	// CommandMarkRead flips a message's read bit.
	CommandMarkRead
)

// Command represents an action requested by a client.
type Command struct {
	Kind       CommandKind
	PaperID    int64
	Body       string
	ReceiverID *int64
	IsTyping   bool
	MessageID  int64
}
