package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/paperdesk/paperchat-server/internal/service/chat"
	"github.com/paperdesk/paperchat-server/internal/store"
)

// Hub coordinates connected clients and fans events out to paper rooms.
// Every command is handled on its client's own pump goroutine, so a blocking
// store call never stalls other connections. The mutex guards only the
// membership maps and is never held across a service call.
type Hub struct {
	svc *chat.Service
	log *zerolog.Logger

	mu    sync.Mutex
	rooms map[int64]*room // keyed by paper id; one room per paper
}

// NewHub creates a new hub over the shared chat service.
func NewHub(svc *chat.Service, logger *zerolog.Logger) *Hub {
	return &Hub{
		svc:   svc,
		log:   logger,
		rooms: make(map[int64]*room),
	}
}

// Run blocks until the context is cancelled. Client pumps end on their own
// when the transport closes the client's command channel.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
}

// RegisterClient starts consuming the client's commands. The transport closes
// the Commands channel on disconnect; commands accepted before the close are
// still dispatched, so a disconnect never cancels an accepted persist.
func (h *Hub) RegisterClient(ctx context.Context, c *Client) {
	go h.pump(ctx, c)
}

// UnregisterClient removes the client from every joined room. No message
// side effects: persists already issued are allowed to finish.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for paperID := range c.rooms {
		h.dropLocked(c, paperID)
	}
}

func (h *Hub) pump(ctx context.Context, c *Client) {
	// The connection context dies on disconnect, but an accepted command
	// must still reach the store. Keep its values, drop its cancellation,
	// and drain until the transport closes the channel.
	ctx = context.WithoutCancel(ctx)
	for cmd := range c.Commands {
		h.dispatch(ctx, c, cmd)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinRoom:
		h.joinRoom(ctx, c, cmd.PaperID)
	case CommandLeaveRoom:
		h.leaveRoom(c, cmd.PaperID)
	case CommandSendMessage:
		h.sendMessage(ctx, c, cmd)
	case CommandTyping:
		h.typing(c, cmd.PaperID, cmd.IsTyping)
	case CommandMarkRead:
		h.markRead(ctx, c, cmd.MessageID)
	default:
		c.send(&Event{Kind: EventError, Error: &CoreError{Code: ErrCodeBadRequest, Message: "unknown command"}})
	}
}

func (h *Hub) joinRoom(ctx context.Context, c *Client, paperID int64) {
	info, err := h.svc.GetOrCreateRoom(ctx, paperID, c.UserID, c.Role)
	if err != nil {
		h.log.Debug().Err(err).Int64("paper_id", paperID).Int64("user_id", c.UserID).Msg("join denied")
		c.send(&Event{Kind: EventError, PaperID: paperID, Error: errorFor(err)})
		return
	}

	h.mu.Lock()
	r, ok := h.rooms[paperID]
	if !ok {
		r = newRoom(paperID, info.Room.ID)
		h.rooms[paperID] = r
	}
	r.add(c)
	c.rooms[paperID] = struct{}{}
	h.mu.Unlock()

	c.send(&Event{Kind: EventJoinedRoom, PaperID: paperID})
}

// leaveRoom is a no-op when the client is not joined.
func (h *Hub) leaveRoom(c *Client, paperID int64) {
	h.mu.Lock()
	h.dropLocked(c, paperID)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(c *Client, paperID int64) {
	if r, ok := h.rooms[paperID]; ok {
		r.remove(c)
		if r.empty() {
			delete(h.rooms, paperID)
		}
	}
	delete(c.rooms, paperID)
}

func (h *Hub) sendMessage(ctx context.Context, c *Client, cmd *Command) {
	// Access is re-resolved inside SendMessage; join state alone is not
	// trusted. Nothing is fanned out unless the persist succeeded.
	msg, err := h.svc.SendMessage(ctx, cmd.PaperID, c.UserID, c.Role, cmd.Body, cmd.ReceiverID)
	if err != nil {
		c.send(&Event{Kind: EventError, PaperID: cmd.PaperID, Error: errorFor(err)})
		return
	}

	c.send(&Event{Kind: EventMessageSent, PaperID: cmd.PaperID, Message: msg})

	members := h.members(cmd.PaperID, c)
	for _, member := range members {
		member.send(&Event{
			Kind:    EventReceiveMessage,
			PaperID: cmd.PaperID,
			Message: msg,
			IsForMe: isForMember(msg, c, member),
		})
	}

	notification := &Event{
		Kind:       EventMessageNotification,
		PaperID:    cmd.PaperID,
		Message:    msg,
		SenderID:   c.UserID,
		SenderName: c.Name,
	}
	for _, member := range members {
		member.send(notification)
	}
	c.send(notification)
}

// isForMember decides the isForMe hint on a fanned-out message: student
// messages are for the teacher, addressed teacher replies for their receiver,
// receiver-less teacher messages for every student.
func isForMember(msg *store.Message, sender, member *Client) bool {
	if sender.Role == store.RoleStudent {
		return member.Role == store.RoleTeacher
	}
	if msg.ReceiverID != nil {
		return member.UserID == *msg.ReceiverID
	}
	return member.Role == store.RoleStudent
}

// typing relays an ephemeral indicator to the other room members. Only a
// joined client may emit one; nothing is persisted and no acknowledgement is
// sent, expiry is the consumer's job.
func (h *Hub) typing(c *Client, paperID int64, isTyping bool) {
	h.mu.Lock()
	_, joined := c.rooms[paperID]
	h.mu.Unlock()
	if !joined {
		return
	}

	event := &Event{
		Kind:     EventUserTyping,
		PaperID:  paperID,
		UserID:   c.UserID,
		Role:     c.Role,
		IsTyping: isTyping,
	}
	for _, member := range h.members(paperID, c) {
		member.send(event)
	}
}

func (h *Hub) markRead(ctx context.Context, c *Client, messageID int64) {
	msg, err := h.svc.MarkMessageRead(ctx, messageID, c.UserID, c.Role)
	if err != nil {
		c.send(&Event{Kind: EventError, Error: errorFor(err)})
		return
	}
	c.send(&Event{Kind: EventMarkedRead, MessageID: msg.ID})
}

// members snapshots the room under the lock; delivery happens outside it.
func (h *Hub) members(paperID int64, except *Client) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[paperID]
	if !ok {
		return nil
	}
	return r.snapshot(except)
}
