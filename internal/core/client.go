package core

import "github.com/paperdesk/paperchat-server/internal/store"

// Client is one authenticated connection as seen by the hub. A user may hold
// several clients at once (one per tab/device); each joins rooms on its own.
type Client struct {
	ID       string
	UserID   int64
	Name     string
	Role     store.Role
	Commands chan *Command
	Events   chan *Event

	// rooms is the set of paper ids this client is joined to. Guarded by the
	// hub's mutex; the client itself never touches it.
	rooms map[int64]struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, userID int64, name string, role store.Role) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Name:     name,
		Role:     role,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
		rooms:    make(map[int64]struct{}),
	}
}

// send delivers an event without ever blocking the hub. Slow consumers lose
// events; the sync API is the reconciliation path.
func (c *Client) send(event *Event) {
	select {
	case c.Events <- event:
	default:
	}
}
