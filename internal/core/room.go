package core

// room groups the clients joined to one paper's room. Access is guarded by
// the hub's mutex.
type room struct {
	PaperID int64
	RoomID  int64
	clients map[*Client]struct{}
}

func newRoom(paperID, roomID int64) *room {
	return &room{
		PaperID: paperID,
		RoomID:  roomID,
		clients: make(map[*Client]struct{}),
	}
}

func (r *room) add(c *Client) {
	r.clients[c] = struct{}{}
}

func (r *room) remove(c *Client) {
	delete(r.clients, c)
}

func (r *room) empty() bool {
	return len(r.clients) == 0
}

// snapshot returns the current members except the given client, so events can
// be delivered outside the hub lock.
func (r *room) snapshot(except *Client) []*Client {
	members := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c == except {
			continue
		}
		members = append(members, c)
	}
	return members
}
