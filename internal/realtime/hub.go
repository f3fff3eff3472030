package realtime

import "sync"

// Hub tracks room membership for the connections of this instance.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.join(room, c)
}

func (h *Hub) join(room string, c *Client) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if h.byConn[c] == nil {
		h.byConn[c] = make(map[string]struct{})
	}
	h.byConn[c][room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(room, c)
}

func (h *Hub) leave(room string, c *Client) {
	if conns, ok := h.rooms[room]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.byConn[c]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.byConn, c)
		}
	}
}

// LeaveAll drops c from every room it joined.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.byConn[c] {
		h.leave(room, c)
	}
}

func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// JoinUser adds the local connections userID opened for orgID (its personal
// room there) to room. Sockets of other organizations stay out.
func (h *Hub) JoinUser(room, orgID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[userRoom(orgID, userID)] {
		h.join(room, c)
	}
}

// Evict removes userID's connections from room; an empty userID empties the room.
func (h *Hub) Evict(room, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[room] {
		if userID == "" || c.UserID == userID {
			h.leave(room, c)
		}
	}
}

// Deliver enqueues frame on every connection in room except the one with id except.
func (h *Hub) Deliver(room string, frame []byte, except string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c.ID != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(frame)
	}
}
