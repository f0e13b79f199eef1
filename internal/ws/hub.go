package ws

import (
	"log/slog"
	"sync"
)

// Subscriber abstracts a connected, authenticated client.
type Subscriber interface {
	UserID() string
	Send([]byte) error
	Close()
}

type room struct {
	mu     sync.RWMutex
	subs   map[Subscriber]struct{}
	closed bool
}

// Hub tracks which subscribers joined which team room. Each room has its own
// lock; the hub lock only guards room lookup and removal.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
	log   *slog.Logger
}

// NewHub creates an initialized Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{rooms: make(map[string]*room), log: logger}
}

func (h *Hub) lookup(roomID string, create bool) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok && create {
		r = &room{subs: make(map[Subscriber]struct{})}
		h.rooms[roomID] = r
	}
	return r
}

// Join adds sub to a room. Joining twice is a no-op.
func (h *Hub) Join(roomID string, sub Subscriber) {
	for {
		r := h.lookup(roomID, true)
		r.mu.Lock()
		if r.closed {
			// removed between lookup and lock
			r.mu.Unlock()
			continue
		}
		r.subs[sub] = struct{}{}
		r.mu.Unlock()
		return
	}
}

// Leave removes sub from a room. It reports whether sub was present.
func (h *Hub) Leave(roomID string, sub Subscriber) bool {
	r := h.lookup(roomID, false)
	if r == nil {
		return false
	}
	r.mu.Lock()
	_, present := r.subs[sub]
	delete(r.subs, sub)
	empty := len(r.subs) == 0
	r.mu.Unlock()
	if empty {
		h.prune(roomID, r)
	}
	return present
}

func (h *Hub) prune(roomID string, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) == 0 && !r.closed && h.rooms[roomID] == r {
		r.closed = true
		delete(h.rooms, roomID)
	}
}

// LeaveAll removes sub from every room and returns the rooms it had joined.
func (h *Hub) LeaveAll(sub Subscriber) []string {
	h.mu.Lock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	left := make([]string, 0)
	for _, id := range ids {
		if h.Leave(id, sub) {
			left = append(left, id)
		}
	}
	return left
}

// IsJoined reports whether sub is in a room.
func (h *Hub) IsJoined(roomID string, sub Subscriber) bool {
	r := h.lookup(roomID, false)
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[sub]
	return ok
}

// ConnectedUsers returns the distinct user ids with a subscriber in a room.
func (h *Hub) ConnectedUsers(roomID string) map[string]struct{} {
	out := make(map[string]struct{})
	r := h.lookup(roomID, false)
	if r == nil {
		return out
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sub := range r.subs {
		out[sub.UserID()] = struct{}{}
	}
	return out
}

// Broadcast sends payload to every subscriber in a room.
func (h *Hub) Broadcast(roomID string, payload []byte) int {
	return h.BroadcastExcept(roomID, nil, payload)
}

// BroadcastExcept sends payload to every subscriber in a room but skip.
// Subscribers that fail to accept the payload are removed and closed. It
// returns the number of subscribers that accepted the payload.
func (h *Hub) BroadcastExcept(roomID string, skip Subscriber, payload []byte) int {
	r := h.lookup(roomID, false)
	if r == nil {
		return 0
	}
	r.mu.RLock()
	targets := make([]Subscriber, 0, len(r.subs))
	for sub := range r.subs {
		if sub != skip {
			targets = append(targets, sub)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(payload); err != nil {
			h.log.Warn("dropping subscriber", "room", roomID, "user_id", sub.UserID(), "error", err)
			h.LeaveAll(sub)
			sub.Close()
			continue
		}
		delivered++
	}
	return delivered
}
