package core

import "time"

// GlobalRoomCode is the room every connection auto-joins.
const GlobalRoomCode = "global"

// HistoryLimit bounds the number of messages retained per room. Oldest
// entries are evicted first.
const HistoryLimit = 100

// RoomKind classifies a room.
type RoomKind string

const (
	RoomKindGlobal  RoomKind = "global"
	RoomKindRoom    RoomKind = "room"
	RoomKindGuild   RoomKind = "guild"
	RoomKindPrivate RoomKind = "private"
)

// RoomSettings controls per-room message policy.
type RoomSettings struct {
	AllowVoice        bool
	AllowEmojis       bool
	MaxMessageLength  int
	ModerationEnabled bool
}

// DefaultRoomSettings are applied to implicitly created rooms.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		AllowVoice:        true,
		AllowEmojis:       true,
		MaxMessageLength:  200,
		ModerationEnabled: true,
	}
}

// Room groups clients subscribed to the same channel and retains a bounded
// message history for late joiners. All fields are owned by the hub
// goroutine; nothing here is safe for concurrent use.
type Room struct {
	Code           string
	DisplayName    string
	Kind           RoomKind
	Settings       RoomSettings
	CreatedAt      time.Time
	LastActivityAt time.Time

	clients map[*Client]struct{}
	history []*Message
}

// NewRoom constructs a room with no clients and empty history.
func NewRoom(code, displayName string, kind RoomKind, now time.Time) *Room {
	if displayName == "" {
		displayName = code
	}
	return &Room{
		Code:           code,
		DisplayName:    displayName,
		Kind:           kind,
		Settings:       DefaultRoomSettings(),
		CreatedAt:      now,
		LastActivityAt: now,
		clients:        make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Has reports whether the client is a participant.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Broadcast sends an event to all clients in the room.
func (r *Room) Broadcast(event *Event) {
	for client := range r.clients {
		client.send(event)
	}
}

// BroadcastExcept sends an event to all clients in the room except one.
func (r *Room) BroadcastExcept(event *Event, except *Client) {
	for client := range r.clients {
		if client == except {
			continue
		}
		client.send(event)
	}
}

// Append stores a message in history, evicting the oldest entries beyond
// HistoryLimit, and bumps LastActivityAt.
func (r *Room) Append(msg *Message, now time.Time) {
	r.history = append(r.history, msg)
	if n := len(r.history); n > HistoryLimit {
		r.history = append(r.history[:0], r.history[n-HistoryLimit:]...)
	}
	r.LastActivityAt = now
}

// History returns cloned snapshots of the retained messages in
// chronological order.
func (r *Room) History() []*Message {
	out := make([]*Message, len(r.history))
	for i, m := range r.history {
		out[i] = m.Clone()
	}
	return out
}

// HistoryLen returns the number of retained messages.
func (r *Room) HistoryLen() int {
	return len(r.history)
}

// FindMessage returns the retained message with the given id, or nil.
func (r *Room) FindMessage(id string) *Message {
	for _, m := range r.history {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Participants returns the number of clients in the room.
func (r *Room) Participants() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
