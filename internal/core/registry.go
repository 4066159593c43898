package core

import "time"

// Registry owns the set of rooms for the process. It is constructed once and
// handed to the hub, which is the only goroutine allowed to touch it.
type Registry struct {
	rooms map[string]*Room
	// order remembers creation order so stats tie-breaks are deterministic.
	order []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreateRoom registers a room under code. If the code already exists the
// existing room is returned untouched; a second create never resets settings.
func (reg *Registry) CreateRoom(code, displayName string, kind RoomKind, now time.Time) (*Room, bool) {
	if room, ok := reg.rooms[code]; ok {
		return room, false
	}
	room := NewRoom(code, displayName, kind, now)
	reg.rooms[code] = room
	reg.order = append(reg.order, code)
	return room, true
}

// GetOrCreate returns the room with the given code, creating it with default
// settings on first reference. Unknown room codes are never an error.
func (reg *Registry) GetOrCreate(code string, now time.Time) *Room {
	if room, ok := reg.rooms[code]; ok {
		return room
	}
	kind := RoomKindRoom
	if code == GlobalRoomCode {
		kind = RoomKindGlobal
	}
	room, _ := reg.CreateRoom(code, code, kind, now)
	return room
}

// Get returns the room with the given code, or nil.
func (reg *Registry) Get(code string) *Room {
	return reg.rooms[code]
}

// Len returns the number of rooms.
func (reg *Registry) Len() int {
	return len(reg.rooms)
}

// Stats summarizes registry state at a point in time.
type Stats struct {
	TotalRooms     int
	TotalMessages  int
	ActiveUsers    int
	MostActiveRoom string
}

// ComputeStats walks all rooms once. MostActiveRoom is the room with the
// longest history; "global" wins ties when present, then creation order.
func (reg *Registry) ComputeStats() Stats {
	st := Stats{TotalRooms: len(reg.rooms)}

	active := make(map[*Client]struct{})
	best := -1

	scan := func(room *Room) {
		st.TotalMessages += room.HistoryLen()
		for c := range room.clients {
			active[c] = struct{}{}
		}
		if room.HistoryLen() > best {
			best = room.HistoryLen()
			st.MostActiveRoom = room.Code
		}
	}

	if global, ok := reg.rooms[GlobalRoomCode]; ok {
		scan(global)
	}
	for _, code := range reg.order {
		if code == GlobalRoomCode {
			continue
		}
		scan(reg.rooms[code])
	}

	st.ActiveUsers = len(active)
	return st
}
