package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage notifies clients about a text message in a room.
	EventRoomMessage EventKind = iota
	// EventVoiceMessage notifies clients about a voice message in a room.
	EventVoiceMessage
	// EventHistory delivers message history to a client upon joining a room.
	EventHistory
	// EventUserJoined notifies clients about a user joining a room.
	EventUserJoined
	// EventUserLeft notifies clients about a user leaving a room.
	EventUserLeft
	// EventTyping relays a participant's typing state.
	EventTyping
	// EventMessageModerated tells clients to redact a message in place by id.
	EventMessageModerated
	// EventWelcome confirms the connection and the auto-joined room.
	EventWelcome
	// EventError notifies the originating client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Room      string
	User      string // connection id of the subject
	UserName  string
	Typing    bool
	MessageID string // for EventMessageModerated
	Message   *Message
	Messages  []*Message // for EventHistory
	Error     *CoreError
}
