package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello  = "hello"
	InboundTypeMsg    = "msg"
	InboundTypeVoice  = "voice"
	InboundTypeJoin   = "join"
	InboundTypeLeave  = "leave"
	InboundTypeTyping = "typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventNameWelcome          = "welcome"
	EventNameMessage          = "message"
	EventNameVoiceMessage     = "voice_message"
	EventNameHistory          = "history"
	EventNameUserJoined       = "user_joined"
	EventNameUserLeft         = "user_left"
	EventNameTyping           = "typing"
	EventNameMessageModerated = "message_moderated"
)

// HelloData is the first frame a client must send. Token carries the
// identity issued by the auth collaborator; Name is a development fallback
// used only when no token is presented.
type HelloData struct {
	Token    string `json:"token,omitempty"`
	Name     string `json:"name,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// MsgData is a text or emoji chat message from the client.
type MsgData struct {
	Room    string `json:"room,omitempty"`
	Text    string `json:"text"`
	Emoji   bool   `json:"emoji,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// VoiceData is a voice message from the client. Data is opaque encoded audio.
type VoiceData struct {
	Room            string  `json:"room,omitempty"`
	Data            string  `json:"data"`
	DurationSeconds float64 `json:"duration_seconds"`
	Waveform        []int   `json:"waveform,omitempty"`
}

// RoomData targets a room for join/leave.
type RoomData struct {
	Room string `json:"room"`
}

// TypingData announces the client's typing state.
type TypingData struct {
	IsTyping bool `json:"is_typing"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// WireVoice mirrors the voice payload on the wire.
type WireVoice struct {
	Data            string  `json:"data"`
	DurationSeconds float64 `json:"duration_seconds"`
	Waveform        []int   `json:"waveform,omitempty"`
}

// WireMessage is a chat message as delivered to clients.
type WireMessage struct {
	ID        string     `json:"id"`
	Room      string     `json:"room"`
	User      string     `json:"user"`
	Name      string     `json:"name"`
	Text      string     `json:"text,omitempty"`
	Kind      string     `json:"kind"`
	TS        int64      `json:"ts"`
	Moderated bool       `json:"moderated,omitempty"`
	ReplyTo   string     `json:"reply_to,omitempty"`
	Voice     *WireVoice `json:"voice,omitempty"`
}

// EventWelcome confirms the connection identity and auto-joined room.
type EventWelcome struct {
	User     string `json:"user"`
	Name     string `json:"name"`
	Room     string `json:"room"`
	Protocol int    `json:"protocol"`
}

// EventHistory delivers a room's retained messages in stored order.
type EventHistory struct {
	Room     string        `json:"room"`
	Messages []WireMessage `json:"messages"`
}

// EventPresence notifies that a user joined or left a room.
type EventPresence struct {
	Room string `json:"room"`
	User string `json:"user"`
	Name string `json:"name"`
}

// EventTyping relays a participant's typing state.
type EventTyping struct {
	Room     string `json:"room"`
	User     string `json:"user"`
	Name     string `json:"name"`
	IsTyping bool   `json:"is_typing"`
}

// EventMessageModerated tells clients to redact a message in place by id.
type EventMessageModerated struct {
	Room      string `json:"room"`
	MessageID string `json:"message_id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
