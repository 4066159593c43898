package core

import "time"

// MessageKind classifies what a message carries.
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindSystem MessageKind = "system"
	MessageKindVoice  MessageKind = "voice"
	MessageKindEmoji  MessageKind = "emoji"
)

// ModeratedPlaceholder replaces the body of a redacted message. The original
// body is not kept anywhere; redaction is one-way.
const ModeratedPlaceholder = "[message removed by moderator]"

// VoicePayload carries an opaque encoded audio clip. The server never decodes
// the audio, it only relays the envelope.
type VoicePayload struct {
	Data            string
	DurationSeconds float64
	Waveform        []int
}

// Message is the domain model for a chat message. The server constructs it
// from validated inputs only; author identity and timestamp always come from
// the authenticated session, never from the client payload.
type Message struct {
	ID          string
	Room        string
	AuthorID    string
	AuthorName  string
	Body        string
	Kind        MessageKind
	CreatedAt   time.Time
	IsModerated bool
	ReplyTo     string
	Voice       *VoicePayload
}

// Clone returns a shallow copy. Events carry clones so that a later
// redaction of the stored message cannot race with transport reads.
// The voice payload is shared; it is never mutated after ingestion.
func (m *Message) Clone() *Message {
	cp := *m
	return &cp
}

// Redact replaces the body with the placeholder. Calling it twice is a no-op.
func (m *Message) Redact() {
	if m.IsModerated {
		return
	}
	m.Body = ModeratedPlaceholder
	m.IsModerated = true
}
