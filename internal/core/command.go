package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendMessage delivers a text (or emoji) message to a room.
	CommandSendMessage CommandKind = iota
	// CommandSendVoice delivers a voice message to a room.
	CommandSendVoice
	// CommandJoinRoom subscribes the client to a room.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the client from a room.
	CommandLeaveRoom
	// CommandTyping announces the client's typing state to joined rooms.
	CommandTyping
)

// Command represents an action requested by a client. Identity and timestamps
// are deliberately absent: the hub stamps both from the session.
type Command struct {
	Kind    CommandKind
	Room    string
	Text    string
	Emoji   bool
	ReplyTo string
	Voice   *VoicePayload
	Typing  bool
}
