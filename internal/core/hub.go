package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Hub coordinates all chat traffic. A single goroutine (Run) owns the room
// registry and rate limiter, so every mutation of shared room state is
// serialized through its loop. Broadcast fan-out happens on buffered
// per-client channels, so a slow consumer never stalls the loop.
type Hub struct {
	log      *zerolog.Logger
	registry *Registry
	limiter  *RateLimiter
	policy   atomic.Pointer[ModerationPolicy]

	register   chan *Client
	unregister chan *Client
	inbound    chan clientCommand
	admin      chan adminRequest

	clients map[*Client]struct{}

	// now is swappable in tests to exercise time-dependent behavior.
	now func() time.Time
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// adminRequest runs a closure inside the hub loop and signals completion.
// The administrative surface uses it for synchronous, consistent reads and
// mutations without exposing registry internals.
type adminRequest struct {
	fn   func()
	done chan struct{}
}

// NewHub creates a hub with the default moderation policy. A nil logger is
// replaced with a no-op logger.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		log:        logger,
		registry:   NewRegistry(),
		limiter:    NewRateLimiter(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan clientCommand),
		admin:      make(chan adminRequest),
		clients:    make(map[*Client]struct{}),
		now:        time.Now,
	}
	h.policy.Store(DefaultModerationPolicy())
	return h
}

// Run processes hub traffic until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cc := <-h.inbound:
			h.handleCommand(cc.client, cc.cmd)
		case req := <-h.admin:
			req.fn()
			close(req.done)
		}
	}
}

// RegisterClient hands a new connection to the hub. The hub auto-joins it to
// the global room and starts pumping its commands.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient tears down a connection: leaves every joined room, drops
// the rate-limit window and closes the client's done channel. Calling it for
// an unknown client is a no-op, so disconnect is idempotent.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// pump forwards a client's commands into the hub loop until the client is
// unregistered.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			select {
			case h.inbound <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	if _, ok := h.clients[c]; ok {
		return
	}
	h.clients[c] = struct{}{}
	go h.pump(ctx, c)

	c.send(&Event{Kind: EventWelcome, Room: GlobalRoomCode, User: c.ID, UserName: c.Name})
	h.joinRoom(c, GlobalRoomCode)

	h.log.Info().Str("client_id", c.ID).Str("name", c.Name).Msg("client registered")
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for code := range c.Rooms {
		h.leaveRoom(c, code)
	}
	h.limiter.Forget(c.ID)
	delete(h.clients, c)
	close(c.done)

	h.log.Info().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	if cmd == nil {
		return
	}
	switch cmd.Kind {
	case CommandJoinRoom:
		h.joinRoom(c, cmd.Room)
	case CommandLeaveRoom:
		h.leaveRoom(c, cmd.Room)
	case CommandSendMessage:
		h.sendMessage(c, cmd)
	case CommandSendVoice:
		h.sendVoice(c, cmd)
	case CommandTyping:
		h.typing(c, cmd.Typing)
	default:
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

// joinRoom subscribes the client and syncs history. The history snapshot is
// delivered before any message sent after the join, because both pass
// through this single loop. Re-joining only re-sends history.
func (h *Hub) joinRoom(c *Client, code string) {
	if code == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "room is required")})
		return
	}
	room := h.registry.GetOrCreate(code, h.now())

	already := !room.AddClient(c)
	c.Rooms[code] = struct{}{}

	c.send(&Event{Kind: EventHistory, Room: code, Messages: room.History()})
	if already {
		return
	}
	room.BroadcastExcept(&Event{Kind: EventUserJoined, Room: code, User: c.ID, UserName: c.Name}, c)

	h.log.Debug().Str("client_id", c.ID).Str("room", code).Msg("joined room")
}

// leaveRoom is naturally idempotent: leaving a room the client is not in
// (or that does not exist) does nothing.
func (h *Hub) leaveRoom(c *Client, code string) {
	delete(c.Rooms, code)

	room := h.registry.Get(code)
	if room == nil || !room.RemoveClient(c) {
		return
	}
	room.Broadcast(&Event{Kind: EventUserLeft, Room: code, User: c.ID, UserName: c.Name})

	h.log.Debug().Str("client_id", c.ID).Str("room", code).Msg("left room")
}

// resolveRoom picks the target room for a send: explicit code, then the
// session default, then global.
func (h *Hub) resolveRoom(c *Client, code string) *Room {
	if code == "" {
		code = c.DefaultRoom
	}
	if code == "" {
		code = GlobalRoomCode
	}
	return h.registry.GetOrCreate(code, h.now())
}

func (h *Hub) sendMessage(c *Client, cmd *Command) {
	if cmd.Text == "" {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "message body is required")})
		return
	}

	room := h.resolveRoom(c, cmd.Room)

	if max := room.Settings.MaxMessageLength; max > 0 && len([]rune(cmd.Text)) > max {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeMessageTooLong,
			fmt.Sprintf("message exceeds %d characters", max))})
		return
	}
	if cmd.Emoji && !room.Settings.AllowEmojis {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "emoji messages are disabled in this room")})
		return
	}

	policy := h.policy.Load()
	if !h.limiter.Allow(c.ID, policy.MaxMessagesPerMinute, h.now()) {
		c.send(&Event{Kind: EventError, Room: room.Code, Error: coreError(ErrCodeRateLimited, "too many messages, slow down")})
		return
	}

	body := cmd.Text
	moderated := false
	if room.Settings.ModerationEnabled {
		body, moderated = Moderate(body, policy)
	}

	kind := MessageKindText
	if cmd.Emoji {
		kind = MessageKindEmoji
	}

	msg := h.stampMessage(c, room.Code, kind)
	msg.Body = body
	msg.IsModerated = moderated
	msg.ReplyTo = cmd.ReplyTo

	room.Append(msg, msg.CreatedAt)
	room.Broadcast(&Event{Kind: EventRoomMessage, Room: room.Code, User: c.ID, UserName: c.Name, Message: msg.Clone()})

	if moderated {
		h.log.Info().Str("client_id", c.ID).Str("room", room.Code).Str("message_id", msg.ID).Msg("message auto-moderated")
	}
}

// sendVoice follows the text pipeline minus keyword moderation; voice bodies
// are not text-filtered. It shares the sender's rate-limit window.
func (h *Hub) sendVoice(c *Client, cmd *Command) {
	if cmd.Voice == nil || cmd.Voice.Data == "" || cmd.Voice.DurationSeconds <= 0 {
		c.send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "voice payload is required")})
		return
	}

	room := h.resolveRoom(c, cmd.Room)
	if !room.Settings.AllowVoice {
		c.send(&Event{Kind: EventError, Room: room.Code, Error: coreError(ErrCodeVoiceDisabled, "voice messages are disabled in this room")})
		return
	}

	policy := h.policy.Load()
	if !h.limiter.Allow(c.ID, policy.MaxMessagesPerMinute, h.now()) {
		c.send(&Event{Kind: EventError, Room: room.Code, Error: coreError(ErrCodeRateLimited, "too many messages, slow down")})
		return
	}

	msg := h.stampMessage(c, room.Code, MessageKindVoice)
	msg.Voice = cmd.Voice

	room.Append(msg, msg.CreatedAt)
	room.Broadcast(&Event{Kind: EventVoiceMessage, Room: room.Code, User: c.ID, UserName: c.Name, Message: msg.Clone()})
}

// typing fans out the client's typing state to the other participants of
// every room it has joined. The server keeps no typing timer; clients
// re-announce and expire the indicator themselves.
func (h *Hub) typing(c *Client, isTyping bool) {
	for code := range c.Rooms {
		room := h.registry.Get(code)
		if room == nil {
			continue
		}
		room.BroadcastExcept(&Event{Kind: EventTyping, Room: code, User: c.ID, UserName: c.Name, Typing: isTyping}, c)
	}
}

// stampMessage builds the canonical server-side message. Client-declared
// identity and timestamps never survive ingestion.
func (h *Hub) stampMessage(c *Client, roomCode string, kind MessageKind) *Message {
	return &Message{
		ID:         uuid.NewString(),
		Room:       roomCode,
		AuthorID:   c.ID,
		AuthorName: c.Name,
		Kind:       kind,
		CreatedAt:  h.now(),
	}
}

// do executes fn inside the hub loop and waits for it to finish.
func (h *Hub) do(ctx context.Context, fn func()) error {
	req := adminRequest{fn: fn, done: make(chan struct{})}
	select {
	case h.admin <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RoomInfo is an immutable snapshot of a room for the admin surface.
type RoomInfo struct {
	Code         string
	DisplayName  string
	Kind         RoomKind
	Participants int
	Messages     int
	CreatedAt    time.Time
}

func roomInfo(r *Room) RoomInfo {
	return RoomInfo{
		Code:         r.Code,
		DisplayName:  r.DisplayName,
		Kind:         r.Kind,
		Participants: r.Participants(),
		Messages:     r.HistoryLen(),
		CreatedAt:    r.CreatedAt,
	}
}

// CreateRoom registers a room administratively. The second result reports
// whether the room was newly created; an existing room is returned untouched.
func (h *Hub) CreateRoom(ctx context.Context, code, displayName string, kind RoomKind) (RoomInfo, bool, error) {
	var (
		info    RoomInfo
		created bool
	)
	err := h.do(ctx, func() {
		room, fresh := h.registry.CreateRoom(code, displayName, kind, h.now())
		info = roomInfo(room)
		created = fresh
	})
	return info, created, err
}

// Stats returns a consistent snapshot of registry statistics.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := h.do(ctx, func() {
		st = h.registry.ComputeStats()
	})
	return st, err
}

// ModerateMessage retroactively redacts a stored message and tells the room
// to update its local copy in place. Redaction is one-way.
func (h *Hub) ModerateMessage(ctx context.Context, roomCode, messageID string) error {
	var opErr error
	err := h.do(ctx, func() {
		room := h.registry.Get(roomCode)
		if room == nil {
			opErr = ErrRoomNotFound
			return
		}
		msg := room.FindMessage(messageID)
		if msg == nil {
			opErr = ErrMessageNotFound
			return
		}
		msg.Redact()
		room.Broadcast(&Event{Kind: EventMessageModerated, Room: roomCode, MessageID: messageID})
	})
	if err != nil {
		return err
	}
	return opErr
}

// UpdateModerationPolicy atomically swaps the process-wide policy. The policy
// is read-mostly, so an atomic snapshot swap avoids locking ingestion paths.
func (h *Hub) UpdateModerationPolicy(policy *ModerationPolicy) {
	if policy == nil {
		return
	}
	policy.Normalize()
	h.policy.Store(policy)
	h.log.Info().Int("blocked_terms", len(policy.BlockedTerms)).
		Int("max_per_minute", policy.MaxMessagesPerMinute).
		Bool("auto_moderation", policy.AutoModerationEnabled).
		Msg("moderation policy updated")
}

// ModerationPolicy returns the current policy snapshot.
func (h *Hub) ModerationPolicy() *ModerationPolicy {
	return h.policy.Load()
}
