package core

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func TestHubAutoJoinsGlobalOnRegister(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)

	welcome := mustEvent(t, alice.Events, EventWelcome)
	if welcome.Room != GlobalRoomCode || welcome.UserName != "alice" {
		t.Fatalf("unexpected welcome event: %+v", welcome)
	}

	history := mustRoomEvent(t, alice.Events, EventHistory, GlobalRoomCode)
	if len(history.Messages) != 0 {
		t.Fatalf("expected empty global history, got %d messages", len(history.Messages))
	}
}

func TestHubJoinBroadcastAndLeave(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}

	// Alice should see bob's join; the joiner itself must not.
	joinEv := mustRoomEvent(t, alice.Events, EventUserJoined, "arena")
	if joinEv.UserName != "bob" {
		t.Fatalf("unexpected join event: %+v", joinEv)
	}

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "arena", Text: "hi"}

	msgEv := mustRoomEvent(t, bob.Events, EventRoomMessage, "arena")
	if msgEv.Message.Body != "hi" || msgEv.Message.AuthorName != "alice" {
		t.Fatalf("unexpected message event: %+v", msgEv.Message)
	}
	if msgEv.Message.ID == "" || msgEv.Message.CreatedAt.IsZero() {
		t.Fatalf("message missing server stamps: %+v", msgEv.Message)
	}

	// Sender gets the echo too.
	echo := mustRoomEvent(t, alice.Events, EventRoomMessage, "arena")
	if echo.Message.ID != msgEv.Message.ID {
		t.Fatalf("echo id %q != broadcast id %q", echo.Message.ID, msgEv.Message.ID)
	}

	alice.Commands <- &Command{Kind: CommandLeaveRoom, Room: "arena"}
	leftEv := mustRoomEvent(t, bob.Events, EventUserLeft, "arena")
	if leftEv.UserName != "alice" {
		t.Fatalf("unexpected leave event: %+v", leftEv)
	}
}

func TestHubRejoinOnlyResendsHistory(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	mustRoomEvent(t, alice.Events, EventUserJoined, "arena")

	drainEvents(alice.Events)
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}

	// Bob gets history again, alice must not see a second user_joined.
	mustRoomEvent(t, bob.Events, EventHistory, "arena")
	bob.Commands <- &Command{Kind: CommandSendMessage, Room: "arena", Text: "ping"}

	// Everything alice receives between the re-join and the ping is suspect.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-alice.Events:
			if ev.Kind == EventUserJoined {
				t.Fatalf("re-join broadcast a duplicate user_joined: %+v", ev)
			}
			if ev.Kind == EventRoomMessage && ev.Message.Body == "ping" {
				return
			}
		case <-deadline:
			t.Fatalf("ping never arrived")
		}
	}
}

func TestHubJoinDeliversHistoryInStoredOrder(t *testing.T) {
	hub, _ := newTestHub(t)

	hub.UpdateModerationPolicy(&ModerationPolicy{MaxMessagesPerMinute: 1000})

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}

	for _, text := range []string{"one", "two", "three"} {
		alice.Commands <- &Command{Kind: CommandSendMessage, Room: "arena", Text: text}
		mustRoomEvent(t, alice.Events, EventRoomMessage, "arena")
	}

	bob := NewClient("b", "bob")
	hub.RegisterClient(bob)
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}

	history := mustRoomEvent(t, bob.Events, EventHistory, "arena")
	if len(history.Messages) != 3 {
		t.Fatalf("expected 3 history messages, got %d", len(history.Messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if history.Messages[i].Body != want {
			t.Fatalf("history[%d] = %q, want %q", i, history.Messages[i].Body, want)
		}
	}
}

func TestHubHistoryEvictionKeepsLast100(t *testing.T) {
	hub, ctx := newTestHub(t)

	hub.UpdateModerationPolicy(&ModerationPolicy{MaxMessagesPerMinute: 1000})

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	mustRoomEvent(t, alice.Events, EventHistory, "arena")

	for i := 0; i < 105; i++ {
		alice.Commands <- &Command{Kind: CommandSendMessage, Room: "arena", Text: "m" + strconv.Itoa(i)}
		// Wait for the echo so every append has happened before the read below.
		mustRoomEvent(t, alice.Events, EventRoomMessage, "arena")
	}

	var history []*Message
	if err := hub.do(ctx, func() {
		history = hub.registry.Get("arena").History()
	}); err != nil {
		t.Fatalf("read history: %v", err)
	}

	if len(history) != HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(history), HistoryLimit)
	}
	if got := history[0].Body; got != "m5" {
		t.Fatalf("oldest retained message = %q, want m5 (first 5 evicted)", got)
	}
	if got := history[len(history)-1].Body; got != "m104" {
		t.Fatalf("newest retained message = %q, want m104", got)
	}
}

func TestHubRateLimitDeniesExcess(t *testing.T) {
	hub, _ := newTestHub(t)

	hub.UpdateModerationPolicy(&ModerationPolicy{MaxMessagesPerMinute: 3})

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)

	for i := 0; i < 3; i++ {
		alice.Commands <- &Command{Kind: CommandSendMessage, Text: "ok"}
		mustRoomEvent(t, alice.Events, EventRoomMessage, GlobalRoomCode)
	}

	alice.Commands <- &Command{Kind: CommandSendMessage, Text: "denied"}
	errEv := mustEvent(t, alice.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeRateLimited {
		t.Fatalf("expected rate_limited error, got %+v", errEv)
	}

	// The denied message must not have been stored.
	st, err := hub.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalMessages != 3 {
		t.Fatalf("total messages = %d, want 3", st.TotalMessages)
	}
}

func TestHubModerationRedactsStoredAndBroadcast(t *testing.T) {
	hub, _ := newTestHub(t)

	hub.UpdateModerationPolicy(&ModerationPolicy{
		BlockedTerms:          []string{"spam", "bot"},
		MaxMessagesPerMinute:  100,
		AutoModerationEnabled: true,
	})

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandSendMessage, Text: "hello SPAM bot"}

	msgEv := mustRoomEvent(t, bob.Events, EventRoomMessage, GlobalRoomCode)
	if !msgEv.Message.IsModerated {
		t.Fatalf("expected moderated message, got %+v", msgEv.Message)
	}
	if msgEv.Message.Body != ModeratedPlaceholder {
		t.Fatalf("body = %q, want placeholder", msgEv.Message.Body)
	}

	// Late joiners must only ever see the placeholder.
	carol := NewClient("c", "carol")
	hub.RegisterClient(carol)
	history := mustRoomEvent(t, carol.Events, EventHistory, GlobalRoomCode)
	if len(history.Messages) != 1 || history.Messages[0].Body != ModeratedPlaceholder {
		t.Fatalf("history does not carry redacted body: %+v", history.Messages)
	}
}

func TestHubModerationMasterSwitchOff(t *testing.T) {
	hub, _ := newTestHub(t)

	hub.UpdateModerationPolicy(&ModerationPolicy{
		BlockedTerms:          []string{"spam"},
		MaxMessagesPerMinute:  100,
		AutoModerationEnabled: false,
	})

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandSendMessage, Text: "pure spam"}

	msgEv := mustRoomEvent(t, alice.Events, EventRoomMessage, GlobalRoomCode)
	if msgEv.Message.IsModerated || msgEv.Message.Body != "pure spam" {
		t.Fatalf("master switch off must pass messages through: %+v", msgEv.Message)
	}
}

func TestHubRetroactiveModerateMessage(t *testing.T) {
	hub, ctx := newTestHub(t)

	hub.UpdateModerationPolicy(&ModerationPolicy{MaxMessagesPerMinute: 100})

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandSendMessage, Text: "regrettable"}
	msgEv := mustRoomEvent(t, bob.Events, EventRoomMessage, GlobalRoomCode)

	if err := hub.ModerateMessage(ctx, GlobalRoomCode, msgEv.Message.ID); err != nil {
		t.Fatalf("moderate message: %v", err)
	}

	modEv := mustRoomEvent(t, bob.Events, EventMessageModerated, GlobalRoomCode)
	if modEv.MessageID != msgEv.Message.ID {
		t.Fatalf("redaction targets %q, want %q", modEv.MessageID, msgEv.Message.ID)
	}

	var stored *Message
	if err := hub.do(ctx, func() {
		stored = hub.registry.Get(GlobalRoomCode).FindMessage(msgEv.Message.ID).Clone()
	}); err != nil {
		t.Fatalf("read message: %v", err)
	}
	if !stored.IsModerated || stored.Body != ModeratedPlaceholder {
		t.Fatalf("stored message not redacted: %+v", stored)
	}

	if err := hub.ModerateMessage(ctx, "nowhere", "x"); err != ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if err := hub.ModerateMessage(ctx, GlobalRoomCode, "missing"); err != ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestHubVoiceMessagePipeline(t *testing.T) {
	hub, ctx := newTestHub(t)

	hub.UpdateModerationPolicy(&ModerationPolicy{
		BlockedTerms:          []string{"spam"},
		MaxMessagesPerMinute:  2,
		AutoModerationEnabled: true,
	})

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandSendVoice, Voice: &VoicePayload{Data: "b64audio", DurationSeconds: 2.5}}

	voiceEv := mustRoomEvent(t, bob.Events, EventVoiceMessage, GlobalRoomCode)
	if voiceEv.Message.Kind != MessageKindVoice || voiceEv.Message.Voice == nil {
		t.Fatalf("unexpected voice event: %+v", voiceEv.Message)
	}
	if voiceEv.Message.Voice.DurationSeconds != 2.5 {
		t.Fatalf("duration = %v, want 2.5", voiceEv.Message.Voice.DurationSeconds)
	}
	// Voice bodies are not text-filtered.
	if voiceEv.Message.IsModerated {
		t.Fatalf("voice message must not be keyword-moderated")
	}

	// Voice shares the text rate-limit window.
	alice.Commands <- &Command{Kind: CommandSendMessage, Text: "second"}
	mustRoomEvent(t, alice.Events, EventRoomMessage, GlobalRoomCode)
	alice.Commands <- &Command{Kind: CommandSendVoice, Voice: &VoicePayload{Data: "more", DurationSeconds: 1}}
	errEv := mustEvent(t, alice.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeRateLimited {
		t.Fatalf("expected shared-window rate limit, got %+v", errEv)
	}

	// Rooms can opt out of voice.
	if err := hub.do(ctx, func() {
		room := hub.registry.GetOrCreate("novoice", hub.now())
		room.Settings.AllowVoice = false
	}); err != nil {
		t.Fatalf("prepare room: %v", err)
	}
	bob.Commands <- &Command{Kind: CommandSendVoice, Room: "novoice", Voice: &VoicePayload{Data: "x", DurationSeconds: 1}}
	errEv = mustEvent(t, bob.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeVoiceDisabled {
		t.Fatalf("expected voice_disabled, got %+v", errEv)
	}
}

func TestHubMessageTooLong(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("a", "alice")
	hub.RegisterClient(alice)

	long := make([]rune, 201)
	for i := range long {
		long[i] = 'x'
	}
	alice.Commands <- &Command{Kind: CommandSendMessage, Text: string(long)}

	errEv := mustEvent(t, alice.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeMessageTooLong {
		t.Fatalf("expected message_too_long, got %+v", errEv)
	}
}

func TestHubTypingFansOutToJoinedRooms(t *testing.T) {
	hub, _ := newTestHub(t)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	carol := NewClient("c", "carol")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	hub.RegisterClient(carol)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	mustRoomEvent(t, alice.Events, EventUserJoined, "arena")

	alice.Commands <- &Command{Kind: CommandTyping, Typing: true}

	// Bob shares both rooms with alice, so he sees typing for each; room
	// fan-out order is not defined.
	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		ev := mustEvent(t, bob.Events, EventTyping)
		if ev.UserName != "alice" || !ev.Typing {
			t.Fatalf("unexpected typing event: %+v", ev)
		}
		seen[ev.Room] = true
	}
	if !seen[GlobalRoomCode] || !seen["arena"] {
		t.Fatalf("typing events missing a room: %v", seen)
	}

	// Carol only shares global.
	mustRoomEvent(t, carol.Events, EventTyping, GlobalRoomCode)

	alice.Commands <- &Command{Kind: CommandTyping, Typing: false}
	stopped := mustEvent(t, bob.Events, EventTyping)
	if stopped.Typing {
		t.Fatalf("expected typing=false event")
	}
}

func TestHubLeaveIsIdempotent(t *testing.T) {
	hub, ctx := newTestHub(t)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	bob.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	mustRoomEvent(t, alice.Events, EventUserJoined, "arena")

	alice.Commands <- &Command{Kind: CommandLeaveRoom, Room: "arena"}
	alice.Commands <- &Command{Kind: CommandLeaveRoom, Room: "arena"}
	alice.Commands <- &Command{Kind: CommandLeaveRoom, Room: "never-existed"}

	mustRoomEvent(t, bob.Events, EventUserLeft, "arena")

	var participants int
	if err := hub.do(ctx, func() {
		participants = hub.registry.Get("arena").Participants()
	}); err != nil {
		t.Fatalf("read room: %v", err)
	}
	if participants != 1 {
		t.Fatalf("participants = %d, want 1", participants)
	}
	// No error events were produced for the duplicate leaves.
	select {
	case ev := <-alice.Events:
		if ev.Kind == EventError {
			t.Fatalf("duplicate leave produced error: %+v", ev.Error)
		}
	default:
	}
}

func TestHubDisconnectCleansUpEverything(t *testing.T) {
	hub, ctx := newTestHub(t)

	alice := NewClient("a", "alice")
	bob := NewClient("b", "bob")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandJoinRoom, Room: "arena"}
	mustRoomEvent(t, alice.Events, EventHistory, "arena")

	before, err := hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if before.ActiveUsers != 2 {
		t.Fatalf("active users = %d, want 2", before.ActiveUsers)
	}

	hub.UnregisterClient(alice)

	after, err := hub.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if after.ActiveUsers != before.ActiveUsers-1 {
		t.Fatalf("active users = %d, want %d", after.ActiveUsers, before.ActiveUsers-1)
	}

	var inAnyRoom bool
	if err := hub.do(ctx, func() {
		for _, code := range []string{GlobalRoomCode, "arena"} {
			if room := hub.registry.Get(code); room != nil && room.Has(alice) {
				inAnyRoom = true
			}
		}
	}); err != nil {
		t.Fatalf("scan rooms: %v", err)
	}
	if inAnyRoom {
		t.Fatalf("disconnected client still appears in a participant set")
	}

	select {
	case <-alice.Done():
	case <-time.After(time.Second):
		t.Fatalf("done channel not closed on unregister")
	}

	// Bob shares the global room, so he saw the departure.
	mustRoomEvent(t, bob.Events, EventUserLeft, GlobalRoomCode)
}
