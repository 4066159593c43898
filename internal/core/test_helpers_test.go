package core

import (
	"context"
	"testing"
	"time"
)

func newTestHub(t *testing.T) (*Hub, context.Context) {
	t.Helper()

	hub := NewHub(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub, ctx
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()
	return mustRoomEvent(t, ch, kind, "")
}

// mustRoomEvent waits for the next event of the given kind, optionally
// constrained to one room. Events of other kinds are discarded.
func mustRoomEvent(t *testing.T, ch <-chan *Event, kind EventKind, room string) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind && (room == "" || ev.Room == room) {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v (room %q) not received", kind, room)
	return nil
}

func drainEvents(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
