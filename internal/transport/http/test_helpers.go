package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"gamechat/internal/auth"
	"gamechat/internal/config"
	"gamechat/internal/core"
	"gamechat/internal/proto"
)

const (
	testJWTSecret  = "test-secret"
	testAdminToken = "test-admin-token"
)

func testConfig() config.Config {
	return config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxFrameBytes:     1 << 20,
		JWTSecret:         testJWTSecret,
		JWTIssuer:         "test",
		JWTAudience:       "test",
		AdminToken:        testAdminToken,
	}
}

// startTestServer wires a hub, guest auth and the HTTP server around an
// httptest listener.
func startTestServer(t *testing.T) (*httptest.Server, *core.Hub) {
	t.Helper()

	logger := zerolog.Nop()
	cfg := testConfig()

	hub := core.NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	authService := auth.NewService(&auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})

	server := NewServer(hub, authService, cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, hub
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, wsURL(ts), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s data: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s frame: %v", typ, err)
	}
}

// testOutbound mirrors proto.Outbound with raw data for test-side decoding.
type testOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func readOutbound(t *testing.T, ctx context.Context, conn *websocket.Conn) testOutbound {
	t.Helper()

	var out testOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// waitEvent reads frames until one carries the named event, discarding
// everything else.
func waitEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	for i := 0; i < 50; i++ {
		out := readOutbound(t, ctx, conn)
		if out.Type == proto.OutboundTypeEvent && out.Event == event {
			return out.Data
		}
	}
	t.Fatalf("event %q not received", event)
	return nil
}

// waitHistory waits for the history event of a specific room; earlier
// history events (the auto-joined global room's) are discarded.
func waitHistory(t *testing.T, ctx context.Context, conn *websocket.Conn, room string) proto.EventHistory {
	t.Helper()

	for i := 0; i < 50; i++ {
		data := waitEvent(t, ctx, conn, proto.EventNameHistory)
		var history proto.EventHistory
		if err := json.Unmarshal(data, &history); err != nil {
			t.Fatalf("unmarshal history: %v", err)
		}
		if history.Room == room {
			return history
		}
	}
	t.Fatalf("history for room %q not received", room)
	return proto.EventHistory{}
}

func waitError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for i := 0; i < 50; i++ {
		out := readOutbound(t, ctx, conn)
		if out.Type == proto.OutboundTypeError {
			if out.Error == nil {
				t.Fatalf("error frame without error body")
			}
			return out.Error
		}
	}
	t.Fatalf("error frame not received")
	return nil
}
