package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"gamechat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	name := flag.String("name", "smoke-tester", "display name to announce with hello")
	room := flag.String("room", "global", "room to join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			return fmt.Errorf("marshal %s: %w", typ, marshalErr)
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); writeErr != nil {
			return fmt.Errorf("send %s: %w", typ, writeErr)
		}
		return nil
	}

	if err := send(proto.InboundTypeHello, proto.HelloData{Name: *name, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoin, proto.RoomData{Room: *room}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeMsg, proto.MsgData{Room: *room, Text: *text}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("Error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
		}

		switch outbound.Event {
		case proto.EventNameMessage:
			var evt proto.WireMessage
			if unmarshalErr := json.Unmarshal(outbound.Data, &evt); unmarshalErr != nil {
				fmt.Printf("Raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal message: %w", unmarshalErr)
			}
			fmt.Printf("Message: room=%s user=%s text=%q ts=%d\n", evt.Room, evt.Name, evt.Text, evt.TS)
			return nil
		case proto.EventNameHistory:
			var evt proto.EventHistory
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("History: room=%s messages=%d\n", evt.Room, len(evt.Messages))
			}
		case proto.EventNameUserJoined, proto.EventNameUserLeft:
			var evt proto.EventPresence
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Presence: room=%s user=%s\n", evt.Room, evt.Name)
			}
		default:
			// keep looping for the message echo
		}
	}
}
