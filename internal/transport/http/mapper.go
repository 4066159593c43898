package http

import (
	"encoding/json"

	"gamechat/internal/core"
	"gamechat/internal/proto"
)

// maxVoiceDataBytes caps the encoded audio accepted in a single voice
// message before it ever reaches the hub.
const maxVoiceDataBytes = 256 * 1024

// inboundToCommand validates a client frame and converts it to a typed
// command. Malformed frames produce a protocol error and never reach the
// hub; identity and timestamps are not mapped because the hub stamps both.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			Room:    msg.Room,
			Text:    msg.Text,
			Emoji:   msg.Emoji,
			ReplyTo: msg.ReplyTo,
		}, nil, nil
	case proto.InboundTypeVoice:
		var voice proto.VoiceData
		if err := json.Unmarshal(inbound.Data, &voice); err != nil {
			return nil, nil, err
		}
		if voice.Data == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "voice data is required"}, nil
		}
		if len(voice.Data) > maxVoiceDataBytes {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "voice data too large"}, nil
		}
		if voice.DurationSeconds <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "duration_seconds must be positive"}, nil
		}
		return &core.Command{
			Kind: core.CommandSendVoice,
			Room: voice.Room,
			Voice: &core.VoicePayload{
				Data:            voice.Data,
				DurationSeconds: voice.DurationSeconds,
				Waveform:        voice.Waveform,
			},
		}, nil, nil
	case proto.InboundTypeJoin:
		var join proto.RoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: join.Room}, nil, nil
	case proto.InboundTypeLeave:
		var leave proto.RoomData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		return &core.Command{Kind: core.CommandLeaveRoom, Room: leave.Room}, nil, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandTyping, Typing: typing.IsTyping}, nil, nil
	case proto.InboundTypeHello:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "hello is only valid as the first message"}, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func wireMessage(msg *core.Message) proto.WireMessage {
	wm := proto.WireMessage{
		ID:        msg.ID,
		Room:      msg.Room,
		User:      msg.AuthorID,
		Name:      msg.AuthorName,
		Text:      msg.Body,
		Kind:      string(msg.Kind),
		TS:        msg.CreatedAt.Unix(),
		Moderated: msg.IsModerated,
		ReplyTo:   msg.ReplyTo,
	}
	if msg.Voice != nil {
		wm.Voice = &proto.WireVoice{
			Data:            msg.Voice.Data,
			DurationSeconds: msg.Voice.DurationSeconds,
			Waveform:        msg.Voice.Waveform,
		}
	}
	return wm
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventWelcome:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameWelcome,
			Data: proto.EventWelcome{
				User:     event.User,
				Name:     event.UserName,
				Room:     event.Room,
				Protocol: proto.ProtocolVersion,
			},
		}
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  wireMessage(event.Message),
		}
	case core.EventVoiceMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameVoiceMessage,
			Data:  wireMessage(event.Message),
		}
	case core.EventHistory:
		messages := make([]proto.WireMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, wireMessage(msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				Room:     event.Room,
				Messages: messages,
			},
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserJoined,
			Data: proto.EventPresence{
				Room: event.Room,
				User: event.User,
				Name: event.UserName,
			},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameUserLeft,
			Data: proto.EventPresence{
				Room: event.Room,
				User: event.User,
				Name: event.UserName,
			},
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameTyping,
			Data: proto.EventTyping{
				Room:     event.Room,
				User:     event.User,
				Name:     event.UserName,
				IsTyping: event.Typing,
			},
		}
	case core.EventMessageModerated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessageModerated,
			Data: proto.EventMessageModerated{
				Room:      event.Room,
				MessageID: event.MessageID,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
