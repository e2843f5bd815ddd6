package http

import (
	"encoding/json"

	"github.com/paperdesk/paperchat-server/internal/core"
	"github.com/paperdesk/paperchat-server/internal/proto"
	"github.com/paperdesk/paperchat-server/internal/store"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom, proto.InboundTypeLeaveRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.PaperID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "paperId is required"}, nil
		}
		kind := core.CommandJoinRoom
		if inbound.Type == proto.InboundTypeLeaveRoom {
			kind = core.CommandLeaveRoom
		}
		return &core.Command{Kind: kind, PaperID: join.PaperID}, nil, nil
	case proto.InboundTypeSendMessage:
		var send proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &send); err != nil {
			return nil, nil, err
		}
		if send.PaperID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "paperId is required"}, nil
		}
		return &core.Command{
			Kind:       core.CommandSendMessage,
			PaperID:    send.PaperID,
			Body:       send.Message,
			ReceiverID: send.ReceiverID,
		}, nil, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		if typing.PaperID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "paperId is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandTyping,
			PaperID:  typing.PaperID,
			IsTyping: typing.IsTyping,
		}, nil, nil
	case proto.InboundTypeMarkRead:
		var markRead proto.MarkReadData
		if err := json.Unmarshal(inbound.Data, &markRead); err != nil {
			return nil, nil, err
		}
		if markRead.MessageID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "messageId is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandMarkRead,
			MessageID: markRead.MessageID,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func messagePayload(paperID int64, msg *store.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:         msg.ID,
		PaperID:    paperID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		IsRead:     msg.IsRead,
		TS:         msg.CreatedAt.Unix(),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoinedRoom:
		return proto.Outbound{
			Type: proto.OutboundTypeJoinedRoom,
			Data: proto.JoinedRoomPayload{PaperID: event.PaperID},
		}
	case core.EventMessageSent:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageSent,
			Data: messagePayload(event.PaperID, event.Message),
		}
	case core.EventReceiveMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeReceiveMessage,
			Data: proto.ReceiveMessagePayload{
				MessagePayload: messagePayload(event.PaperID, event.Message),
				IsForMe:        event.IsForMe,
			},
		}
	case core.EventMessageNotification:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageNotification,
			Data: proto.NotificationPayload{
				PaperID:    event.PaperID,
				SenderID:   event.SenderID,
				SenderName: event.SenderName,
				Message:    event.Message.Body,
				TS:         event.Message.CreatedAt.Unix(),
			},
		}
	case core.EventUserTyping:
		return proto.Outbound{
			Type: proto.OutboundTypeUserTyping,
			Data: proto.UserTypingPayload{
				PaperID:  event.PaperID,
				UserID:   event.UserID,
				Role:     string(event.Role),
				IsTyping: event.IsTyping,
			},
		}
	case core.EventMarkedRead:
		return proto.Outbound{
			Type: proto.OutboundTypeMarkedRead,
			Data: proto.MarkedReadPayload{MessageID: event.MessageID},
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
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}
