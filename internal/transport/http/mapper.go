package http

import (
	"context"
	"encoding/json"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/proto"
)

// eventHandler handles one inbound event type for an authenticated client.
type eventHandler func(ctx context.Context, gate *core.Gate, client *core.Client, data json.RawMessage) error

var inboundHandlers = map[string]eventHandler{
	proto.EventSendMessage: handleSendMessage,
}

func dispatch(ctx context.Context, gate *core.Gate, client *core.Client, inbound proto.Inbound) error {
	handler, ok := inboundHandlers[inbound.Event]
	if !ok {
		return gate.Reject(client, core.ErrUnknownEvent)
	}
	return handler(ctx, gate, client, inbound.Data)
}

func handleSendMessage(ctx context.Context, gate *core.Gate, client *core.Client, data json.RawMessage) error {
	var payload proto.SendMessageData
	if len(data) == 0 || json.Unmarshal(data, &payload) != nil {
		return gate.Reject(client, core.ErrInvalidPayload)
	}
	return gate.SendMessage(ctx, client, payload.ReceiverID, payload.Content, payload.Type)
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventConnected:
		return proto.Outbound{
			Event: proto.EventConnected,
			Data:  proto.ConnectedData{UserID: event.UserID},
		}
	case core.EventNewMessage:
		return proto.Outbound{
			Event: proto.EventNewMessage,
			Data:  messageData(event.Message),
		}
	case core.EventMessageBlocked:
		return proto.Outbound{
			Event: proto.EventMessageBlocked,
			Data: proto.MessageBlockedData{
				Code:         core.ErrCodeForbiddenWord,
				Message:      "Message contains forbidden words",
				MatchedWords: event.MatchedWords,
			},
		}
	case core.EventChatError:
		if event.Error == nil {
			return chatError(core.ChatErrorFor(core.ErrInvalidPayload))
		}
		return chatError(event.Error)
	default:
		return chatError(core.ChatErrorFor(core.ErrUnknownEvent))
	}
}

func chatError(err *core.CoreError) proto.Outbound {
	return proto.Outbound{
		Event: proto.EventChatError,
		Data:  proto.ChatErrorData{Code: err.Code, Message: err.Message},
	}
}

func messageData(m *core.Message) proto.NewMessageData {
	return proto.NewMessageData{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Type:       string(m.Type),
		CreatedAt:  m.CreatedAt,
	}
}
