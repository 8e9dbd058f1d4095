package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/proto"
)

func TestOutboundFromEvent(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name  string
		event *core.Event
		want  string
	}{
		{
			name:  "connected",
			event: &core.Event{Kind: core.EventConnected, UserID: 7},
			want:  `{"event":"connected","data":{"userId":7}}`,
		},
		{
			name: "new message carries only the wire fields",
			event: &core.Event{Kind: core.EventNewMessage, Message: &core.Message{
				ID: 1, SenderID: 2, ReceiverID: 3, Content: "hi", Type: core.MessageTypeText, IsRead: true, CreatedAt: created,
			}},
			want: `{"event":"new_message","data":{"id":1,"senderId":2,"receiverId":3,"content":"hi","type":"TEXT","createdAt":"2025-01-02T03:04:05Z"}}`,
		},
		{
			name:  "blocked",
			event: &core.Event{Kind: core.EventMessageBlocked, MatchedWords: []string{"a", "b"}},
			want:  `{"event":"message_blocked","data":{"code":"FORBIDDEN_WORD","message":"Message contains forbidden words","matchedWords":["a","b"]}}`,
		},
		{
			name:  "chat error",
			event: core.EventForError(core.ErrBlacklisted),
			want:  `{"event":"chat_error","data":{"code":"BLACKLISTED","message":"You have been blacklisted"}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(outboundFromEvent(tc.event))
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("unexpected frame:\n got %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestInboundHandlersCoverClientEvents(t *testing.T) {
	if _, ok := inboundHandlers[proto.EventSendMessage]; !ok {
		t.Fatal("send_message must be dispatched")
	}
	for _, serverOnly := range []string{proto.EventConnected, proto.EventNewMessage, proto.EventChatError} {
		if _, ok := inboundHandlers[serverOnly]; ok {
			t.Fatalf("%s is server-to-client only", serverOnly)
		}
	}
}
