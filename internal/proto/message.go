package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	EventSendMessage = "send_message"

	EventConnected      = "connected"
	EventNewMessage     = "new_message"
	EventMessageBlocked = "message_blocked"
	EventChatError      = "chat_error"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SendMessageData is a chat message from the client. Fields are left
// untyped so that shape errors are reported as invalid payloads rather than
// decode failures.
type SendMessageData struct {
	ReceiverID any `json:"receiverId"`
	Content    any `json:"content"`
	Type       any `json:"type"`
}

// ConnectedData acknowledges a successful handshake.
type ConnectedData struct {
	UserID int64 `json:"userId"`
}

// NewMessageData is a persisted message as delivered to live connections.
type NewMessageData struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageBlockedData reports every forbidden word found in a message.
type MessageBlockedData struct {
	Code         string   `json:"code"`
	Message      string   `json:"message"`
	MatchedWords []string `json:"matchedWords"`
}

// ChatErrorData describes a protocol-level error response.
type ChatErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
