package core

import "time"

// MessageType distinguishes plain text from image links.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
)

// Message is the domain model for a persisted chat message.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	Type       MessageType
	IsRead     bool
	CreatedAt  time.Time
}
