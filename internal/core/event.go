package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnected acknowledges a successful handshake.
	EventConnected EventKind = iota
	// EventNewMessage delivers a persisted message.
	EventNewMessage
	// EventMessageBlocked tells the sender that moderation rejected the message.
	EventMessageBlocked
	// EventChatError notifies the client about a rejected operation.
	EventChatError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventNewMessage:
		return "new_message"
	case EventMessageBlocked:
		return "message_blocked"
	case EventChatError:
		return "chat_error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind         EventKind
	UserID       int64    // EventConnected
	Message      *Message // EventNewMessage
	MatchedWords []string // EventMessageBlocked
	Error        *CoreError
}
