package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes sent to clients in chat_error and message_blocked events.
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeUserNotFound  = "USER_NOT_FOUND"
	ErrCodeBlacklisted   = "BLACKLISTED"
	ErrCodeChatRejected  = "CHAT_REJECTED"
	ErrCodeForbiddenWord = "FORBIDDEN_WORD"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUserNotFound   = errors.New("user not found")
	ErrBlacklisted    = errors.New("user is blacklisted")
	ErrInvalidPayload = errors.New("invalid message payload")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrUnknownEvent   = errors.New("unknown event")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// BlockedError reports every forbidden word found in a TEXT message.
type BlockedError struct {
	Words []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("message contains forbidden words: %s", strings.Join(e.Words, ", "))
}

// ChatErrorFor maps a pipeline or gate failure to its wire error.
// Unclassified errors become CHAT_REJECTED so infrastructure details never leak.
func ChatErrorFor(err error) *CoreError {
	var ce *CoreError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrUnauthorized):
		return coreError(ErrCodeUnauthorized, "Missing or invalid token")
	case errors.Is(err, ErrBlacklisted):
		return coreError(ErrCodeBlacklisted, "You have been blacklisted")
	case errors.Is(err, ErrUserNotFound):
		return coreError(ErrCodeUserNotFound, "User not found")
	case errors.Is(err, ErrInvalidPayload):
		return coreError(ErrCodeChatRejected, "Invalid message payload")
	case errors.Is(err, ErrRateLimited):
		return coreError(ErrCodeChatRejected, "Too many messages, slow down")
	case errors.Is(err, ErrUnknownEvent):
		return coreError(ErrCodeChatRejected, "Unknown event")
	default:
		return coreError(ErrCodeChatRejected, "Message rejected")
	}
}

// EventForError is the single translation step from a failed send to the
// event delivered back to the sender.
func EventForError(err error) *Event {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return &Event{Kind: EventMessageBlocked, MatchedWords: blocked.Words}
	}
	return &Event{Kind: EventChatError, Error: ChatErrorFor(err)}
}
