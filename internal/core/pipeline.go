//go:generate go run go.uber.org/mock/mockgen -source=pipeline.go -destination=mocks/mock_pipeline.go -package=mocks

package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Eligibility confirms a user exists and is not blacklisted.
// Implementations return ErrUserNotFound or ErrBlacklisted (possibly wrapped).
type Eligibility interface {
	Check(ctx context.Context, userID int64) error
}

// Moderator reports every forbidden word contained in content.
// Matching is case-insensitive substring containment.
type Moderator interface {
	FindForbidden(ctx context.Context, content string) ([]string, error)
}

// MessageStore persists messages. AppendMessage assigns ID and CreatedAt.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
}

// Pipeline runs the send-message steps: sender eligibility, receiver
// eligibility, moderation, persistence, delivery. Each step short-circuits.
type Pipeline struct {
	eligibility Eligibility
	moderator   Moderator
	store       MessageStore
	hub         *Hub
	log         zerolog.Logger
}

// NewPipeline wires the pipeline to its collaborators.
func NewPipeline(eligibility Eligibility, moderator Moderator, st MessageStore, hub *Hub, logger *zerolog.Logger) *Pipeline {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Pipeline{
		eligibility: eligibility,
		moderator:   moderator,
		store:       st,
		hub:         hub,
		log:         log,
	}
}

// Process validates and persists a message on behalf of senderID.
// Nothing is persisted unless every check passes.
func (p *Pipeline) Process(ctx context.Context, senderID int64, cmd SendMessage) (*Message, error) {
	if err := p.eligibility.Check(ctx, senderID); err != nil {
		return nil, fmt.Errorf("sender %d: %w", senderID, err)
	}
	if err := p.eligibility.Check(ctx, cmd.ReceiverID); err != nil {
		return nil, fmt.Errorf("receiver %d: %w", cmd.ReceiverID, err)
	}

	if cmd.Type == MessageTypeText {
		matched, err := p.moderator.FindForbidden(ctx, cmd.Content)
		if err != nil {
			return nil, fmt.Errorf("moderation: %w", err)
		}
		if len(matched) > 0 {
			return nil, &BlockedError{Words: matched}
		}
	}

	msg := &Message{
		SenderID:   senderID,
		ReceiverID: cmd.ReceiverID,
		Content:    cmd.Content,
		Type:       cmd.Type,
		IsRead:     false,
	}
	if err := p.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	return msg, nil
}

// Deliver echoes the message to the sending connection and fans it out to
// every live connection of the receiver.
func (p *Pipeline) Deliver(sender *Client, msg *Message) int {
	ev := &Event{Kind: EventNewMessage, Message: msg}

	delivered := 0
	if p.hub.Emit(sender.ID, ev) {
		delivered++
	}
	delivered += p.hub.EmitToUser(msg.ReceiverID, ev)
	return delivered
}

// Send runs the full pipeline for an authenticated connection.
// The returned error has not been reported to the client yet.
func (p *Pipeline) Send(ctx context.Context, sender *Client, cmd SendMessage) (*Message, error) {
	msg, err := p.Process(ctx, sender.UserID(), cmd)
	if err != nil {
		return nil, err
	}
	n := p.Deliver(sender, msg)
	p.log.Debug().
		Int64("message_id", msg.ID).
		Int64("sender_id", msg.SenderID).
		Int64("receiver_id", msg.ReceiverID).
		Int("deliveries", n).
		Msg("message delivered")
	return msg, nil
}
