package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/service/paging"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// Common errors for message operations.
var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotParticipant  = errors.New("not a participant of this message")
)

// History is one page of messages.
type History struct {
	Messages   []*core.Message
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Conversation is the last message exchanged with a peer plus the number
// of unread messages from that peer.
type Conversation struct {
	PeerID      int64
	LastMessage *core.Message
	UnreadCount int
}

// Service persists chat messages and serves history.
type Service struct {
	store store.MessageStore
}

// New creates a new message service.
func New(st store.MessageStore) *Service {
	return &Service{store: st}
}

// AppendMessage persists msg and fills in its id and creation time.
func (s *Service) AppendMessage(ctx context.Context, msg *core.Message) error {
	row := &store.Message{
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		Type:       string(msg.Type),
	}
	if err := s.store.SaveMessage(ctx, row); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	msg.ID = row.ID
	msg.IsRead = row.IsRead
	msg.CreatedAt = row.CreatedAt
	return nil
}

// History returns userID's messages, newest first. When peerID is non-zero
// only the conversation with peerID is returned and the peer's messages to
// userID are marked read.
func (s *Service) History(ctx context.Context, userID, peerID int64, page paging.Page) (*History, error) {
	page = page.Normalize()
	if peerID != 0 {
		if _, err := s.store.MarkRead(ctx, userID, peerID); err != nil {
			return nil, fmt.Errorf("mark read: %w", err)
		}
	}

	rows, total, err := s.store.ListMessages(ctx, store.MessageQuery{
		UserID: userID,
		PeerID: peerID,
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]*core.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromStore(r))
	}
	return &History{
		Messages:   out,
		Total:      total,
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages(total),
	}, nil
}

// Conversations returns one entry per peer, most recent first.
func (s *Service) Conversations(ctx context.Context, userID int64, page paging.Page) ([]*Conversation, int, error) {
	page = page.Normalize()
	rows, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}

	total := len(rows)
	start := min(page.Offset(), total)
	end := min(start+page.Limit(), total)

	out := make([]*Conversation, 0, end-start)
	for _, c := range rows[start:end] {
		out = append(out, &Conversation{
			PeerID:      c.PeerID,
			LastMessage: fromStore(c.LastMessage),
			UnreadCount: c.UnreadCount,
		})
	}
	return out, total, nil
}

// Get returns a message visible to userID. Admins see every message.
func (s *Service) Get(ctx context.Context, userID int64, isAdmin bool, id int64) (*core.Message, error) {
	row, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	if !isAdmin && row.SenderID != userID && row.ReceiverID != userID {
		return nil, ErrNotParticipant
	}
	return fromStore(row), nil
}

// Delete removes a single message.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// DeleteConversation removes every message between userID and peerID.
func (s *Service) DeleteConversation(ctx context.Context, userID, peerID int64) (int64, error) {
	n, err := s.store.DeleteConversation(ctx, userID, peerID)
	if err != nil {
		return 0, fmt.Errorf("delete conversation: %w", err)
	}
	return n, nil
}

func fromStore(m *store.Message) *core.Message {
	if m == nil {
		return nil
	}
	return &core.Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Type:       core.MessageType(m.Type),
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}
