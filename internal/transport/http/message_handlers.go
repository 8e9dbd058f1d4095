package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/service/messages"
)

// MessageHandlers serves message history.
type MessageHandlers struct {
	messages *messages.Service
	log      *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *messages.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{messages: svc, log: logger}
}

// MessageResponse is a stored message as listed by the history API.
type MessageResponse struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ConversationResponse summarizes the exchange with one peer.
type ConversationResponse struct {
	PeerID      int64            `json:"peerId"`
	LastMessage *MessageResponse `json:"lastMessage"`
	UnreadCount int              `json:"unreadCount"`
}

func toMessageResponse(m *core.Message, _ int) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Type:       string(m.Type),
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// History handles GET /api/messages?peerId=&page=&pageSize=.
func (h *MessageHandlers) History(c *gin.Context) {
	var peerID int64
	if raw := c.Query("peerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid peerId"})
			return
		}
		peerID = id
	}

	page := pageFromQuery(c)
	hist, err := h.messages.History(c.Request.Context(), currentUserID(c), peerID, page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(lo.Map(hist.Messages, toMessageResponse), hist.Total, page))
}

// Conversations handles GET /api/messages/conversations.
func (h *MessageHandlers) Conversations(c *gin.Context) {
	page := pageFromQuery(c)
	convs, total, err := h.messages.Conversations(c.Request.Context(), currentUserID(c), page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	items := lo.Map(convs, func(cv *messages.Conversation, _ int) ConversationResponse {
		resp := ConversationResponse{PeerID: cv.PeerID, UnreadCount: cv.UnreadCount}
		if cv.LastMessage != nil {
			resp.LastMessage = lo.ToPtr(toMessageResponse(cv.LastMessage, 0))
		}
		return resp
	})
	c.JSON(http.StatusOK, newPageResponse(items, total, page))
}

// GetMessage handles GET /api/messages/:id.
func (h *MessageHandlers) GetMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msg, err := h.messages.Get(c.Request.Context(), currentUserID(c), isAdmin(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMessageResponse(msg, 0))
}

// DeleteMessage handles DELETE /api/messages/:id.
func (h *MessageHandlers) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.messages.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteConversation handles DELETE /api/messages/peer/:peerId.
func (h *MessageHandlers) DeleteConversation(c *gin.Context) {
	peerID, ok := pathID(c, "peerId")
	if !ok {
		return
	}
	n, err := h.messages.DeleteConversation(c.Request.Context(), currentUserID(c), peerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *MessageHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, messages.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, messages.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("message operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
