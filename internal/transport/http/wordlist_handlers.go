package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/service/wordlist"
)

// WordListHandlers serves forbidden words and quick phrases.
type WordListHandlers struct {
	svc *wordlist.Service
	log *zerolog.Logger
}

// NewWordListHandlers creates a new handlers instance.
func NewWordListHandlers(svc *wordlist.Service, logger *zerolog.Logger) *WordListHandlers {
	return &WordListHandlers{svc: svc, log: logger}
}

// WordRequest is the body for creating or renaming a forbidden word.
type WordRequest struct {
	Word string `json:"word" binding:"required"`
}

// WordResponse represents a forbidden word.
type WordResponse struct {
	ID   int64  `json:"id"`
	Word string `json:"word"`
}

// PhraseRequest is the body for quick phrase writes. PATCH accepts partial bodies.
type PhraseRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// PhraseResponse represents a quick phrase.
type PhraseResponse struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ListWords handles GET /api/forbidden-words.
func (h *WordListHandlers) ListWords(c *gin.Context) {
	words, err := h.svc.ListWords(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]WordResponse, 0, len(words))
	for _, w := range words {
		resp = append(resp, WordResponse{ID: w.ID, Word: w.Word})
	}
	c.JSON(http.StatusOK, resp)
}

// CreateWord handles POST /api/forbidden-words.
func (h *WordListHandlers) CreateWord(c *gin.Context) {
	var req WordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	w, err := h.svc.CreateWord(c.Request.Context(), req.Word)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.Info().Int64("word_id", w.ID).Msg("forbidden word added")
	c.JSON(http.StatusCreated, WordResponse{ID: w.ID, Word: w.Word})
}

// UpdateWord handles PATCH /api/forbidden-words/:id.
func (h *WordListHandlers) UpdateWord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req WordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	w, err := h.svc.UpdateWord(c.Request.Context(), id, req.Word)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, WordResponse{ID: w.ID, Word: w.Word})
}

// DeleteWord handles DELETE /api/forbidden-words/:id.
func (h *WordListHandlers) DeleteWord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteWord(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPhrases handles GET /api/quick-phrases.
func (h *WordListHandlers) ListPhrases(c *gin.Context) {
	phrases, err := h.svc.ListPhrases(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]PhraseResponse, 0, len(phrases))
	for _, p := range phrases {
		resp = append(resp, PhraseResponse{ID: p.ID, Title: p.Title, Content: p.Content})
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePhrase handles POST /api/quick-phrases.
func (h *WordListHandlers) CreatePhrase(c *gin.Context) {
	var req PhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == nil || req.Content == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	p, err := h.svc.CreatePhrase(c.Request.Context(), *req.Title, *req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, PhraseResponse{ID: p.ID, Title: p.Title, Content: p.Content})
}

// UpdatePhrase handles PATCH /api/quick-phrases/:id.
func (h *WordListHandlers) UpdatePhrase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	p, err := h.svc.UpdatePhrase(c.Request.Context(), id, req.Title, req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, PhraseResponse{ID: p.ID, Title: p.Title, Content: p.Content})
}

// DeletePhrase handles DELETE /api/quick-phrases/:id.
func (h *WordListHandlers) DeletePhrase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePhrase(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WordListHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wordlist.ErrWordNotFound), errors.Is(err, wordlist.ErrPhraseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, wordlist.ErrWordExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, wordlist.ErrEmptyWord), errors.Is(err, wordlist.ErrEmptyPhrase):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("word list operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
