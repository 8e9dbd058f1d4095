package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/service/uploads"
	"github.com/vovakirdan/supportchat-server/internal/service/users"
)

// UploadHandlers accepts image uploads for IMAGE messages.
type UploadHandlers struct {
	uploads *uploads.Service
	users   *users.Service
	log     *zerolog.Logger
}

// NewUploadHandlers creates a new upload handlers instance.
func NewUploadHandlers(svc *uploads.Service, userService *users.Service, logger *zerolog.Logger) *UploadHandlers {
	return &UploadHandlers{uploads: svc, users: userService, log: logger}
}

// Upload handles POST /api/upload with a multipart "file" field.
func (h *UploadHandlers) Upload(c *gin.Context) {
	userID := currentUserID(c)
	if err := h.users.Check(c.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, core.ErrBlacklisted):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "user is blacklisted"})
		case errors.Is(err, core.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "user not found"})
		default:
			h.log.Error().Err(err).Msg("eligibility check failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read file"})
		return
	}
	defer f.Close()

	url, err := h.uploads.Save(f)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrNotImage):
			c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: err.Error()})
		case errors.Is(err, uploads.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Msg("failed to store upload")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Int64("user_id", userID).Str("url", url).Msg("file uploaded")
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// Cleanup handles DELETE /api/upload/cleanup?days=N.
func (h *UploadHandlers) Cleanup(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid days"})
		return
	}
	removed, err := h.uploads.Cleanup(days)
	if err != nil {
		if errors.Is(err, uploads.ErrInvalidDays) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("upload cleanup failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	h.log.Info().Int("folders", len(removed)).Msg("uploads cleaned up")
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
