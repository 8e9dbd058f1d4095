package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/service/paging"
	"github.com/vovakirdan/supportchat-server/internal/service/users"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// UserHandlers provides HTTP handlers for user administration.
type UserHandlers struct {
	users *users.Service
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(userService *users.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		users: userService,
		log:   logger,
	}
}

// CreateUserRequest represents the body of POST /api/users.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents the body of PATCH /api/users/:id.
type UpdateUserRequest struct {
	Role          *string `json:"role"`
	IsBlacklisted *bool   `json:"isBlacklisted"`
	Password      *string `json:"password"`
}

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

func newPageResponse[T any](items []T, total int, page paging.Page) PageResponse[T] {
	page = page.Normalize()
	return PageResponse[T]{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages(total),
	}
}

// pageFromQuery reads page and pageSize query parameters.
func pageFromQuery(c *gin.Context) paging.Page {
	var q struct {
		Page     int `form:"page"`
		PageSize int `form:"pageSize"`
	}
	_ = c.ShouldBindQuery(&q)
	return paging.Page{Number: q.Page, Size: q.PageSize}.Normalize()
}

// ListUsers handles GET /api/users.
func (h *UserHandlers) ListUsers(c *gin.Context) {
	page := pageFromQuery(c)
	list, total, err := h.users.List(c.Request.Context(), page)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, newPageResponse(lo.Map(list, func(u *store.User, _ int) UserResponse {
		return toUserResponse(u)
	}), total, page))
}

// CreateUser handles POST /api/users.
func (h *UserHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	u, err := h.users.Create(c.Request.Context(), req.Email, req.Password, store.Role(req.Role))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.log.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("user created")
	c.JSON(http.StatusCreated, toUserResponse(u))
}

// UpdateUser handles PATCH /api/users/:id.
func (h *UserHandlers) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var role *store.Role
	if req.Role != nil {
		role = lo.ToPtr(store.Role(*req.Role))
	}
	u, err := h.users.Update(c.Request.Context(), id, role, req.IsBlacklisted, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.log.Info().Int64("user_id", u.ID).Bool("blacklisted", u.IsBlacklisted).Msg("user updated")
	c.JSON(http.StatusOK, toUserResponse(u))
}

// DeleteUser handles DELETE /api/users/:id.
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, users.ErrInvalidEmail),
		errors.Is(err, users.ErrInvalidRole),
		errors.Is(err, users.ErrCannotDelSelf),
		errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("user operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
