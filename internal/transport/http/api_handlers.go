package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/service/users"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// APIHandlers provides HTTP handlers for authentication endpoints.
type APIHandlers struct {
	authService *auth.Service
	users       *users.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, userService *users.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		users:       userService,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SendRegisterCodeRequest asks for a sign-up code.
type SendRegisterCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Code     string `json:"code" binding:"required,len=6"`
}

// MailConfigRequest sets the SMTP account. An empty pass keeps the saved one.
type MailConfigRequest struct {
	Host      string `json:"host" binding:"required"`
	Port      int    `json:"port" binding:"required,min=1,max=65535"`
	Secure    bool   `json:"secure"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	FromEmail string `json:"fromEmail" binding:"required,email"`
}

// MailConfigResponse is the SMTP account with its password masked.
type MailConfigResponse struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Secure    bool   `json:"secure"`
	User      string `json:"user"`
	Pass      string `json:"pass"`
	FromEmail string `json:"fromEmail"`
}

func toMailConfigResponse(mc *store.MailConfig) MailConfigResponse {
	return MailConfigResponse{
		Host:      mc.Host,
		Port:      mc.Port,
		Secure:    mc.Secure,
		User:      mc.User,
		Pass:      mc.Pass,
		FromEmail: mc.FromEmail,
	}
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	IsBlacklisted bool      `json:"isBlacklisted"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toUserResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Role:          string(u.Role),
		IsBlacklisted: u.IsBlacklisted,
		CreatedAt:     u.CreatedAt,
	}
}

// Login handles user login.
// POST /api/auth/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		default:
			h.log.Error().Err(err).Msg("failed to login user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Int64("user_id", user.ID).Msg("user logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}

// SendRegisterCode mails a sign-up code.
// POST /api/auth/send-register-code
func (h *APIHandlers) SendRegisterCode(c *gin.Context) {
	var req SendRegisterCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.authService.SendRegisterCode(c.Request.Context(), req.Email); err != nil {
		h.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Register creates a USER account from an emailed code.
// POST /api/auth/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, user, err := h.authService.Register(c.Request.Context(), req.Email, req.Code, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	h.log.Info().Int64("user_id", user.ID).Msg("user registered successfully")
	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(user)})
}

// GetMailConfig returns the SMTP account.
// GET /api/admin/mail-config
func (h *APIHandlers) GetMailConfig(c *gin.Context) {
	mc, err := h.authService.MailConfig(c.Request.Context())
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMailConfigResponse(mc))
}

// PutMailConfig creates or replaces the SMTP account.
// PUT /api/admin/mail-config
func (h *APIHandlers) PutMailConfig(c *gin.Context) {
	var req MailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	mc, err := h.authService.SaveMailConfig(c.Request.Context(), store.MailConfig{
		Host:      req.Host,
		Port:      req.Port,
		Secure:    req.Secure,
		User:      req.User,
		Pass:      req.Pass,
		FromEmail: req.FromEmail,
	})
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMailConfigResponse(mc))
}

func (h *APIHandlers) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrCodeExpired),
		errors.Is(err, auth.ErrInvalidMailConfig),
		errors.Is(err, auth.ErrMailPassRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrMailNotConfigured):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrMailDelivery):
		h.log.Warn().Err(err).Msg("failed to send mail")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: auth.ErrMailDelivery.Error()})
	default:
		h.log.Error().Err(err).Msg("auth operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *APIHandlers) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to load current user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}
