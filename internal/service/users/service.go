package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/service/paging"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

// Common errors for user operations.
var (
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidRole   = errors.New("invalid role")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUserNotFound  = errors.New("user not found")
	ErrCannotDelSelf = errors.New("cannot delete yourself")
)

// Service provides user management and the eligibility check used by the
// chat pipeline.
type Service struct {
	store store.UserStore
}

// New creates a new user service.
func New(st store.UserStore) *Service {
	return &Service{store: st}
}

// Check reports whether userID exists and may chat.
func (s *Service) Check(ctx context.Context, userID int64) error {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.ErrUserNotFound
		}
		return fmt.Errorf("eligibility: %w", err)
	}
	if u.IsBlacklisted {
		return core.ErrBlacklisted
	}
	return nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id int64) (*store.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// List returns a page of users and the total count.
func (s *Service) List(ctx context.Context, page paging.Page) ([]*store.User, int, error) {
	users, total, err := s.store.ListUsers(ctx, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Create registers a new account. Registration is admin-driven.
func (s *Service) Create(ctx context.Context, email, password string, role store.Role) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if role == "" {
		role = store.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.store.CreateUser(ctx, email, hash, role)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Update changes role, blacklist flag or password of a user.
func (s *Service) Update(ctx context.Context, id int64, role *store.Role, blacklisted *bool, password *string) (*store.User, error) {
	if role != nil && !role.Valid() {
		return nil, ErrInvalidRole
	}
	upd := store.UserUpdate{Role: role, IsBlacklisted: blacklisted}
	if password != nil {
		hash, err := auth.HashPassword(*password)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}

	u, err := s.store.UpdateUser(ctx, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// Delete removes a user; their messages go with them.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrCannotDelSelf
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
