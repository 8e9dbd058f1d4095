package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/supportchat-server/internal/mail"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

const (
	// CodeTTL is how long an emailed sign-up code stays valid.
	CodeTTL = 10 * time.Minute

	codeLength    = 6
	maskedMailPwd = "******"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidEmail is returned for malformed addresses.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrUserExists is returned when trying to register an existing email.
	ErrUserExists = errors.New("email already registered")
	// ErrInvalidCode is returned when no unused code matches.
	ErrInvalidCode = errors.New("invalid code")
	// ErrCodeExpired is returned when the matching code is past its expiry.
	ErrCodeExpired = errors.New("code expired")
	// ErrMailNotConfigured is returned until an admin saves a mail config.
	ErrMailNotConfigured = errors.New("mail config not set")
	// ErrMailPassRequired is returned when a mail config would have no password.
	ErrMailPassRequired = errors.New("smtp password is required")
	// ErrInvalidMailConfig is returned for incomplete mail settings.
	ErrInvalidMailConfig = errors.New("invalid mail config")
	// ErrMailDelivery wraps failures reported by the mailer.
	ErrMailDelivery = errors.New("mail delivery failed")
)

var validate = validator.New()

// Mailer delivers a message through the given SMTP account.
type Mailer interface {
	Send(ctx context.Context, s mail.Settings, msg mail.Message) error
}

// Service provides authentication operations.
type Service struct {
	store     store.AuthStore
	mailer    Mailer
	jwtConfig *JWTConfig
	now       func() time.Time
}

// NewService creates a new authentication service. mailer may be nil when
// sign-up codes are never sent.
func NewService(st store.AuthStore, mailer Mailer, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     st,
		mailer:    mailer,
		jwtConfig: jwtConfig,
		now:       time.Now,
	}
}

// Login validates credentials and returns a signed token. Blacklisted users
// may sign in; the chat gate refuses them.
func (s *Service) Login(ctx context.Context, email, password string) (string, *store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, user, nil
}

// SendRegisterCode issues a sign-up code for email and mails it.
func (s *Service) SendRegisterCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return err
	}

	cfg, err := s.mailConfig(ctx)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return ErrMailNotConfigured
	}

	code, err := newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	ec := &store.EmailCode{
		Email:     email,
		Code:      code,
		Purpose:   store.PurposeRegister,
		ExpiresAt: s.now().Add(CodeTTL),
	}
	if err := s.store.CreateEmailCode(ctx, ec); err != nil {
		return fmt.Errorf("save code: %w", err)
	}

	msg := mail.Message{
		To:      email,
		Subject: "Support chat register code",
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(CodeTTL/time.Minute)),
	}
	if err := s.mailer.Send(ctx, settingsFrom(cfg), msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}
	return nil
}

// Register consumes a sign-up code and creates a USER account.
func (s *Service) Register(ctx context.Context, email, code, password string) (string, *store.User, error) {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", nil, ErrInvalidEmail
	}
	if len(code) != codeLength {
		return "", nil, ErrInvalidCode
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return "", nil, err
	}

	ec, err := s.store.FindEmailCode(ctx, email, code, store.PurposeRegister)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCode
		}
		return "", nil, fmt.Errorf("find code: %w", err)
	}
	if ec.ExpiresAt.Before(s.now()) {
		return "", nil, ErrCodeExpired
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", nil, err
	}

	if err := s.store.UseEmailCode(ctx, ec.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCode
		}
		return "", nil, fmt.Errorf("use code: %w", err)
	}

	user, err := s.store.CreateUser(ctx, email, hash, store.RoleUser)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return "", nil, ErrUserExists
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

// MailConfig returns the SMTP account with the password masked.
func (s *Service) MailConfig(ctx context.Context) (*store.MailConfig, error) {
	cfg, err := s.mailConfig(ctx)
	if err != nil {
		return nil, err
	}
	return masked(cfg), nil
}

// SaveMailConfig stores cfg. An empty password keeps the saved one.
func (s *Service) SaveMailConfig(ctx context.Context, cfg store.MailConfig) (*store.MailConfig, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.FromEmail = strings.TrimSpace(cfg.FromEmail)
	if cfg.Host == "" || cfg.Port < 1 || cfg.Port > 65535 {
		return nil, ErrInvalidMailConfig
	}
	if err := validate.Var(cfg.FromEmail, "required,email"); err != nil {
		return nil, ErrInvalidMailConfig
	}

	if cfg.Pass == "" {
		current, err := s.store.GetMailConfig(ctx)
		switch {
		case err == nil:
			cfg.Pass = current.Pass
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("get mail config: %w", err)
		}
	}
	if cfg.Pass == "" {
		return nil, ErrMailPassRequired
	}

	if err := s.store.SaveMailConfig(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("save mail config: %w", err)
	}
	return masked(&cfg), nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// Verify implements the chat gate's authenticator: it returns the token's
// numeric subject.
func (s *Service) Verify(tokenString string) (int64, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrUserExists
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("get user: %w", err)
	}
}

func (s *Service) mailConfig(ctx context.Context) (*store.MailConfig, error) {
	cfg, err := s.store.GetMailConfig(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMailNotConfigured
		}
		return nil, fmt.Errorf("get mail config: %w", err)
	}
	return cfg, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newCode returns a uniformly random six-digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func masked(cfg *store.MailConfig) *store.MailConfig {
	out := *cfg
	if out.Pass != "" {
		out.Pass = maskedMailPwd
	}
	return &out
}

func settingsFrom(cfg *store.MailConfig) mail.Settings {
	return mail.Settings{
		Host:   cfg.Host,
		Port:   cfg.Port,
		Secure: cfg.Secure,
		User:   cfg.User,
		Pass:   cfg.Pass,
		From:   cfg.FromEmail,
	}
}
