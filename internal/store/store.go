package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("already exists")
)

// Role is a user's authorization level.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents an end user or a staff member.
type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	Role          Role
	IsBlacklisted bool
	CreatedAt     time.Time
}

// UserUpdate carries optional user fields; nil fields are left unchanged.
type UserUpdate struct {
	Role          *Role
	IsBlacklisted *bool
	PasswordHash  *string
}

// Message represents a persisted chat message.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	Type       string
	IsRead     bool
	CreatedAt  time.Time
}

// MessageQuery selects messages that involve UserID, optionally narrowed to
// the conversation with PeerID.
type MessageQuery struct {
	UserID int64
	PeerID int64 // 0 means any peer
	Limit  int
	Offset int
}

// Conversation summarizes the exchange between a user and one peer.
type Conversation struct {
	PeerID      int64
	LastMessage *Message
	UnreadCount int
}

// ForbiddenWord is one entry of the moderation list.
type ForbiddenWord struct {
	ID   int64
	Word string
}

// QuickPhrase is a canned reply used by staff.
type QuickPhrase struct {
	ID      int64
	Title   string
	Content string
}

// PurposeRegister tags codes issued for self sign-up.
const PurposeRegister = "REGISTER"

// EmailCode is a one-time verification code sent by email.
type EmailCode struct {
	ID        int64
	Email     string
	Code      string
	Purpose   string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// MailConfig holds the SMTP account used for outgoing mail. There is at
// most one.
type MailConfig struct {
	Host      string
	Port      int
	Secure    bool
	User      string
	Pass      string
	FromEmail string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, email, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns a page of users ordered by ID and the total count.
	ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error)

	// UpdateUser applies the non-nil fields of upd.
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*User, error)

	// DeleteUser removes a user and, by cascade, their messages.
	DeleteUser(ctx context.Context, id int64) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and assigns its ID and CreatedAt.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessages returns matching messages newest first and the total count.
	ListMessages(ctx context.Context, q MessageQuery) ([]*Message, int, error)

	// MarkRead flags every unread message from senderID to receiverID as read.
	MarkRead(ctx context.Context, receiverID, senderID int64) (int64, error)

	// ListConversations returns one entry per peer, most recent first.
	ListConversations(ctx context.Context, userID int64) ([]*Conversation, error)

	// DeleteMessage removes a single message.
	DeleteMessage(ctx context.Context, id int64) error

	// DeleteConversation removes every message exchanged between two users.
	DeleteConversation(ctx context.Context, userID, peerID int64) (int64, error)
}

// ForbiddenWordStore handles the moderation list.
type ForbiddenWordStore interface {
	CreateForbiddenWord(ctx context.Context, word string) (*ForbiddenWord, error)
	GetForbiddenWord(ctx context.Context, id int64) (*ForbiddenWord, error)
	ListForbiddenWords(ctx context.Context) ([]*ForbiddenWord, error)
	// ListForbiddenWordTexts returns the bare words in insertion order.
	ListForbiddenWordTexts(ctx context.Context) ([]string, error)
	UpdateForbiddenWord(ctx context.Context, id int64, word string) (*ForbiddenWord, error)
	DeleteForbiddenWord(ctx context.Context, id int64) error
}

// QuickPhraseStore handles canned replies.
type QuickPhraseStore interface {
	CreateQuickPhrase(ctx context.Context, title, content string) (*QuickPhrase, error)
	GetQuickPhrase(ctx context.Context, id int64) (*QuickPhrase, error)
	ListQuickPhrases(ctx context.Context) ([]*QuickPhrase, error)
	UpdateQuickPhrase(ctx context.Context, id int64, title, content *string) (*QuickPhrase, error)
	DeleteQuickPhrase(ctx context.Context, id int64) error
}

// EmailCodeStore handles verification codes.
type EmailCodeStore interface {
	// CreateEmailCode persists code and assigns its ID and CreatedAt.
	CreateEmailCode(ctx context.Context, code *EmailCode) error

	// FindEmailCode returns the newest unused code matching all arguments.
	FindEmailCode(ctx context.Context, email, code, purpose string) (*EmailCode, error)

	// UseEmailCode marks a code as used. It returns ErrNotFound when the
	// code does not exist or was already used.
	UseEmailCode(ctx context.Context, id int64) error
}

// MailConfigStore handles the SMTP account.
type MailConfigStore interface {
	// GetMailConfig returns ErrNotFound until a config has been saved.
	GetMailConfig(ctx context.Context) (*MailConfig, error)

	// SaveMailConfig creates or replaces the config.
	SaveMailConfig(ctx context.Context, cfg *MailConfig) error
}

// AuthStore is what sign-in and sign-up need.
type AuthStore interface {
	UserStore
	EmailCodeStore
	MailConfigStore
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	ForbiddenWordStore
	QuickPhraseStore
	EmailCodeStore
	MailConfigStore

	// Migrate applies the schema. It is safe to run repeatedly.
	Migrate(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
