package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/supportchat-server/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

func open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to seed data before the store is handed out.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func notFound(kind string, id any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", kind, id, store.ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", kind, err)
}

func requireAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

// ==== UserStore implementation ====

const userColumns = `id, email, password_hash, role, is_blacklisted, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var (
		user store.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.IsBlacklisted, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Role = store.Role(role)
	return &user, nil
}

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (email, password_hash, role, is_blacklisted)
		VALUES (?, ?, ?, 0)
	`
	result, err := s.db.ExecContext(ctx, query, email, passwordHash, string(role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", email, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? COLLATE NOCASE`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound("user", email, err)
	}
	return user, nil
}

// ListUsers returns a page of users ordered by ID and the total count.
func (s *SQLiteStore) ListUsers(ctx context.Context, limit, offset int) ([]*store.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	return users, total, nil
}

// UpdateUser applies the non-nil fields of upd.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id int64, upd store.UserUpdate) (*store.User, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if upd.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*upd.Role))
	}
	if upd.IsBlacklisted != nil {
		sets = append(sets, "is_blacklisted = ?")
		args = append(args, *upd.IsBlacklisted)
	}
	if upd.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *upd.PasswordHash)
	}
	if len(sets) == 0 {
		return s.GetUserByID(ctx, id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := requireAffected(res, "user", id); err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// DeleteUser removes a user and, by cascade, their messages.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, "user", id)
}

// ==== MessageStore implementation ====

const messageColumns = `id, sender_id, receiver_id, content, type, is_read, created_at`

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	if err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Type, &msg.IsRead, &msg.CreatedAt); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SaveMessage persists a message and assigns its ID and CreatedAt.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	createdAt := time.Now().UTC()
	query := `
		INSERT INTO messages (sender_id, receiver_id, content, type, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.SenderID, msg.ReceiverID, msg.Content, msg.Type, msg.IsRead, createdAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = createdAt
	return nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("message", id, err)
	}
	return msg, nil
}

// ListMessages returns matching messages newest first and the total count.
func (s *SQLiteStore) ListMessages(ctx context.Context, q store.MessageQuery) ([]*store.Message, int, error) {
	where := `(sender_id = ? OR receiver_id = ?)`
	args := []any{q.UserID, q.UserID}
	if q.PeerID > 0 {
		where += ` AND (sender_id = ? OR receiver_id = ?)`
		args = append(args, q.PeerID, q.PeerID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, q.Limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, total, nil
}

// MarkRead flags every unread message from senderID to receiverID as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, receiverID, senderID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_read = 1 WHERE receiver_id = ? AND sender_id = ? AND is_read = 0`,
		receiverID, senderID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

// ListConversations returns one entry per peer, most recent first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]*store.Conversation, error) {
	query := `
		SELECT c.peer_id, c.unread,
		       m.id, m.sender_id, m.receiver_id, m.content, m.type, m.is_read, m.created_at
		FROM (
			SELECT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS peer_id,
			       MAX(id) AS last_id,
			       SUM(CASE WHEN receiver_id = ? AND is_read = 0 THEN 1 ELSE 0 END) AS unread
			FROM messages
			WHERE sender_id = ? OR receiver_id = ?
			GROUP BY peer_id
		) c
		JOIN messages m ON m.id = c.last_id
		ORDER BY m.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*store.Conversation
	for rows.Next() {
		var (
			conv store.Conversation
			msg  store.Message
		)
		if err := rows.Scan(&conv.PeerID, &conv.UnreadCount,
			&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Type, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.LastMessage = &msg
		conversations = append(conversations, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return conversations, nil
}

// DeleteMessage removes a single message.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return requireAffected(res, "message", id)
}

// DeleteConversation removes every message exchanged between two users.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, userID, peerID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
	`, userID, peerID, peerID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete conversation: %w", err)
	}
	return res.RowsAffected()
}

// ==== ForbiddenWordStore implementation ====

// CreateForbiddenWord adds a word to the moderation list.
func (s *SQLiteStore) CreateForbiddenWord(ctx context.Context, word string) (*store.ForbiddenWord, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO forbidden_words (word) VALUES (?)`, word)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("forbidden word %q: %w", word, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert forbidden word: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return &store.ForbiddenWord{ID: id, Word: word}, nil
}

// GetForbiddenWord retrieves a word by ID.
func (s *SQLiteStore) GetForbiddenWord(ctx context.Context, id int64) (*store.ForbiddenWord, error) {
	var fw store.ForbiddenWord
	err := s.db.QueryRowContext(ctx, `SELECT id, word FROM forbidden_words WHERE id = ?`, id).Scan(&fw.ID, &fw.Word)
	if err != nil {
		return nil, notFound("forbidden word", id, err)
	}
	return &fw, nil
}

// ListForbiddenWords returns the list newest first.
func (s *SQLiteStore) ListForbiddenWords(ctx context.Context) ([]*store.ForbiddenWord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, word FROM forbidden_words ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query forbidden words: %w", err)
	}
	defer rows.Close()

	var words []*store.ForbiddenWord
	for rows.Next() {
		var fw store.ForbiddenWord
		if err := rows.Scan(&fw.ID, &fw.Word); err != nil {
			return nil, fmt.Errorf("scan forbidden word: %w", err)
		}
		words = append(words, &fw)
	}
	return words, rows.Err()
}

// ListForbiddenWordTexts returns the bare words in insertion order.
func (s *SQLiteStore) ListForbiddenWordTexts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word FROM forbidden_words ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query forbidden words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan forbidden word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// UpdateForbiddenWord replaces the text of a word.
func (s *SQLiteStore) UpdateForbiddenWord(ctx context.Context, id int64, word string) (*store.ForbiddenWord, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE forbidden_words SET word = ? WHERE id = ?`, word, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("forbidden word %q: %w", word, store.ErrConflict)
		}
		return nil, fmt.Errorf("update forbidden word: %w", err)
	}
	if err := requireAffected(res, "forbidden word", id); err != nil {
		return nil, err
	}
	return &store.ForbiddenWord{ID: id, Word: word}, nil
}

// DeleteForbiddenWord removes a word from the list.
func (s *SQLiteStore) DeleteForbiddenWord(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forbidden_words WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete forbidden word: %w", err)
	}
	return requireAffected(res, "forbidden word", id)
}

// ==== QuickPhraseStore implementation ====

// CreateQuickPhrase stores a canned reply.
func (s *SQLiteStore) CreateQuickPhrase(ctx context.Context, title, content string) (*store.QuickPhrase, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO quick_phrases (title, content) VALUES (?, ?)`, title, content)
	if err != nil {
		return nil, fmt.Errorf("insert quick phrase: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return &store.QuickPhrase{ID: id, Title: title, Content: content}, nil
}

// GetQuickPhrase retrieves a canned reply by ID.
func (s *SQLiteStore) GetQuickPhrase(ctx context.Context, id int64) (*store.QuickPhrase, error) {
	var qp store.QuickPhrase
	err := s.db.QueryRowContext(ctx, `SELECT id, title, content FROM quick_phrases WHERE id = ?`, id).
		Scan(&qp.ID, &qp.Title, &qp.Content)
	if err != nil {
		return nil, notFound("quick phrase", id, err)
	}
	return &qp, nil
}

// ListQuickPhrases returns all canned replies newest first.
func (s *SQLiteStore) ListQuickPhrases(ctx context.Context) ([]*store.QuickPhrase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, content FROM quick_phrases ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query quick phrases: %w", err)
	}
	defer rows.Close()

	var phrases []*store.QuickPhrase
	for rows.Next() {
		var qp store.QuickPhrase
		if err := rows.Scan(&qp.ID, &qp.Title, &qp.Content); err != nil {
			return nil, fmt.Errorf("scan quick phrase: %w", err)
		}
		phrases = append(phrases, &qp)
	}
	return phrases, rows.Err()
}

// UpdateQuickPhrase applies the non-nil fields.
func (s *SQLiteStore) UpdateQuickPhrase(ctx context.Context, id int64, title, content *string) (*store.QuickPhrase, error) {
	current, err := s.GetQuickPhrase(ctx, id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		current.Title = *title
	}
	if content != nil {
		current.Content = *content
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE quick_phrases SET title = ?, content = ? WHERE id = ?`,
		current.Title, current.Content, id); err != nil {
		return nil, fmt.Errorf("update quick phrase: %w", err)
	}
	return current, nil
}

// DeleteQuickPhrase removes a canned reply.
func (s *SQLiteStore) DeleteQuickPhrase(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quick_phrases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quick phrase: %w", err)
	}
	return requireAffected(res, "quick phrase", id)
}

// ==== EmailCodeStore implementation ====

// CreateEmailCode persists a verification code.
func (s *SQLiteStore) CreateEmailCode(ctx context.Context, code *store.EmailCode) error {
	createdAt := time.Now().UTC()
	query := `
		INSERT INTO email_codes (email, code, purpose, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`
	result, err := s.db.ExecContext(ctx, query, code.Email, code.Code, code.Purpose, code.ExpiresAt.UTC(), createdAt)
	if err != nil {
		return fmt.Errorf("insert email code: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	code.ID = id
	code.Used = false
	code.CreatedAt = createdAt
	return nil
}

// FindEmailCode returns the newest unused matching code.
func (s *SQLiteStore) FindEmailCode(ctx context.Context, email, code, purpose string) (*store.EmailCode, error) {
	query := `
		SELECT id, email, code, purpose, expires_at, used, created_at
		FROM email_codes
		WHERE email = ? AND code = ? AND purpose = ? AND used = 0
		ORDER BY id DESC
		LIMIT 1
	`
	var ec store.EmailCode
	err := s.db.QueryRowContext(ctx, query, email, code, purpose).
		Scan(&ec.ID, &ec.Email, &ec.Code, &ec.Purpose, &ec.ExpiresAt, &ec.Used, &ec.CreatedAt)
	if err != nil {
		return nil, notFound("email code", email, err)
	}
	return &ec, nil
}

// UseEmailCode flips the used flag once; a second call finds nothing.
func (s *SQLiteStore) UseEmailCode(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE email_codes SET used = 1 WHERE id = ? AND used = 0`, id)
	if err != nil {
		return fmt.Errorf("use email code: %w", err)
	}
	return requireAffected(res, "email code", id)
}

// ==== MailConfigStore implementation ====

// GetMailConfig returns the SMTP account.
func (s *SQLiteStore) GetMailConfig(ctx context.Context) (*store.MailConfig, error) {
	query := `SELECT host, port, secure, username, password, from_email FROM mail_configs WHERE id = 1`
	var mc store.MailConfig
	err := s.db.QueryRowContext(ctx, query).
		Scan(&mc.Host, &mc.Port, &mc.Secure, &mc.User, &mc.Pass, &mc.FromEmail)
	if err != nil {
		return nil, notFound("mail config", 1, err)
	}
	return &mc, nil
}

// SaveMailConfig upserts the single SMTP account row.
func (s *SQLiteStore) SaveMailConfig(ctx context.Context, cfg *store.MailConfig) error {
	query := `
		INSERT INTO mail_configs (id, host, port, secure, username, password, from_email)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			host = excluded.host,
			port = excluded.port,
			secure = excluded.secure,
			username = excluded.username,
			password = excluded.password,
			from_email = excluded.from_email
	`
	if _, err := s.db.ExecContext(ctx, query, cfg.Host, cfg.Port, cfg.Secure, cfg.User, cfg.Pass, cfg.FromEmail); err != nil {
		return fmt.Errorf("save mail config: %w", err)
	}
	return nil
}
