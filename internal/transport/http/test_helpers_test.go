package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/mail"
	"github.com/vovakirdan/supportchat-server/internal/moderation"
	"github.com/vovakirdan/supportchat-server/internal/proto"
	"github.com/vovakirdan/supportchat-server/internal/service/messages"
	"github.com/vovakirdan/supportchat-server/internal/service/uploads"
	"github.com/vovakirdan/supportchat-server/internal/service/users"
	"github.com/vovakirdan/supportchat-server/internal/service/wordlist"
	"github.com/vovakirdan/supportchat-server/internal/store"
	"github.com/vovakirdan/supportchat-server/internal/store/sqlite"
)

const testPassword = "password123"

type testServer struct {
	t      *testing.T
	ts     *httptest.Server
	store  *sqlite.SQLiteStore
	svc    Services
	cfg    *config.Config
	hub    *core.Hub
	jwtCfg *auth.JWTConfig
	mailer *recordingMailer
}

// recordingMailer keeps sent messages instead of delivering them.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, _ mail.Settings, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

// lastCode returns the code in the most recent message to addr.
func (m *recordingMailer) lastCode(t *testing.T, addr string) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			if code := sixDigits.FindString(m.sent[i].Body); code != "" {
				return code
			}
		}
	}
	t.Fatalf("no code mailed to %s", addr)
	return ""
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return st
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	cfg.PipelineTimeout = 2 * time.Second
	cfg.MessageRateLimit = 0
	cfg.APIRateLimit = 0
	cfg.LoginRateLimit = 0
	cfg.RegisterRateLimit = 0
	cfg.RegisterCodeRateLimit = 0
	cfg.UploadDir = t.TempDir()
	return &cfg
}

func startTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}
	st := createTestStore(t)
	disabledLogger := zerolog.New(nil)

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	}
	mailer := &recordingMailer{}
	authService := auth.NewService(st, mailer, jwtCfg)
	userService := users.New(st)
	messageService := messages.New(st)
	list := moderation.NewList(st)
	hub := core.NewHub(core.NewMemoryRegistry(), &disabledLogger)
	pipeline := core.NewPipeline(userService, list, messageService, hub, &disabledLogger)

	svc := Services{
		Gate:     core.NewGate(authService, userService, hub, pipeline, cfg.PipelineTimeout, &disabledLogger),
		Auth:     authService,
		Users:    userService,
		Messages: messageService,
		WordList: wordlist.New(st, list),
		Uploads:  uploads.New(cfg.UploadDir, cfg.UploadMaxBytes),
	}

	server := NewServer(svc, cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{t: t, ts: ts, store: st, svc: svc, cfg: cfg, hub: hub, jwtCfg: jwtCfg, mailer: mailer}
}

// createUser inserts a user and returns it with a signed token.
func (s *testServer) createUser(email string, role store.Role) (*store.User, string) {
	s.t.Helper()

	u, err := s.svc.Users.Create(context.Background(), email, testPassword, role)
	if err != nil {
		s.t.Fatalf("create user %s: %v", email, err)
	}
	token, err := auth.GenerateToken(s.jwtCfg, u.ID, u.Email, string(u.Role))
	if err != nil {
		s.t.Fatalf("generate token: %v", err)
	}
	return u, token
}

func (s *testServer) setBlacklisted(userID int64, v bool) {
	s.t.Helper()

	if _, err := s.svc.Users.Update(context.Background(), userID, nil, &v, nil); err != nil {
		s.t.Fatalf("blacklist user: %v", err)
	}
}

func (s *testServer) wsURL(token string) string {
	u := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

// request performs a JSON request against the router.
func (s *testServer) request(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ts.Config.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()

	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsClient owns the only reader of its connection. Frames are pumped into a
// channel so a timed wait never cancels a Read, which would close the socket.
type wsClient struct {
	t      *testing.T
	conn   *websocket.Conn
	frames chan wsFrame
	done   chan struct{}
	err    error // set before done is closed
}

func newWSClient(t *testing.T, conn *websocket.Conn) *wsClient {
	c := &wsClient{
		t:      t,
		conn:   conn,
		frames: make(chan wsFrame, 32),
		done:   make(chan struct{}),
	}
	go c.pump()
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return c
}

func (c *wsClient) pump() {
	defer close(c.done)
	for {
		var f wsFrame
		if err := wsjson.Read(context.Background(), c.conn, &f); err != nil {
			c.err = err
			return
		}
		c.frames <- f
	}
}

func dialWS(t *testing.T, url string) *wsClient {
	t.Helper()

	return dialWSWith(t, url, nil)
}

func dialWSWith(t *testing.T, url string, opts *websocket.DialOptions) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return newWSClient(t, conn)
}

// connect dials and waits for the connected event.
func (s *testServer) connect(token string) *wsClient {
	s.t.Helper()

	c := dialWS(s.t, s.wsURL(token))
	if f := c.read(); f.Event != proto.EventConnected {
		s.t.Fatalf("expected connected, got %s: %s", f.Event, f.Data)
	}
	return c
}

func (c *wsClient) read() wsFrame {
	c.t.Helper()

	select {
	case f := <-c.frames:
		return f
	case <-c.done:
		// Frames read before the error are still buffered.
		select {
		case f := <-c.frames:
			return f
		default:
		}
		c.t.Fatalf("read frame: %v", c.err)
	case <-time.After(5 * time.Second):
		c.t.Fatal("read frame: timed out")
	}
	return wsFrame{}
}

// expectSilence asserts that no frame arrives within a short window. The
// connection stays usable afterwards.
func (c *wsClient) expectSilence() {
	c.t.Helper()

	select {
	case f := <-c.frames:
		c.t.Fatalf("unexpected frame %s: %s", f.Event, f.Data)
	case <-time.After(150 * time.Millisecond):
	}
}

// closeStatus waits for the server to end the connection and returns the
// close code.
func (c *wsClient) closeStatus() websocket.StatusCode {
	c.t.Helper()

	select {
	case f := <-c.frames:
		c.t.Fatalf("unexpected frame %s: %s", f.Event, f.Data)
	case <-c.done:
		return websocket.CloseStatus(c.err)
	case <-time.After(5 * time.Second):
		c.t.Fatal("connection not closed before deadline")
	}
	return -1
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, c.conn, map[string]any{"event": event, "data": data}); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

func (c *wsClient) sendMessage(receiverID int64, content, msgType string) {
	c.t.Helper()

	c.send(proto.EventSendMessage, map[string]any{
		"receiverId": receiverID,
		"content":    content,
		"type":       msgType,
	})
}

func decodeFrame[T any](t *testing.T, f wsFrame, event string) T {
	t.Helper()

	if f.Event != event {
		t.Fatalf("expected %s, got %s: %s", event, f.Event, f.Data)
	}
	var v T
	if err := json.Unmarshal(f.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", event, err)
	}
	return v
}

func (s *testServer) countMessages(userID int64) int {
	s.t.Helper()

	_, total, err := s.store.ListMessages(context.Background(), store.MessageQuery{UserID: userID, Limit: 1})
	if err != nil {
		s.t.Fatalf("list messages: %v", err)
	}
	return total
}
