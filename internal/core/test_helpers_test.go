package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

type fakeAuth struct {
	tokens map[string]int64
}

func (a *fakeAuth) Verify(token string) (int64, error) {
	id, ok := a.tokens[token]
	if !ok {
		return 0, errors.New("bad signature")
	}
	return id, nil
}

type fakeEligibility struct {
	mu          sync.Mutex
	users       map[int64]bool // user id -> blacklisted
	calls       int
	unavailable bool
}

func newFakeEligibility(ids ...int64) *fakeEligibility {
	e := &fakeEligibility{users: make(map[int64]bool)}
	for _, id := range ids {
		e.users[id] = false
	}
	return e
}

func (e *fakeEligibility) Check(_ context.Context, userID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.unavailable {
		return errors.New("database is locked")
	}
	blacklisted, ok := e.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if blacklisted {
		return ErrBlacklisted
	}
	return nil
}

func (e *fakeEligibility) blacklist(userID int64) {
	e.mu.Lock()
	e.users[userID] = true
	e.mu.Unlock()
}

func (e *fakeEligibility) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeModerator struct {
	words []string
	calls int
}

func (m *fakeModerator) FindForbidden(_ context.Context, content string) ([]string, error) {
	m.calls++
	lower := strings.ToLower(content)
	var matched []string
	for _, w := range m.words {
		if strings.Contains(lower, strings.ToLower(w)) {
			matched = append(matched, w)
		}
	}
	return matched, nil
}

type fakeStore struct {
	mu       sync.Mutex
	messages []*Message
	fail     error
}

func (s *fakeStore) AppendMessage(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	msg.ID = int64(len(s.messages) + 1)
	msg.CreatedAt = time.Now().UTC()
	stored := *msg
	s.messages = append(s.messages, &stored)
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type testEnv struct {
	hub         *Hub
	gate        *Gate
	eligibility *fakeEligibility
	moderator   *fakeModerator
	store       *fakeStore
}

func newTestEnv(users ...int64) *testEnv {
	tokens := make(map[string]int64)
	for _, id := range users {
		tokens["token-"+string(rune('0'+id))] = id
	}
	// Tokens that verify but whose subjects are unknown or invalid.
	tokens["token-ghost"] = 99
	tokens["token-zero"] = 0

	env := &testEnv{
		hub:         NewHub(nil, nil),
		eligibility: newFakeEligibility(users...),
		moderator:   &fakeModerator{words: []string{"spamword"}},
		store:       &fakeStore{},
	}
	pipeline := NewPipeline(env.eligibility, env.moderator, env.store, env.hub, nil)
	env.gate = NewGate(&fakeAuth{tokens: tokens}, env.eligibility, env.hub, pipeline, time.Second, nil)
	return env
}

// connect authenticates a new client and drains its connected event.
func (e *testEnv) connect(t *testing.T, userID int64) *Client {
	t.Helper()

	c := NewClient(16)
	if err := e.gate.Connect(context.Background(), c, "token-"+string(rune('0'+userID))); err != nil {
		t.Fatalf("connect user %d: %v", userID, err)
	}
	ev := mustEvent(t, c.Events, EventConnected)
	if ev.UserID != userID {
		t.Fatalf("expected connected for user %d, got %d", userID, ev.UserID)
	}
	return c
}
