package core

import (
	"context"
	"errors"
	"testing"
)

func TestGateConnectAcknowledgesUser(t *testing.T) {
	env := newTestEnv(1)

	c := env.connect(t, 1)

	if c.State() != StateAuthenticated || c.UserID() != 1 {
		t.Fatalf("unexpected client state %v user %d", c.State(), c.UserID())
	}
	if got := env.hub.Registry().ConnectionsFor(1); len(got) != 1 || got[0] != c.ID {
		t.Fatalf("expected connection bound, got %v", got)
	}
}

func TestGateRejectsHandshake(t *testing.T) {
	tests := []struct {
		name  string
		token string
		code  string
	}{
		{name: "missing token", token: "", code: ErrCodeUnauthorized},
		{name: "invalid signature", token: "forged", code: ErrCodeUnauthorized},
		{name: "non positive subject", token: "token-zero", code: ErrCodeUnauthorized},
		{name: "unknown user", token: "token-ghost", code: ErrCodeUserNotFound},
		{name: "blacklisted user", token: "token-3", code: ErrCodeBlacklisted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(1, 3)
			env.eligibility.blacklist(3)

			c := NewClient(4)
			err := env.gate.Connect(context.Background(), c, tt.token)
			if err == nil {
				t.Fatalf("expected handshake to fail")
			}

			ev := mustEvent(t, c.Events, EventChatError)
			if ev.Error.Code != tt.code {
				t.Fatalf("expected code %s, got %s", tt.code, ev.Error.Code)
			}
			if c.State() != StateUnauthenticated {
				t.Fatalf("rejected client must stay unauthenticated, got %v", c.State())
			}
			for _, id := range []int64{0, 1, 3, 99} {
				if got := env.hub.Registry().ConnectionsFor(id); len(got) != 0 {
					t.Fatalf("rejected client must never be bound, user %d has %v", id, got)
				}
			}

			env.gate.Disconnect(c)
			if c.State() != StateDisconnected {
				t.Fatalf("expected disconnected state")
			}
		})
	}
}

func TestGateDisconnectKeepsSiblings(t *testing.T) {
	env := newTestEnv(1)

	phone := env.connect(t, 1)
	laptop := env.connect(t, 1)

	env.gate.Disconnect(phone)

	got := env.hub.Registry().ConnectionsFor(1)
	if len(got) != 1 || got[0] != laptop.ID {
		t.Fatalf("expected only laptop to remain, got %v", got)
	}
	if env.hub.Emit(phone.ID, &Event{Kind: EventChatError}) {
		t.Fatalf("emit to a disconnected connection must be a no-op")
	}

	// Disconnect is terminal and repeatable.
	env.gate.Disconnect(phone)
	if phone.State() != StateDisconnected {
		t.Fatalf("expected disconnected state")
	}
}

func TestGateReconnectCreatesIndependentConnection(t *testing.T) {
	env := newTestEnv(1)

	first := env.connect(t, 1)
	env.gate.Disconnect(first)
	second := env.connect(t, 1)

	if first.ID == second.ID {
		t.Fatalf("reconnect must produce a new connection id")
	}
	got := env.hub.Registry().ConnectionsFor(1)
	if len(got) != 1 || got[0] != second.ID {
		t.Fatalf("expected only the new connection, got %v", got)
	}
}

func TestGateSendBeforeAuthenticationRejected(t *testing.T) {
	env := newTestEnv(1, 2)

	c := NewClient(4)
	env.hub.Attach(c)

	err := env.gate.SendMessage(context.Background(), c, float64(2), "hi", "TEXT")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	ev := mustEvent(t, c.Events, EventChatError)
	if ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("unexpected code %s", ev.Error.Code)
	}
	if env.store.count() != 0 {
		t.Fatalf("nothing must be persisted")
	}
}
