package core

import (
	"sync"

	"github.com/google/uuid"
)

// ConnState is the lifecycle state of a single connection.
type ConnState int

const (
	StateUnauthenticated ConnState = iota
	StateAuthenticated
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Client is one live connection as seen by the core layer.
// A user with several devices owns several clients.
type Client struct {
	ID     string
	Events chan *Event

	mu     sync.Mutex
	state  ConnState
	userID int64
}

// NewClient constructs an unauthenticated client with a fresh connection id.
func NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = 8
	}
	return &Client{
		ID:     uuid.NewString(),
		Events: make(chan *Event, buffer),
	}
}

// State returns the current lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the authenticated user id, or 0 before authentication.
func (c *Client) UserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// authenticate moves Unauthenticated -> Authenticated. The user id is set once.
func (c *Client) authenticate(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUnauthenticated {
		return false
	}
	c.state = StateAuthenticated
	c.userID = userID
	return true
}

// disconnect moves the client to the terminal state and reports the previous one.
func (c *Client) disconnect() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.state = StateDisconnected
	return prev
}

// Send queues an event without blocking. It reports false when the queue is full.
func (c *Client) Send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
