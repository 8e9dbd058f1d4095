package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Authenticator verifies a bearer credential and returns its subject.
type Authenticator interface {
	Verify(token string) (int64, error)
}

// ErrAlreadyDisconnected is returned when a lifecycle call hits a closed connection.
var ErrAlreadyDisconnected = errors.New("connection already disconnected")

const defaultPipelineTimeout = 10 * time.Second

// Gate drives the per-connection lifecycle:
// Unauthenticated -> Authenticated -> Disconnected.
type Gate struct {
	auth        Authenticator
	eligibility Eligibility
	hub         *Hub
	pipeline    *Pipeline
	timeout     time.Duration
	log         zerolog.Logger
}

// NewGate builds a gate. timeout bounds each collaborator round trip; zero
// selects a default.
func NewGate(auth Authenticator, eligibility Eligibility, hub *Hub, pipeline *Pipeline, timeout time.Duration, logger *zerolog.Logger) *Gate {
	if timeout <= 0 {
		timeout = defaultPipelineTimeout
	}
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Gate{
		auth:        auth,
		eligibility: eligibility,
		hub:         hub,
		pipeline:    pipeline,
		timeout:     timeout,
		log:         log,
	}
}

// Connect authenticates a freshly attached client. On failure the chat_error
// event is queued on the client and an error is returned; the caller must
// flush the queue and close the transport. The client is never bound then.
func (g *Gate) Connect(ctx context.Context, c *Client, token string) error {
	g.hub.Attach(c)

	userID, err := g.authenticate(token)
	if err != nil {
		return g.reject(c, err)
	}

	ctx, cancel := g.bounded(ctx)
	defer cancel()
	if err := g.eligibility.Check(ctx, userID); err != nil {
		return g.reject(c, fmt.Errorf("user %d: %w", userID, err))
	}

	if !c.authenticate(userID) {
		return ErrAlreadyDisconnected
	}
	g.hub.Bind(c, userID)
	c.Send(&Event{Kind: EventConnected, UserID: userID})

	g.log.Info().Str("conn_id", c.ID).Int64("user_id", userID).Msg("client connected")
	return nil
}

// Disconnect moves the client to its terminal state and unbinds it.
// Sibling connections of the same user are unaffected.
func (g *Gate) Disconnect(c *Client) {
	prev := c.disconnect()
	userID, bound := g.hub.Detach(c)
	if prev == StateDisconnected {
		return
	}
	if bound {
		g.log.Info().Str("conn_id", c.ID).Int64("user_id", userID).Msg("client disconnected")
	}
}

// SendMessage handles a send_message event. Failures are reported to the
// sending connection only and returned for logging.
func (g *Gate) SendMessage(ctx context.Context, c *Client, receiverID, content, msgType any) error {
	if c.State() != StateAuthenticated {
		return g.Reject(c, ErrUnauthorized)
	}

	cmd, err := NormalizeSendMessage(receiverID, content, msgType)
	if err != nil {
		return g.Reject(c, err)
	}

	// A disconnect must not cancel an in-flight send.
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	if _, err := g.pipeline.Send(ctx, c, cmd); err != nil {
		return g.Reject(c, err)
	}
	return nil
}

// Reject reports err to the client without closing it.
func (g *Gate) Reject(c *Client, err error) error {
	ev := EventForError(err)
	c.Send(ev)
	code := ErrCodeForbiddenWord
	if ev.Error != nil {
		code = ev.Error.Code
	}
	g.log.Debug().Err(err).Str("conn_id", c.ID).Str("code", code).Msg("request rejected")
	return err
}

func (g *Gate) authenticate(token string) (int64, error) {
	if token == "" {
		return 0, ErrUnauthorized
	}
	userID, err := g.auth.Verify(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if userID <= 0 {
		return 0, ErrUnauthorized
	}
	return userID, nil
}

func (g *Gate) reject(c *Client, err error) error {
	c.Send(EventForError(err))
	g.log.Info().Err(err).Str("conn_id", c.ID).Msg("handshake rejected")
	return err
}

func (g *Gate) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
}
