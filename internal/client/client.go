// Package client is the player side of the protocol: it logs in, waits in
// the queue and relays moves between the server and a UI.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/msgcat"
	"github.com/park285/checkers-lobby/internal/obslog"
	"github.com/park285/checkers-lobby/internal/protocol"
	"github.com/park285/checkers-lobby/internal/wire"
	"go.uber.org/zap"
)

var (
	ErrProtocolViolation  = errors.New("client: unexpected message for state")
	ErrUnsupportedVersion = errors.New("client: server does not support this version")
	ErrServerClosed       = errors.New("client: server closed the connection")

	errQuit = errors.New("client: quit")
)

const flushTimeout = 2 * time.Second

// Conn is the part of transport.Conn the client uses.
type Conn interface {
	Send(m wire.Message) error
	Close() error
	Done() <-chan struct{}
	ReadMessages(fn func(wire.Message)) error
}

// UI is what the player sees and types. Prompts return ctx.Err() when ctx
// ends before the player answers.
type UI interface {
	Notify(text string)
	ShowBoard(b checkers.Board)
	Credentials(ctx context.Context) (username, password string, err error)
	Move(ctx context.Context) (checkers.Move, error)
	PlayAgain(ctx context.Context) (bool, error)
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithCatalog(cat *msgcat.Catalog) Option {
	return func(c *Client) {
		if cat != nil {
			c.cat = cat
		}
	}
}

// WithVersion overrides the protocol version sent in Connect.
func WithVersion(v uint8) Option {
	return func(c *Client) { c.version = v }
}

// Client tracks the protocol state from the player's side. It is driven by
// Run; Handle is exported for callers that own the read loop.
type Client struct {
	conn    Conn
	ui      UI
	cat     *msgcat.Catalog
	log     *zap.Logger
	version uint8

	state      protocol.State
	username   string
	password   string
	sentLogOut bool
}

func New(conn Conn, ui UI, username, password string, opts ...Option) *Client {
	c := &Client{
		conn:     conn,
		ui:       ui,
		log:      obslog.L(),
		version:  protocol.Version,
		state:    protocol.Unauthenticated,
		username: username,
		password: password,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cat == nil {
		c.cat = msgcat.Default()
	}
	return c
}

func (c *Client) State() protocol.State { return c.state }

// Run logs in and handles server messages until the player quits, ctx ends,
// the server goes away or a fatal protocol error occurs. It always closes the
// connection, sending LogOut first when logged in. A player quitting or ctx
// ending is not an error.
func (c *Client) Run(ctx context.Context) error {
	inbox := make(chan wire.Message, 16)
	stop := make(chan struct{})
	var readErr error
	go func() {
		defer close(inbox)
		readErr = c.conn.ReadMessages(func(m wire.Message) {
			select {
			case inbox <- m:
			case <-stop:
			}
		})
	}()
	defer close(stop)

	err := c.login(ctx)
	for err == nil {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case m, ok := <-inbox:
			if !ok {
				if readErr != nil {
					err = fmt.Errorf("%w: %w", ErrServerClosed, readErr)
				} else {
					err = ErrServerClosed
				}
				c.state = protocol.Unauthenticated
				c.ui.Notify(c.cat.Text("client.disconnected", nil))
				continue
			}
			err = c.Handle(ctx, m)
		}
	}

	c.Shutdown()
	switch {
	case errors.Is(err, errQuit), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	default:
		return err
	}
}

// Shutdown sends LogOut if the server considers us logged in, then closes the
// connection and waits briefly for queued writes to flush.
func (c *Client) Shutdown() {
	if c.state != protocol.Unauthenticated && !c.sentLogOut {
		c.sentLogOut = true
		_ = c.send(wire.LogOut{})
	}
	c.state = protocol.Unauthenticated
	_ = c.conn.Close()
	select {
	case <-c.conn.Done():
	case <-time.After(flushTimeout):
		c.log.Warn("client_flush_timeout")
	}
}

func (c *Client) login(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		u, p, err := c.ui.Credentials(ctx)
		if err != nil {
			return err
		}
		c.username, c.password = u, p
	}
	c.log.Info("client_connect", zap.String("user", c.username))
	return c.send(wire.Connect{Version: c.version, Username: c.username, Password: c.password})
}

// Handle applies one server message. A non-nil error ends the session.
func (c *Client) Handle(ctx context.Context, m wire.Message) error {
	c.log.Debug("client_recv", zap.Stringer("type", m.Type()), zap.Stringer("state", c.state))
	h, ok := transitions[c.state][m.Type()]
	if !ok {
		c.log.Warn("client_protocol_violation", zap.Stringer("type", m.Type()), zap.Stringer("state", c.state))
		return fmt.Errorf("%w: %s in %s", ErrProtocolViolation, m.Type(), c.state)
	}
	return h(c, ctx, m)
}

func (c *Client) send(m wire.Message) error {
	c.log.Debug("client_send", zap.Stringer("type", m.Type()))
	if err := c.conn.Send(m); err != nil {
		return fmt.Errorf("send %s: %w", m.Type(), err)
	}
	return nil
}
