// Package transport carries the binary protocol over TCP or websocket
// connections. Both end up as a net.Conn wrapped by Conn.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/park285/checkers-lobby/internal/obslog"
	"github.com/park285/checkers-lobby/internal/wire"
	"go.uber.org/zap"
)

var (
	ErrClosed       = errors.New("transport: connection closed")
	ErrSlowConsumer = errors.New("transport: outbound buffer full")
)

const (
	DefaultOutboundBuffer = 64
	DefaultWriteTimeout   = 10 * time.Second
)

type Option func(*Conn)

func WithOutboundBuffer(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.log = l
		}
	}
}

// Conn frames wire messages over a net.Conn. Outbound messages go through a
// buffered queue drained by a writer goroutine, so Send never blocks. Send and
// Close may be called from any goroutine.
type Conn struct {
	nc           net.Conn
	log          *zap.Logger
	bufSize      int
	writeTimeout time.Duration

	mu     sync.Mutex
	out    chan []byte
	closed bool
	done   chan struct{}
}

// NewConn wraps nc and starts its writer.
func NewConn(nc net.Conn, opts ...Option) *Conn {
	c := &Conn{
		nc:           nc,
		log:          obslog.L(),
		bufSize:      DefaultOutboundBuffer,
		writeTimeout: DefaultWriteTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.out = make(chan []byte, c.bufSize)
	go c.writeLoop()
	return c
}

func (c *Conn) RemoteAddr() string {
	if a := c.nc.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

// Send queues m. A full queue means the peer stopped reading; the connection
// is closed and ErrSlowConsumer returned.
func (c *Conn) Send(m wire.Message) error {
	raw := wire.Encode(m)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	select {
	case c.out <- raw:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		_ = c.Close()
		return fmt.Errorf("%w: %s", ErrSlowConsumer, c.RemoteAddr())
	}
}

// Close flushes what is already queued, then closes the socket. It returns
// immediately; Done is closed once the socket is.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.out)
	return nil
}

// Done is closed after the underlying socket has been closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) writeLoop() {
	defer close(c.done)
	defer c.nc.Close()
	for raw := range c.out {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Debug("transport_deadline_failed", zap.Error(err))
		}
		if _, err := c.nc.Write(raw); err != nil {
			c.log.Warn("transport_write_failed", zap.String("remote", c.RemoteAddr()), zap.Error(err))
			_ = c.nc.Close()
			for range c.out {
			}
			return
		}
	}
}

// ReadMessages decodes inbound messages and passes each to fn until the peer
// closes (nil) or a read or framing error occurs.
func (c *Conn) ReadMessages(fn func(wire.Message)) error {
	r := wire.NewReader(c.nc)
	for {
		m, err := r.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		fn(m)
	}
}
