// Package server runs the lobby: one goroutine owns the session hub and
// receives every connection event through its inbox.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/park285/checkers-lobby/internal/obslog"
	"github.com/park285/checkers-lobby/internal/session"
	"github.com/park285/checkers-lobby/internal/transport"
	"github.com/park285/checkers-lobby/internal/wire"
	"go.uber.org/zap"
)

const (
	DefaultTick     = 5 * time.Second
	inboxSize       = 256
	shutdownTimeout = 5 * time.Second
)

var ErrStopped = errors.New("server: stopped")

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTick sets the matchmaking interval.
func WithTick(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithTCPListener serves the binary protocol on ln.
func WithTCPListener(ln net.Listener) Option {
	return func(s *Server) { s.tcp = ln }
}

// WithWebSocketListener serves the same protocol over websocket on ln.
func WithWebSocketListener(ln net.Listener) Option {
	return func(s *Server) { s.ws = ln }
}

func WithConnOptions(opts ...transport.Option) Option {
	return func(s *Server) { s.connOpts = append(s.connOpts, opts...) }
}

// Server feeds connection events to a session.Hub from a single goroutine.
type Server struct {
	hub      *session.Hub
	log      *zap.Logger
	tick     time.Duration
	tcp      net.Listener
	ws       net.Listener
	connOpts []transport.Option

	inbox   chan any
	done    chan struct{}
	conns   map[*transport.Conn]*session.Session
	started time.Time
	wg      sync.WaitGroup
}

func New(hub *session.Hub, opts ...Option) *Server {
	s := &Server{
		hub:   hub,
		log:   obslog.L(),
		tick:  DefaultTick,
		inbox: make(chan any, inboxSize),
		done:  make(chan struct{}),
		conns: make(map[*transport.Conn]*session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	hub.BindLoop(func(fn func()) bool { return s.post(deferred{fn: fn}) })
	return s
}

// Run serves until ctx is cancelled, then ends every game, closes every
// connection and returns.
func (s *Server) Run(ctx context.Context) error {
	s.started = time.Now()
	if s.tcp == nil && s.ws == nil {
		return errors.New("server: no listener configured")
	}

	if s.tcp != nil {
		s.log.Info("server_listening", zap.String("proto", "tcp"), zap.String("addr", s.tcp.Addr().String()))
		s.wg.Add(1)
		go s.acceptTCP()
	}
	var httpSrv *http.Server
	if s.ws != nil {
		s.log.Info("server_listening", zap.String("proto", "websocket"), zap.String("addr", s.ws.Addr().String()))
		httpSrv = &http.Server{
			Handler:           transport.WebSocketHandler(s.accepted, s.connOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := httpSrv.Serve(s.ws); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("server_ws_serve_failed", zap.Error(err))
			}
		}()
	}

	s.loop(ctx)

	if s.tcp != nil {
		_ = s.tcp.Close()
	}
	if httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := httpSrv.Shutdown(sctx); err != nil {
			s.log.Warn("server_ws_shutdown", zap.Error(err))
		}
		cancel()
	}
	s.wg.Wait()
	s.log.Info("server_stopped")
	return nil
}

func (s *Server) loop(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			s.hub.Shutdown()
			s.conns = make(map[*transport.Conn]*session.Session)
			close(s.done)
			return
		case cmd := <-s.inbox:
			s.handleCommand(cmd)
		case <-ticker.C:
			s.hub.Tick()
		}
	}
}

func (s *Server) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case attach:
		s.conns[c.conn] = s.hub.Attach(c.conn)
	case inbound:
		sess, ok := s.conns[c.conn]
		if !ok {
			return
		}
		s.log.Debug("server_inbound", zap.String("remote", c.conn.RemoteAddr()), zap.Stringer("type", c.msg.Type()))
		s.hub.Handle(sess, c.msg)
	case closed:
		sess, ok := s.conns[c.conn]
		if !ok {
			return
		}
		delete(s.conns, c.conn)
		s.hub.Drop(sess, c.err)
	case deferred:
		c.fn()
	case statusQuery:
		c.reply <- Status{Stats: s.hub.Stats(), Uptime: time.Since(s.started)}
	}
}

// post delivers cmd to the loop. It reports false once the loop has stopped.
func (s *Server) post(cmd any) bool {
	select {
	case s.inbox <- cmd:
		return true
	case <-s.done:
		return false
	}
}

func (s *Server) acceptTCP() {
	defer s.wg.Done()
	for {
		nc, err := s.tcp.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("server_accept_failed", zap.Error(err))
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		s.accepted(transport.NewConn(nc, s.connOpts...))
	}
}

// accepted registers c with the loop and starts its reader.
func (s *Server) accepted(c *transport.Conn) {
	if !s.post(attach{conn: c}) {
		_ = c.Close()
		return
	}
	go func() {
		err := c.ReadMessages(func(m wire.Message) {
			s.post(inbound{conn: c, msg: m})
		})
		if !s.post(closed{conn: c, err: err}) {
			_ = c.Close()
		}
	}()
}

// Status is a snapshot of the lobby.
type Status struct {
	session.Stats
	Uptime time.Duration
}

// Status asks the loop for a snapshot.
func (s *Server) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case s.inbox <- statusQuery{reply: reply}:
	case <-s.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}
