package server

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/park285/checkers-lobby/internal/accounts"
	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/game"
	"github.com/park285/checkers-lobby/internal/protocol"
	"github.com/park285/checkers-lobby/internal/session"
	"github.com/park285/checkers-lobby/internal/transport"
	"github.com/park285/checkers-lobby/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv     *Server
	tcpAddr string
	wsURL   string
	results chan game.Result
	cancel  context.CancelFunc
	stopped chan error
}

func seededStore(t *testing.T) *accounts.MemoryStore {
	t.Helper()
	store := accounts.NewMemoryStore()
	_, err := accounts.Seed(context.Background(), store, accounts.DefaultSeed, nil)
	require.NoError(t, err)
	return store
}

func start(t *testing.T, withWS bool) *harness {
	t.Helper()
	return startWithStore(t, withWS, seededStore(t))
}

func startWithStore(t *testing.T, withWS bool, store accounts.Store) *harness {
	t.Helper()
	h := &harness{results: make(chan game.Result, 4), stopped: make(chan error, 1)}
	hub := session.NewHub(store,
		session.WithRand(rand.New(rand.NewSource(1))),
		session.WithResultHandler(func(r game.Result) { h.results <- r }),
	)

	tcp, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h.tcpAddr = tcp.Addr().String()
	opts := []Option{WithTCPListener(tcp), WithTick(20 * time.Millisecond)}
	if withWS {
		ws, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		h.wsURL = "ws://" + ws.Addr().String() + "/"
		opts = append(opts, WithWebSocketListener(ws))
	}
	h.srv = New(hub, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.stopped <- h.srv.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	select {
	case <-h.stopped:
	case <-time.After(5 * time.Second):
	}
}

type client struct {
	t  *testing.T
	nc net.Conn
	r  *wire.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	nc, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nc.Close() })
	return &client{t: t, nc: nc, r: wire.NewReader(nc)}
}

func (c *client) send(m wire.Message) {
	c.t.Helper()
	_, err := c.nc.Write(wire.Encode(m))
	require.NoError(c.t, err)
}

func (c *client) read() wire.Message {
	c.t.Helper()
	require.NoError(c.t, c.nc.SetReadDeadline(time.Now().Add(3*time.Second)))
	m, err := c.r.ReadMessage()
	require.NoError(c.t, err)
	return m
}

// skipQueue reads past QueuePosition broadcasts.
func (c *client) skipQueue() wire.Message {
	c.t.Helper()
	for {
		m := c.read()
		if _, ok := m.(wire.QueuePosition); !ok {
			return m
		}
	}
}

func (c *client) login(user, pass string) wire.QueuePosition {
	c.t.Helper()
	c.send(wire.Connect{Version: protocol.Version, Username: user, Password: pass})
	qp, ok := c.read().(wire.QueuePosition)
	require.True(c.t, ok)
	return qp
}

func TestLoginOverTCP(t *testing.T) {
	h := start(t, false)
	c := dial(t, h.tcpAddr)

	c.send(wire.Connect{Version: protocol.Version, Username: "cam", Password: "nope"})
	assert.Equal(t, wire.InvalidLogin{Reason: wire.InvalidPassword}, c.read())

	qp := c.login("cam", "mac")
	assert.Equal(t, wire.QueuePosition{QueueSize: 1, Position: 1, Rating: 1200}, qp)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := h.srv.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.QueueSize)
	assert.Equal(t, 1, st.Sessions)
	assert.Equal(t, []string{"cam"}, st.Players)
}

func TestMatchAndDisconnect(t *testing.T) {
	h := start(t, false)
	cam := dial(t, h.tcpAddr)
	jen := dial(t, h.tcpAddr)
	cam.login("cam", "mac")
	jen.login("jen", "nej")

	assert.Equal(t, wire.GameStart{OpponentName: "jen", OpponentRating: 1201}, cam.skipQueue())
	assert.Equal(t, wire.YourTurn{LastMove: checkers.FirstMove, Board: checkers.GenerateGameStart()}, cam.read())
	assert.Equal(t, wire.GameStart{OpponentName: "cam", OpponentRating: 1200}, jen.skipQueue())

	require.NoError(t, jen.nc.Close())
	assert.Equal(t, wire.OpponentDisconnect{}, cam.read())

	select {
	case r := <-h.results:
		assert.Equal(t, game.OutcomeDisconnect, r.Outcome)
		assert.Equal(t, "cam", r.Winner)
	case <-time.After(3 * time.Second):
		t.Fatal("no result reported")
	}
}

func TestViolationClosesConnection(t *testing.T) {
	h := start(t, false)
	c := dial(t, h.tcpAddr)
	c.send(wire.ReQueue{})

	require.NoError(t, c.nc.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err := c.r.ReadMessage()
	assert.True(t, errors.Is(err, io.EOF) || strings.Contains(err.Error(), "reset"), "got %v", err)
}

func TestShutdownClosesEveryone(t *testing.T) {
	h := start(t, false)
	c := dial(t, h.tcpAddr)
	c.login("kain", "niak")

	h.stop()
	require.NoError(t, c.nc.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err := c.skipQueueErr()
	assert.Error(t, err)

	_, err = h.srv.Status(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func (c *client) skipQueueErr() (wire.Message, error) {
	for {
		m, err := c.r.ReadMessage()
		if err != nil {
			return nil, err
		}
		if _, ok := m.(wire.QueuePosition); !ok {
			return m, nil
		}
	}
}

func TestWebSocketPlayerMeetsTCPPlayer(t *testing.T) {
	h := start(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, err := transport.DialWebSocket(ctx, h.wsURL)
	require.NoError(t, err)
	defer ws.Close()

	got := make(chan wire.Message, 16)
	go func() {
		_ = ws.ReadMessages(func(m wire.Message) { got <- m })
	}()
	require.NoError(t, ws.Send(wire.Connect{Version: protocol.Version, Username: "andrei", Password: "ierdna"}))

	tcp := dial(t, h.tcpAddr)
	tcp.login("kain", "niak")

	// andrei (1199) is seated first and moves first.
	var matched wire.GameStart
	for {
		select {
		case m := <-got:
			if gs, ok := m.(wire.GameStart); ok {
				matched = gs
			}
		case <-ctx.Done():
			t.Fatal("websocket player never matched")
		}
		if matched.OpponentName != "" {
			break
		}
	}
	assert.Equal(t, wire.GameStart{OpponentName: "kain", OpponentRating: 1200}, matched)
	assert.Equal(t, wire.GameStart{OpponentName: "andrei", OpponentRating: 1199}, tcp.skipQueue())
}

func TestRunWithoutListener(t *testing.T) {
	s := New(session.NewHub(accounts.NewMemoryStore()))
	assert.Error(t, s.Run(context.Background()))
}

// gatedStore holds every Authenticate until release is closed.
type gatedStore struct {
	*accounts.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Authenticate(ctx context.Context, username, password string) error {
	s.entered <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.MemoryStore.Authenticate(ctx, username, password)
}

func TestSlowLoginLeavesLoopResponsive(t *testing.T) {
	store := &gatedStore{
		MemoryStore: seededStore(t),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
	h := startWithStore(t, false, store)
	c := dial(t, h.tcpAddr)
	c.send(wire.Connect{Version: protocol.Version, Username: "cam", Password: "mac"})

	select {
	case <-store.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("login never reached the store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	st, err := h.srv.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Sessions)
	assert.Empty(t, st.Players)
	assert.Zero(t, st.QueueSize)

	close(store.release)
	assert.Equal(t, wire.QueuePosition{QueueSize: 1, Position: 1, Rating: 1200}, c.read())
}
