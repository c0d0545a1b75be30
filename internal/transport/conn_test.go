package transport

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendFlushesBeforeClose(t *testing.T) {
	local, remote := net.Pipe()
	c := NewConn(local)

	msgs := []wire.Message{
		wire.QueuePosition{QueueSize: 1, Position: 1, Rating: 1200},
		wire.YourTurn{LastMove: checkers.FirstMove, Board: checkers.GenerateGameStart()},
		wire.OpponentDisconnect{},
	}
	for _, m := range msgs {
		require.NoError(t, c.Send(m))
	}
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(wire.LogOut{}), ErrClosed)

	r := wire.NewReader(remote)
	for _, want := range msgs {
		got, err := r.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("socket not closed")
	}
}

func TestReadMessages(t *testing.T) {
	local, remote := net.Pipe()
	c := NewConn(local)
	defer c.Close()

	go func() {
		_, _ = remote.Write(wire.Encode(wire.Connect{Version: 1, Username: "cam", Password: "mac"}))
		_, _ = remote.Write(wire.Encode(wire.LogOut{}))
		_ = remote.Close()
	}()

	var got []wire.Message
	err := c.ReadMessages(func(m wire.Message) { got = append(got, m) })
	require.NoError(t, err)
	assert.Equal(t, []wire.Message{
		wire.Connect{Version: 1, Username: "cam", Password: "mac"},
		wire.LogOut{},
	}, got)
}

func TestReadMessagesBadTag(t *testing.T) {
	local, remote := net.Pipe()
	c := NewConn(local)
	defer c.Close()

	go func() {
		_, _ = remote.Write([]byte{0x55})
		_ = remote.Close()
	}()
	err := c.ReadMessages(func(wire.Message) {})
	assert.ErrorIs(t, err, wire.ErrInvalidType)
}

func TestSlowConsumerIsDropped(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewConn(local, WithOutboundBuffer(1))

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = c.Send(wire.OpponentDisconnect{})
	}
	assert.ErrorIs(t, err, ErrSlowConsumer)
	assert.ErrorIs(t, c.Send(wire.LogOut{}), ErrClosed)
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := httptest.NewServer(WebSocketHandler(func(c *Conn) {
		go func() {
			_ = c.ReadMessages(func(m wire.Message) {
				if _, ok := m.(wire.Connect); ok {
					_ = c.Send(wire.QueuePosition{QueueSize: 1, Position: 1, Rating: 1200})
				}
			})
			_ = c.Close()
		}()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := DialWebSocket(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(wire.Connect{Version: 1, Username: "cam", Password: "mac"}))

	got := make(chan wire.Message, 1)
	go func() {
		_ = c.ReadMessages(func(m wire.Message) {
			select {
			case got <- m:
			default:
			}
		})
	}()
	select {
	case m := <-got:
		assert.Equal(t, wire.QueuePosition{QueueSize: 1, Position: 1, Rating: 1200}, m)
	case <-ctx.Done():
		t.Fatal(errors.New("no reply over websocket"))
	}
}
