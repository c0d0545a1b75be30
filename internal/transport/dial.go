package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/park285/checkers-lobby/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const dialTimeout = 10 * time.Second

// DialTCP connects to host:port.
func DialTCP(ctx context.Context, host string, port int, opts ...Option) (*Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	var d net.Dialer
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	nc, err := d.DialContext(dctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConn(nc, opts...), nil
}

// DialWebSocket opens a websocket to url and carries the byte stream in
// binary frames.
func DialWebSocket(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	ws, _, err := websocket.Dial(dctx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      http.Header{"User-Agent": []string{"checkers-client"}},
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	// NetConn's context bounds the whole connection, not just the handshake.
	return NewConn(websocket.NetConn(context.Background(), ws, websocket.MessageBinary), opts...), nil
}

// WebSocketHandler upgrades requests and hands each connection to accept.
// The handler returns when the connection is done, as net/http requires.
func WebSocketHandler(accept func(*Conn), opts ...Option) http.Handler {
	log := obslog.L()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			log.Warn("transport_ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		ws.SetReadLimit(4096)
		c := NewConn(websocket.NetConn(r.Context(), ws, websocket.MessageBinary), opts...)
		accept(c)
		<-c.Done()
	})
}
