package server

import (
	"github.com/park285/checkers-lobby/internal/transport"
	"github.com/park285/checkers-lobby/internal/wire"
)

// attach: a connection was accepted
type attach struct {
	conn *transport.Conn
}

// inbound: one decoded message, in arrival order per connection
type inbound struct {
	conn *transport.Conn
	msg  wire.Message
}

// closed: the reader stopped. err is nil for EOF.
type closed struct {
	conn *transport.Conn
	err  error
}

type statusQuery struct {
	reply chan<- Status
}

// deferred: a store call finished off the loop; fn applies its result
type deferred struct {
	fn func()
}
