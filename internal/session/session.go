// Package session implements the server side of the protocol: one Session per
// connection, driven by inbound messages and by game and queue callbacks.
package session

import (
	"errors"
	"math"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/game"
	"github.com/park285/checkers-lobby/internal/matchqueue"
	"github.com/park285/checkers-lobby/internal/protocol"
	"github.com/park285/checkers-lobby/internal/wire"
	"go.uber.org/zap"
)

// Conn is the outbound half of a connection. Send must not block; a slow or
// dead peer is dealt with by the transport, which closes the connection.
type Conn interface {
	Send(m wire.Message) error
	Close() error
	RemoteAddr() string
}

// Session is one connected client. All methods run on the hub's goroutine.
type Session struct {
	hub      *Hub
	conn     Conn
	log      *zap.Logger
	state    protocol.State
	username string
	rating   int
	game     *game.Game
	closed   bool

	// authenticating is set while a Connect waits on the store.
	authenticating bool
}

var (
	_ game.Player       = (*Session)(nil)
	_ matchqueue.Member = (*Session)(nil)
)

func (s *Session) Username() string      { return s.username }
func (s *Session) Rating() int           { return s.rating }
func (s *Session) State() protocol.State { return s.state }
func (s *Session) Closed() bool          { return s.closed }

func (s *Session) send(m wire.Message) {
	if s.closed {
		return
	}
	s.log.Debug("session_send", zap.String("user", s.username), zap.Stringer("type", m.Type()))
	if err := s.conn.Send(m); err != nil {
		s.log.Warn("session_send_failed", zap.String("user", s.username), zap.Stringer("type", m.Type()), zap.Error(err))
	}
}

// handle dispatches an inbound message through the transition table.
func (s *Session) handle(m wire.Message) {
	if s.closed {
		return
	}
	s.log.Debug("session_recv",
		zap.String("user", s.username),
		zap.Stringer("state", s.state),
		zap.Stringer("type", m.Type()))
	h, ok := transitions[s.state][m.Type()]
	if !ok {
		s.violation("message not allowed in state", zap.Stringer("type", m.Type()))
		return
	}
	h(s, m)
}

func (s *Session) violation(msg string, fields ...zap.Field) {
	fields = append(fields, zap.String("user", s.username), zap.Stringer("state", s.state))
	s.log.Warn("session_protocol_violation", append(fields, zap.String("reason", msg))...)
	s.disconnect(false)
}

// disconnect closes the connection. Unless force is set the session first
// leaves the queue and any game, so the opponent is told.
func (s *Session) disconnect(force bool) {
	if s.closed {
		return
	}
	user := s.username
	if !force {
		if s.state == protocol.InQueue {
			if err := s.hub.queue.Dequeue(s); err != nil && !errors.Is(err, matchqueue.ErrNotInQueue) {
				s.log.Error("session_dequeue_failed", zap.String("user", user), zap.Error(err))
			}
		}
		s.leaveGame()
		s.clearIdentity()
	}
	s.closed = true
	delete(s.hub.sessions, s)
	if err := s.conn.Close(); err != nil {
		s.log.Warn("session_close_failed", zap.String("user", user), zap.Error(err))
	}
	s.log.Info("session_disconnected", zap.String("user", user), zap.Bool("force", force))
}

func (s *Session) leaveGame() {
	if s.game == nil {
		return
	}
	g := s.game
	s.game = nil
	g.UserDisconnect(s)
}

func (s *Session) clearIdentity() {
	s.username = ""
	s.rating = 0
	s.game = nil
	s.state = protocol.Unauthenticated
}

func (s *Session) queuePosition() wire.QueuePosition {
	q := s.hub.queue
	loc, err := q.LocationOf(s)
	if err != nil {
		s.log.Error("session_queue_location", zap.String("user", s.username), zap.Error(err))
	}
	return wire.QueuePosition{
		QueueSize: uint32(q.Len()),
		Position:  uint32(loc + 1),
		Rating:    clampRating(s.rating),
	}
}

// Game callbacks.

func (s *Session) OnGameStart(opponent string, opponentRating int, g *game.Game) {
	s.game = g
	if s.state != protocol.InQueue {
		s.violation("game start outside queue")
		return
	}
	s.send(wire.GameStart{OpponentName: opponent, OpponentRating: clampRating(opponentRating)})
	s.state = protocol.ProcessingGameState
}

func (s *Session) OnCompulsoryMove(m checkers.Move, board checkers.Board) {
	if s.state != protocol.ProcessingGameState {
		s.violation("compulsory move outside game processing")
		return
	}
	s.send(wire.CompulsoryMove{Move: m, Board: board})
}

func (s *Session) OnRequestMove(last checkers.Move, board checkers.Board) {
	if s.state != protocol.ProcessingGameState {
		s.violation("move request outside game processing")
		return
	}
	s.send(wire.YourTurn{LastMove: last, Board: board})
	s.state = protocol.UserMove
}

func (s *Session) OnGameEnd(last checkers.Move, board checkers.Board, ratingDelta int, won bool) {
	if s.state != protocol.ProcessingGameState {
		s.violation("game end outside game processing")
		return
	}
	old := s.rating
	updated := old + ratingDelta
	s.send(wire.GameOver{
		Won:       won,
		NewRating: clampRating(updated),
		OldRating: clampRating(old),
		LastMove:  last,
		Board:     board,
	})
	s.hub.persistRating(s.username, updated)
	s.rating = updated
	s.game = nil
	s.state = protocol.GameEnd
}

func (s *Session) OnOpponentDisconnect() {
	if s.state != protocol.ProcessingGameState && s.state != protocol.UserMove {
		s.violation("opponent disconnect outside a game")
		return
	}
	s.send(wire.OpponentDisconnect{})
	s.game = nil
	s.state = protocol.GameEnd
}

// OnQueuePosition is the queue's periodic update.
func (s *Session) OnQueuePosition(size, position int) {
	if s.state != protocol.InQueue {
		s.violation("queue update outside queue")
		return
	}
	s.send(wire.QueuePosition{QueueSize: uint32(size), Position: uint32(position), Rating: clampRating(s.rating)})
}

// clampRating maps a rating onto the unsigned wire field.
func clampRating(r int) uint32 {
	switch {
	case r < 0:
		return 0
	case int64(r) > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(r)
	}
}
