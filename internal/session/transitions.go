package session

import (
	"errors"

	"github.com/park285/checkers-lobby/internal/accounts"
	"github.com/park285/checkers-lobby/internal/matchqueue"
	"github.com/park285/checkers-lobby/internal/protocol"
	"github.com/park285/checkers-lobby/internal/wire"
	"go.uber.org/zap"
)

type handler func(s *Session, m wire.Message)

// transitions lists every inbound message a state accepts. Anything missing
// is a protocol violation and closes the connection.
var transitions = map[protocol.State]map[wire.Type]handler{
	protocol.Unauthenticated: {
		wire.TypeConnect: (*Session).onConnect,
	},
	protocol.InQueue: {
		wire.TypeLogOut: (*Session).onQueueLogOut,
	},
	protocol.ProcessingGameState: {
		wire.TypeLogOut: (*Session).onGameLogOut,
	},
	protocol.UserMove: {
		wire.TypeMakeMove: (*Session).onMakeMove,
		wire.TypeLogOut:   (*Session).onGameLogOut,
	},
	protocol.GameEnd: {
		wire.TypeMakeMove: (*Session).onLateMove,
		wire.TypeReQueue:  (*Session).onReQueue,
		wire.TypeLogOut:   (*Session).onGameEndLogOut,
	},
}

func (s *Session) onConnect(m wire.Message) {
	c := m.(wire.Connect)
	if s.authenticating {
		s.violation("connect while a login is pending")
		return
	}
	if !protocol.IsSupported(c.Version) {
		lowest, highest := protocol.VersionRange()
		s.log.Info("session_unsupported_version", zap.Uint8("version", c.Version))
		s.send(wire.InvalidVersion{Highest: highest, Lowest: lowest})
		return
	}
	s.authenticating = true
	s.hub.authenticate(s, c.Username, c.Password)
}

// finishLogin applies a store lookup started by onConnect. It runs on the
// hub's goroutine.
func (s *Session) finishLogin(res loginResult) {
	s.authenticating = false
	if s.closed || s.state != protocol.Unauthenticated {
		return
	}
	switch err := res.authErr; {
	case errors.Is(err, accounts.ErrUserDoesNotExist):
		s.log.Info("session_login_unknown_user", zap.String("user", res.username))
		s.send(wire.InvalidLogin{Reason: wire.AccountDoesNotExist})
		return
	case errors.Is(err, accounts.ErrInvalidPassword):
		s.log.Info("session_login_bad_password", zap.String("user", res.username))
		s.send(wire.InvalidLogin{Reason: wire.InvalidPassword})
		return
	case err != nil:
		s.log.Error("session_login_store_failed", zap.String("user", res.username), zap.Error(err))
		s.disconnect(false)
		return
	}

	if s.hub.online(res.username, s) {
		s.log.Info("session_login_duplicate", zap.String("user", res.username))
		s.send(wire.InvalidLogin{Reason: wire.AlreadyLoggedIn})
		return
	}
	if res.ratingErr != nil {
		s.log.Error("session_rating_lookup_failed", zap.String("user", res.username), zap.Error(res.ratingErr))
		s.disconnect(false)
		return
	}

	s.username, s.rating = res.username, s.hub.rating(res.username, res.rating)
	if err := s.hub.queue.Enqueue(s); err != nil {
		s.username, s.rating = "", 0
		if errors.Is(err, matchqueue.ErrDuplicateUser) {
			s.send(wire.InvalidLogin{Reason: wire.AlreadyLoggedIn})
			return
		}
		s.log.Error("session_enqueue_failed", zap.String("user", res.username), zap.Error(err))
		s.disconnect(false)
		return
	}
	s.state = protocol.InQueue
	s.log.Info("session_login", zap.String("user", s.username), zap.Int("rating", s.rating))
	s.send(s.queuePosition())
}

func (s *Session) onQueueLogOut(wire.Message) {
	s.log.Info("session_logout", zap.String("user", s.username))
	if err := s.hub.queue.Dequeue(s); err != nil && !errors.Is(err, matchqueue.ErrNotInQueue) {
		s.log.Error("session_dequeue_failed", zap.String("user", s.username), zap.Error(err))
	}
	s.clearIdentity()
}

func (s *Session) onGameLogOut(wire.Message) {
	s.log.Info("session_logout", zap.String("user", s.username))
	s.leaveGame()
	s.clearIdentity()
}

func (s *Session) onMakeMove(m wire.Message) {
	mm := m.(wire.MakeMove)
	g := s.game
	if g == nil {
		s.violation("move without a game")
		return
	}
	s.state = protocol.ProcessingGameState
	if err := g.ApplyMove(mm.Move, s); err != nil {
		s.log.Info("session_invalid_move", zap.String("user", s.username), zap.Stringer("move", mm.Move), zap.Error(err))
		s.state = protocol.UserMove
		s.send(wire.InvalidMove{Move: mm.Move, Board: g.Board(s)})
		return
	}
	s.log.Info("session_move", zap.String("user", s.username), zap.Stringer("move", mm.Move))
}

// onLateMove tolerates a MakeMove that crossed an OpponentDisconnect or
// GameOver on the wire.
func (s *Session) onLateMove(m wire.Message) {
	mm := m.(wire.MakeMove)
	if s.game == nil {
		s.log.Info("session_move_after_game_end", zap.String("user", s.username), zap.Stringer("move", mm.Move))
		return
	}
	s.log.Warn("session_move_in_game_end", zap.String("user", s.username), zap.Stringer("move", mm.Move))
}

func (s *Session) onReQueue(wire.Message) {
	if err := s.hub.queue.Enqueue(s); err != nil {
		s.log.Warn("session_requeue_failed", zap.String("user", s.username), zap.Error(err))
		s.disconnect(false)
		return
	}
	s.log.Info("session_requeue", zap.String("user", s.username))
	s.state = protocol.InQueue
	s.send(s.queuePosition())
}

func (s *Session) onGameEndLogOut(wire.Message) {
	s.log.Info("session_logout", zap.String("user", s.username))
	s.clearIdentity()
}
