package client

import (
	"context"
	"fmt"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/protocol"
	"github.com/park285/checkers-lobby/internal/wire"
	"go.uber.org/zap"
)

type handler func(c *Client, ctx context.Context, m wire.Message) error

// transitions mirrors the server table. Connect has been sent while
// Unauthenticated, so the login replies arrive there.
var transitions = map[protocol.State]map[wire.Type]handler{
	protocol.Unauthenticated: {
		wire.TypeInvalidLogin:   (*Client).onInvalidLogin,
		wire.TypeInvalidVersion: (*Client).onInvalidVersion,
		wire.TypeQueuePosition:  (*Client).onQueuePosition,
	},
	protocol.InQueue: {
		wire.TypeQueuePosition: (*Client).onQueuePosition,
		wire.TypeGameStart:     (*Client).onGameStart,
	},
	protocol.ProcessingGameState: {
		wire.TypeYourTurn:           (*Client).onYourTurn,
		wire.TypeCompulsoryMove:     (*Client).onCompulsoryMove,
		wire.TypeInvalidMove:        (*Client).onInvalidMove,
		wire.TypeGameOver:           (*Client).onGameOver,
		wire.TypeOpponentDisconnect: (*Client).onOpponentDisconnect,
	},
	protocol.UserMove: {
		wire.TypeOpponentDisconnect: (*Client).onOpponentDisconnect,
	},
}

func (c *Client) onInvalidLogin(ctx context.Context, m wire.Message) error {
	reason := m.(wire.InvalidLogin).Reason
	c.log.Info("client_login_rejected", zap.String("user", c.username), zap.Stringer("reason", reason))
	c.ui.Notify(c.cat.Text("login.failed", map[string]any{"Reason": reason.String()}))
	u, p, err := c.ui.Credentials(ctx)
	if err != nil {
		return err
	}
	c.username, c.password = u, p
	return c.send(wire.Connect{Version: c.version, Username: u, Password: p})
}

func (c *Client) onInvalidVersion(_ context.Context, m wire.Message) error {
	v := m.(wire.InvalidVersion)
	c.ui.Notify(c.cat.Text("login.version", map[string]any{"Lowest": v.Lowest, "Highest": v.Highest, "Ours": c.version}))
	return fmt.Errorf("%w: server speaks %d..%d", ErrUnsupportedVersion, v.Lowest, v.Highest)
}

func (c *Client) onQueuePosition(_ context.Context, m wire.Message) error {
	q := m.(wire.QueuePosition)
	if c.state == protocol.Unauthenticated {
		c.log.Info("client_logged_in", zap.String("user", c.username), zap.Uint32("rating", q.Rating))
	}
	c.state = protocol.InQueue
	c.ui.Notify(c.cat.Text("queue.position", map[string]any{"Position": q.Position, "Size": q.QueueSize, "Rating": q.Rating}))
	return nil
}

func (c *Client) onGameStart(_ context.Context, m wire.Message) error {
	g := m.(wire.GameStart)
	c.log.Info("client_game_start", zap.String("opponent", g.OpponentName))
	c.state = protocol.ProcessingGameState
	c.ui.Notify(c.cat.Text("game.start", map[string]any{"Opponent": g.OpponentName, "Rating": g.OpponentRating}))
	return nil
}

func (c *Client) onYourTurn(ctx context.Context, m wire.Message) error {
	t := m.(wire.YourTurn)
	if t.LastMove == checkers.FirstMove {
		c.ui.Notify(c.cat.Text("game.first", nil))
	} else {
		c.ui.Notify(c.cat.Text("game.last_move", map[string]any{"Move": t.LastMove}))
	}
	return c.requestMove(ctx, t.Board)
}

func (c *Client) onCompulsoryMove(_ context.Context, m wire.Message) error {
	cm := m.(wire.CompulsoryMove)
	c.ui.Notify(c.cat.Text("game.compulsory", map[string]any{"Move": cm.Move}))
	c.ui.ShowBoard(cm.Board)
	return nil
}

func (c *Client) onInvalidMove(ctx context.Context, m wire.Message) error {
	im := m.(wire.InvalidMove)
	c.ui.Notify(c.cat.Text("game.invalid_move", map[string]any{"Move": im.Move}))
	return c.requestMove(ctx, im.Board)
}

// requestMove passes through UserMove while the player decides.
func (c *Client) requestMove(ctx context.Context, b checkers.Board) error {
	c.state = protocol.UserMove
	c.ui.ShowBoard(b)
	mv, err := c.ui.Move(ctx)
	if err != nil {
		return err
	}
	if err := c.send(wire.MakeMove{Move: mv}); err != nil {
		return err
	}
	c.state = protocol.ProcessingGameState
	return nil
}

func (c *Client) onGameOver(ctx context.Context, m wire.Message) error {
	g := m.(wire.GameOver)
	c.log.Info("client_game_over", zap.Bool("won", g.Won), zap.Uint32("rating", g.NewRating))
	c.state = protocol.GameEnd
	c.ui.ShowBoard(g.Board)
	if g.Won {
		c.ui.Notify(c.cat.Text("game.won", nil))
	} else {
		c.ui.Notify(c.cat.Text("game.lost", nil))
	}
	c.ui.Notify(c.cat.Text("game.rating", map[string]any{"Old": g.OldRating, "New": g.NewRating}))
	return c.offerReplay(ctx)
}

func (c *Client) onOpponentDisconnect(ctx context.Context, _ wire.Message) error {
	c.log.Info("client_opponent_left")
	c.state = protocol.GameEnd
	c.ui.Notify(c.cat.Text("game.opponent_left", nil))
	return c.offerReplay(ctx)
}

func (c *Client) offerReplay(ctx context.Context) error {
	again, err := c.ui.PlayAgain(ctx)
	if err != nil {
		return err
	}
	if !again {
		c.ui.Notify(c.cat.Text("client.bye", nil))
		return errQuit
	}
	if err := c.send(wire.ReQueue{}); err != nil {
		return err
	}
	c.state = protocol.InQueue
	return nil
}
