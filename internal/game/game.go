package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/obslog"
	"go.uber.org/zap"
)

// RatingDelta is the fixed rating swing applied to winner and loser.
const RatingDelta = 10

var (
	ErrSameUser    = errors.New("game: players share a username")
	ErrInvalidMove = errors.New("game: invalid move")
	ErrNotYourTurn = fmt.Errorf("%w: not your turn", ErrInvalidMove)
	ErrFinished    = fmt.Errorf("%w: game is over", ErrInvalidMove)
)

// Player is the engine's view of a seated session. The engine calls back into
// it synchronously; implementations must not call ApplyMove re-entrantly.
type Player interface {
	Username() string
	Rating() int
	OnGameStart(opponent string, opponentRating int, g *Game)
	OnRequestMove(last checkers.Move, board checkers.Board)
	OnCompulsoryMove(m checkers.Move, board checkers.Board)
	OnGameEnd(last checkers.Move, board checkers.Board, ratingDelta int, won bool)
	OnOpponentDisconnect()
}

type Option func(*Game)

// WithRand sets the source used to pick among several forced captures.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) {
		if r != nil {
			g.rng = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Game) {
		if l != nil {
			g.log = l
		}
	}
}

// WithResultHook registers a callback invoked once when the game ends.
func WithResultHook(fn func(Result)) Option {
	return func(g *Game) { g.onResult = fn }
}

// WithBoard starts the game from b instead of the standard layout.
func WithBoard(b checkers.Board) Option {
	return func(g *Game) { g.board = b }
}

// WithClock overrides time.Now for start/end stamps.
func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		if now != nil {
			g.now = now
		}
	}
}

// Game owns one board and two seats. playerOne has the lower rating, moves
// first and owns the owner=true pieces.
type Game struct {
	id        string
	board     checkers.Board
	playerOne Player
	playerTwo Player
	nextToGo  Player
	moves     []checkers.Move
	over      bool
	startedAt time.Time

	rng      *rand.Rand
	log      *zap.Logger
	now      func() time.Time
	onResult func(Result)
}

// New seats two players. Ratings decide the seats; on a tie the second
// argument becomes playerOne.
func New(one, two Player, opts ...Option) (*Game, error) {
	if one.Username() == two.Username() {
		return nil, fmt.Errorf("%w: %s", ErrSameUser, one.Username())
	}
	g := &Game{
		id:    uuid.NewString(),
		board: checkers.GenerateGameStart(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		log:   obslog.L(),
		now:   time.Now,
	}
	if one.Rating() < two.Rating() {
		g.playerOne, g.playerTwo = one, two
	} else {
		g.playerOne, g.playerTwo = two, one
	}
	for _, opt := range opts {
		opt(g)
	}
	g.startedAt = g.now()
	return g, nil
}

// Start announces the match to both seats and asks playerOne for a move.
func (g *Game) Start() {
	g.log.Info("game_start",
		zap.String("game", g.id),
		zap.String("player_one", g.playerOne.Username()),
		zap.String("player_two", g.playerTwo.Username()))

	g.playerOne.OnGameStart(g.playerTwo.Username(), g.playerTwo.Rating(), g)
	if g.over {
		return
	}
	g.playerTwo.OnGameStart(g.playerOne.Username(), g.playerOne.Rating(), g)
	if g.over {
		return
	}
	g.nextToGo = g.playerOne
	g.nextToGo.OnRequestMove(checkers.FirstMove, g.Board(g.nextToGo))
}

func (g *Game) ID() string { return g.id }
func (g *Game) Over() bool { return g.over }

// Moves returns every move applied so far, compulsory ones included.
func (g *Game) Moves() []checkers.Move {
	return append([]checkers.Move(nil), g.moves...)
}

// Board returns the board as seen by p: playerTwo gets the translated view.
func (g *Game) Board(p Player) checkers.Board {
	if g.isPrimary(p) {
		return g.board
	}
	return g.board.Translate()
}

// ApplyMove plays m for p, then runs forced captures until a player has to
// decide again or the game is over. A rejected move leaves the board as is.
func (g *Game) ApplyMove(m checkers.Move, p Player) error {
	if g.over {
		return ErrFinished
	}
	if g.nextToGo == nil || g.nextToGo.Username() != p.Username() {
		g.log.Info("game_move_out_of_turn", zap.String("game", g.id), zap.String("user", p.Username()))
		return ErrNotYourTurn
	}
	if err := g.board.ApplyMove(m, g.allowedDirection(p), g.isPrimary(p)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	g.moves = append(g.moves, m)
	g.log.Debug("game_move",
		zap.String("game", g.id),
		zap.String("user", p.Username()),
		zap.Stringer("move", m))

	g.nextToGo = g.opponent(p)
	last, forced := g.resolveCompulsory()
	if g.over {
		return nil
	}
	if !forced {
		last = m
	}

	switch {
	case g.board.CheckGameOver(true):
		g.finish(g.playerOne, last)
	case g.board.CheckGameOver(false):
		g.finish(g.playerTwo, last)
	default:
		g.nextToGo.OnRequestMove(last, g.Board(g.nextToGo))
	}
	return nil
}

// resolveCompulsory plays captures for whoever is to move, one at random when
// several exist. A capturing piece keeps capturing while it can; then the turn
// passes and the other side is checked. It returns the last move it made.
func (g *Game) resolveCompulsory() (checkers.Move, bool) {
	var last checkers.Move
	made := false
	for {
		mover := g.nextToGo
		allowed, primary := g.allowedDirection(mover), g.isPrimary(mover)
		required := g.board.RequiredMoves(allowed, primary)
		if len(required) == 0 {
			return last, made
		}
		for len(required) > 0 {
			m := required[g.rng.Intn(len(required))]
			if err := g.board.ApplyMove(m, allowed, primary); err != nil {
				g.log.Error("game_compulsory_rejected", zap.String("game", g.id), zap.Stringer("move", m), zap.Error(err))
				return last, made
			}
			g.moves = append(g.moves, m)
			last, made = m, true
			g.log.Info("game_compulsory_move",
				zap.String("game", g.id),
				zap.String("user", mover.Username()),
				zap.Stringer("move", m))

			g.playerOne.OnCompulsoryMove(m, g.Board(g.playerOne))
			if g.over {
				return last, made
			}
			g.playerTwo.OnCompulsoryMove(m, g.Board(g.playerTwo))
			if g.over {
				return last, made
			}

			pin := m.AfterDoubleMove()
			required = required[:0]
			for _, next := range g.board.RequiredMoves(allowed, primary) {
				if next.Pos() == pin {
					required = append(required, next)
				}
			}
		}
		g.nextToGo = g.opponent(mover)
	}
}

func (g *Game) finish(winner Player, last checkers.Move) {
	loser := g.opponent(winner)
	g.over = true
	g.log.Info("game_over",
		zap.String("game", g.id),
		zap.String("winner", winner.Username()),
		zap.String("loser", loser.Username()))

	winner.OnGameEnd(last, g.Board(winner), RatingDelta, true)
	loser.OnGameEnd(last, g.Board(loser), -RatingDelta, false)
	g.report(OutcomeWin, winner, loser, RatingDelta)
}

// UserDisconnect ends the game because p left; the opponent is told.
func (g *Game) UserDisconnect(p Player) {
	if g.over {
		return
	}
	g.over = true
	opp := g.opponent(p)
	g.log.Info("game_user_disconnect", zap.String("game", g.id), zap.String("user", p.Username()))
	opp.OnOpponentDisconnect()
	g.report(OutcomeDisconnect, opp, p, 0)
}

// Abort ends the game without notifying either seat. Used on shutdown, where
// both connections are closed by the caller.
func (g *Game) Abort() {
	if g.over {
		return
	}
	g.over = true
	g.log.Info("game_aborted", zap.String("game", g.id))
	g.report(OutcomeShutdown, nil, nil, 0)
}

func (g *Game) report(outcome Outcome, winner, loser Player, delta int) {
	if g.onResult == nil {
		return
	}
	r := Result{
		GameID:      g.id,
		PlayerOne:   g.playerOne.Username(),
		PlayerTwo:   g.playerTwo.Username(),
		Outcome:     outcome,
		RatingDelta: delta,
		Moves:       g.Moves(),
		FinalBoard:  g.board,
		StartedAt:   g.startedAt,
		EndedAt:     g.now(),
	}
	if winner != nil {
		r.Winner = winner.Username()
	}
	if loser != nil {
		r.Loser = loser.Username()
	}
	g.onResult(r)
}

func (g *Game) isPrimary(p Player) bool {
	return p.Username() == g.playerOne.Username()
}

// allowedDirection is the forward y-direction of p's men.
func (g *Game) allowedDirection(p Player) checkers.Direction {
	if g.isPrimary(p) {
		return checkers.Negative
	}
	return checkers.Positive
}

func (g *Game) opponent(p Player) Player {
	if g.isPrimary(p) {
		return g.playerTwo
	}
	return g.playerOne
}
