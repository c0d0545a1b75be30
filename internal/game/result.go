package game

import (
	"time"

	"github.com/park285/checkers-lobby/internal/checkers"
)

type Outcome string

const (
	OutcomeWin        Outcome = "win"
	OutcomeDisconnect Outcome = "disconnect"
	OutcomeShutdown   Outcome = "shutdown"
)

// Result summarises a finished game. Winner and Loser are empty for shutdown
// games.
type Result struct {
	GameID      string
	PlayerOne   string
	PlayerTwo   string
	Winner      string
	Loser       string
	Outcome     Outcome
	RatingDelta int
	Moves       []checkers.Move
	FinalBoard  checkers.Board
	StartedAt   time.Time
	EndedAt     time.Time
}
