// Package archive records finished games.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/game"
)

var ErrNotFound = errors.New("archive: game not found")

// DefaultRecentLimit bounds the recent lists kept by every backend.
const DefaultRecentLimit = 100

type Reason string

const (
	ReasonWin        Reason = "win"
	ReasonDisconnect Reason = "disconnect"
	ReasonShutdown   Reason = "shutdown"
)

// Result is one archived game. Moves holds the encoded move bytes in play
// order, compulsory moves included.
type Result struct {
	GameID      string
	PlayerOne   string
	PlayerTwo   string
	Winner      string
	Loser       string
	Reason      Reason
	RatingDelta int
	Moves       []byte
	FinalBoard  checkers.Board
	StartedAt   time.Time
	EndedAt     time.Time
}

// FromGame converts an engine result.
func FromGame(r game.Result) Result {
	moves := make([]byte, len(r.Moves))
	for i, m := range r.Moves {
		moves[i] = m.Byte()
	}
	return Result{
		GameID:      r.GameID,
		PlayerOne:   r.PlayerOne,
		PlayerTwo:   r.PlayerTwo,
		Winner:      r.Winner,
		Loser:       r.Loser,
		Reason:      Reason(r.Outcome),
		RatingDelta: r.RatingDelta,
		Moves:       moves,
		FinalBoard:  r.FinalBoard,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
	}
}

// DecodedMoves expands Moves back into checkers moves.
func (r Result) DecodedMoves() []checkers.Move {
	out := make([]checkers.Move, len(r.Moves))
	for i, b := range r.Moves {
		out[i] = checkers.MoveFromByte(b)
	}
	return out
}

// Involves reports whether user played in r.
func (r Result) Involves(user string) bool {
	return user != "" && (r.PlayerOne == user || r.PlayerTwo == user)
}

// Recorder stores and lists results. Recent returns newest first; an empty
// user lists every game.
type Recorder interface {
	Save(ctx context.Context, r Result) error
	Get(ctx context.Context, id string) (Result, error)
	Recent(ctx context.Context, user string, limit int) ([]Result, error)
	Close() error
}

// record is the serialised form shared by the redis and postgres backends.
type record struct {
	GameID      string    `json:"gameId"`
	PlayerOne   string    `json:"playerOne"`
	PlayerTwo   string    `json:"playerTwo"`
	Winner      string    `json:"winner,omitempty"`
	Loser       string    `json:"loser,omitempty"`
	Reason      Reason    `json:"reason"`
	RatingDelta int       `json:"ratingDelta"`
	Moves       []byte    `json:"moves"`
	FinalBoard  []byte    `json:"finalBoard"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
}

func marshalResult(r Result) ([]byte, error) {
	board := r.FinalBoard.Bytes()
	return json.Marshal(record{
		GameID:      r.GameID,
		PlayerOne:   r.PlayerOne,
		PlayerTwo:   r.PlayerTwo,
		Winner:      r.Winner,
		Loser:       r.Loser,
		Reason:      r.Reason,
		RatingDelta: r.RatingDelta,
		Moves:       r.Moves,
		FinalBoard:  board[:],
		StartedAt:   r.StartedAt.UTC(),
		EndedAt:     r.EndedAt.UTC(),
	})
}

func unmarshalResult(raw []byte) (Result, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Result{}, fmt.Errorf("decode archived game: %w", err)
	}
	board, err := checkers.BoardFromBytes(rec.FinalBoard)
	if err != nil {
		return Result{}, fmt.Errorf("decode archived board: %w", err)
	}
	return Result{
		GameID:      rec.GameID,
		PlayerOne:   rec.PlayerOne,
		PlayerTwo:   rec.PlayerTwo,
		Winner:      rec.Winner,
		Loser:       rec.Loser,
		Reason:      rec.Reason,
		RatingDelta: rec.RatingDelta,
		Moves:       rec.Moves,
		FinalBoard:  board,
		StartedAt:   rec.StartedAt,
		EndedAt:     rec.EndedAt,
	}, nil
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}
