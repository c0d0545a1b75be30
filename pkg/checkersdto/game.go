package checkersdto

import "time"

// Move is one move in 1-based coordinates with named directions.
type Move struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	XDir string `json:"xDir"`
	YDir string `json:"yDir"`
}

type Game struct {
	ID          string    `json:"id"`
	PlayerOne   string    `json:"playerOne"`
	PlayerTwo   string    `json:"playerTwo"`
	Winner      string    `json:"winner,omitempty"`
	Loser       string    `json:"loser,omitempty"`
	Reason      string    `json:"reason"`
	RatingDelta int       `json:"ratingDelta"`
	Moves       []Move    `json:"moves"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
	DurationMs  int64     `json:"durationMs"`
}

type GameList struct {
	Games []Game `json:"games"`
}
