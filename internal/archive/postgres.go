package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/checkers-lobby/internal/checkers"

	_ "github.com/lib/pq"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS checkers_games (
    game_id      TEXT PRIMARY KEY,
    player_one   TEXT NOT NULL,
    player_two   TEXT NOT NULL,
    winner       TEXT NOT NULL DEFAULT '',
    loser        TEXT NOT NULL DEFAULT '',
    reason       TEXT NOT NULL,
    rating_delta INTEGER NOT NULL,
    moves        BYTEA NOT NULL,
    final_board  BYTEA NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
)`

const selectColumns = `game_id, player_one, player_two, winner, loser, reason,
    rating_delta, moves, final_board, started_at, ended_at`

// PostgresArchive upserts results into checkers_games.
type PostgresArchive struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres archive")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return &PostgresArchive{db: db}, nil
}

func (a *PostgresArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *PostgresArchive) Save(ctx context.Context, r Result) error {
	board := r.FinalBoard.Bytes()
	duration := r.EndedAt.Sub(r.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	q := `INSERT INTO checkers_games (
        game_id, player_one, player_two, winner, loser, reason,
        rating_delta, moves, final_board, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
      ) ON CONFLICT (game_id) DO UPDATE SET
        winner=EXCLUDED.winner,
        loser=EXCLUDED.loser,
        reason=EXCLUDED.reason,
        rating_delta=EXCLUDED.rating_delta,
        moves=EXCLUDED.moves,
        final_board=EXCLUDED.final_board,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`
	_, err := a.db.ExecContext(ctx, q,
		r.GameID, r.PlayerOne, r.PlayerTwo, r.Winner, r.Loser, string(r.Reason),
		r.RatingDelta, r.Moves, board[:], r.StartedAt, r.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("archive game %s: %w", r.GameID, err)
	}
	return nil
}

func (a *PostgresArchive) Get(ctx context.Context, id string) (Result, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM checkers_games WHERE game_id = $1`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

func (a *PostgresArchive) Recent(ctx context.Context, user string, limit int) ([]Result, error) {
	limit = clampLimit(limit, DefaultRecentLimit)
	var (
		rows *sql.Rows
		err  error
	)
	if user == "" {
		rows, err = a.db.QueryContext(ctx,
			`SELECT `+selectColumns+` FROM checkers_games ORDER BY ended_at DESC LIMIT $1`, limit)
	} else {
		rows, err = a.db.QueryContext(ctx,
			`SELECT `+selectColumns+` FROM checkers_games
             WHERE player_one = $1 OR player_two = $1
             ORDER BY ended_at DESC LIMIT $2`, user, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (Result, error) {
	var (
		r      Result
		reason string
		board  []byte
	)
	if err := s.Scan(&r.GameID, &r.PlayerOne, &r.PlayerTwo, &r.Winner, &r.Loser, &reason,
		&r.RatingDelta, &r.Moves, &board, &r.StartedAt, &r.EndedAt); err != nil {
		return Result{}, err
	}
	r.Reason = Reason(reason)
	b, err := checkers.BoardFromBytes(board)
	if err != nil {
		return Result{}, err
	}
	r.FinalBoard = b
	return r, nil
}
