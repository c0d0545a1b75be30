package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

var postgresQueries = sqlQueries{
	schema: `CREATE TABLE IF NOT EXISTS checkers_accounts (
        username      TEXT PRIMARY KEY,
        password_hash TEXT NOT NULL,
        rating        INTEGER NOT NULL,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	password:  `SELECT password_hash FROM checkers_accounts WHERE username = $1`,
	rating:    `SELECT rating FROM checkers_accounts WHERE username = $1`,
	insert:    `INSERT INTO checkers_accounts (username, password_hash, rating) VALUES ($1, $2, $3) ON CONFLICT (username) DO NOTHING`,
	setRating: `UPDATE checkers_accounts SET rating = $1, updated_at = now() WHERE username = $2`,
}

// OpenPostgres connects to databaseURL, applies the accounts schema and
// returns a store owning the pool.
func OpenPostgres(ctx context.Context, databaseURL string) (*SQLStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres account store")
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
	s, err := newSQLStore(ctx, db, postgresQueries)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
