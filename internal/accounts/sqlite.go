package accounts

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

var sqliteQueries = sqlQueries{
	schema:    sqliteSchema,
	password:  `SELECT password_hash FROM checkers_accounts WHERE username = ?`,
	rating:    `SELECT rating FROM checkers_accounts WHERE username = ?`,
	insert:    `INSERT INTO checkers_accounts (username, password_hash, rating) VALUES (?, ?, ?) ON CONFLICT (username) DO NOTHING`,
	setRating: `UPDATE checkers_accounts SET rating = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`,
}

// OpenSQLite creates or opens the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	s, err := newSQLStore(ctx, db, sqliteQueries)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
