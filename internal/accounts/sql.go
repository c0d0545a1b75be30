package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqlQueries holds the dialect-specific statements for SQLStore.
type sqlQueries struct {
	schema    string
	password  string
	rating    string
	insert    string
	setRating string
}

// SQLStore keeps accounts in a checkers_accounts table. It is shared by the
// Postgres and SQLite backends, which differ only in placeholders and schema.
type SQLStore struct {
	db *sql.DB
	q  sqlQueries
}

func newSQLStore(ctx context.Context, db *sql.DB, q sqlQueries) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, q.schema); err != nil {
		return nil, fmt.Errorf("apply accounts schema: %w", err)
	}
	return &SQLStore{db: db, q: q}, nil
}

func (s *SQLStore) Authenticate(ctx context.Context, username, password string) error {
	var stored string
	err := s.db.QueryRowContext(ctx, s.q.password, username).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	if err != nil {
		return err
	}
	if !passwordMatches(stored, password) {
		return ErrInvalidPassword
	}
	return nil
}

func (s *SQLStore) Rating(ctx context.Context, username string) (int, error) {
	var r int
	err := s.db.QueryRowContext(ctx, s.q.rating, username).Scan(&r)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	return r, err
}

func (s *SQLStore) Register(ctx context.Context, username, password string, rating int) error {
	u, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q.insert, u, hashPassword(password), ratingOrDefault(rating))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, u)
	}
	return nil
}

func (s *SQLStore) SetRating(ctx context.Context, username string, rating int) error {
	res, err := s.db.ExecContext(ctx, s.q.setRating, rating, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
