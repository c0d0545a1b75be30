// Package accounts stores credentials and ratings. Backends: in-memory,
// Redis, Postgres and SQLite, all behind Store.
package accounts

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// DefaultRating is assigned when Register is called with rating 0.
const DefaultRating = 1200

var (
	ErrUserDoesNotExist = errors.New("accounts: user does not exist")
	ErrInvalidPassword  = errors.New("accounts: invalid password")
	ErrDuplicateUser    = errors.New("accounts: user already registered")
	ErrInvalidUsername  = errors.New("accounts: invalid username")
)

type Store interface {
	// Authenticate returns nil when password matches, ErrUserDoesNotExist or
	// ErrInvalidPassword otherwise.
	Authenticate(ctx context.Context, username, password string) error
	Rating(ctx context.Context, username string) (int, error)
	Register(ctx context.Context, username, password string, rating int) error
	SetRating(ctx context.Context, username string, rating int) error
	Close() error
}

// Account is a stored user as exposed to tooling. The password never leaves
// the store.
type Account struct {
	Username string `json:"username" yaml:"username"`
	Rating   int    `json:"rating" yaml:"rating"`
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func passwordMatches(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(hashPassword(password))) == 1
}

func normalizeUsername(username string) (string, error) {
	u := strings.TrimSpace(username)
	if u == "" {
		return "", ErrInvalidUsername
	}
	return u, nil
}

func ratingOrDefault(r int) int {
	if r == 0 {
		return DefaultRating
	}
	return r
}
