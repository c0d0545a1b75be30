package accounts

import (
	"context"
	"fmt"
	"sync"
)

type memoryAccount struct {
	passwordHash string
	rating       int
}

// MemoryStore keeps accounts in a map. Contents are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]memoryAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]memoryAccount)}
}

func (s *MemoryStore) Authenticate(_ context.Context, username, password string) error {
	s.mu.RLock()
	acc, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	if !passwordMatches(acc.passwordHash, password) {
		return ErrInvalidPassword
	}
	return nil
}

func (s *MemoryStore) Rating(_ context.Context, username string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.users[username]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	return acc.rating, nil
}

func (s *MemoryStore) Register(_ context.Context, username, password string, rating int) error {
	u, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, u)
	}
	s.users[u] = memoryAccount{passwordHash: hashPassword(password), rating: ratingOrDefault(rating)}
	return nil
}

func (s *MemoryStore) SetRating(_ context.Context, username string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	acc.rating = rating
	s.users[username] = acc
	return nil
}

func (s *MemoryStore) Close() error { return nil }
