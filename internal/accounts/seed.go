package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedUser is one entry of a seed list.
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Rating   int    `yaml:"rating"`
}

// DefaultSeed is the demo roster registered on a fresh store.
var DefaultSeed = []SeedUser{
	{Username: "cam", Password: "mac", Rating: 1200},
	{Username: "jen", Password: "nej", Rating: 1201},
	{Username: "kain", Password: "niak", Rating: 1200},
	{Username: "andrei", Password: "ierdna", Rating: 1199},
}

// LoadSeedFile reads a YAML list of users.
func LoadSeedFile(path string) ([]SeedUser, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var users []SeedUser
	if err := yaml.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return users, nil
}

// Seed registers every user that is not already present. Existing accounts
// keep their password and rating. It returns how many were created.
func Seed(ctx context.Context, s Store, users []SeedUser, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	created := 0
	for _, u := range users {
		err := s.Register(ctx, u.Username, u.Password, u.Rating)
		switch {
		case err == nil:
			created++
			logger.Info("accounts_seeded", zap.String("user", u.Username), zap.Int("rating", ratingOrDefault(u.Rating)))
		case errors.Is(err, ErrDuplicateUser):
		default:
			return created, fmt.Errorf("seed %s: %w", u.Username, err)
		}
	}
	return created, nil
}
