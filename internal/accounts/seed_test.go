package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaultRoster(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	n, err := Seed(ctx, s, DefaultSeed, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, u := range DefaultSeed {
		assert.NoError(t, s.Authenticate(ctx, u.Username, u.Password))
		r, err := s.Rating(ctx, u.Username)
		require.NoError(t, err)
		assert.Equal(t, u.Rating, r)
	}

	require.NoError(t, s.SetRating(ctx, "cam", 1300))
	n, err = Seed(ctx, s, DefaultSeed, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	r, _ := s.Rating(ctx, "cam")
	assert.Equal(t, 1300, r)
}

func TestSeedStopsOnStoreError(t *testing.T) {
	_, err := Seed(context.Background(), NewMemoryStore(), []SeedUser{{Username: ""}}, nil)
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	body := "- username: alice\n  password: ecila\n  rating: 1500\n- username: bob\n  password: bob\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	users, err := LoadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, []SeedUser{
		{Username: "alice", Password: "ecila", Rating: 1500},
		{Username: "bob", Password: "bob"},
	}, users)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
