package serverbuilder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/checkers-lobby/internal/accounts"
	"github.com/park285/checkers-lobby/internal/archive"
	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/config"
	"github.com/park285/checkers-lobby/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.StoreConfig {
	return config.StoreConfig{
		AccountsBackend:    config.BackendMemory,
		ArchiveBackend:     config.BackendMemory,
		ArchiveRecentLimit: 10,
		ArchiveTTL:         time.Hour,
	}
}

func TestMemoryDeps(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, memoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NotNil(t, d.Hub)
	require.NotNil(t, d.Writer)
	require.NotNil(t, d.Renderer)
	assert.NoError(t, d.Accounts.Authenticate(ctx, "cam", "mac"))
	r, err := d.Accounts.Rating(ctx, "andrei")
	require.NoError(t, err)
	assert.Equal(t, 1199, r)
}

func TestArchiveHookSubmits(t *testing.T) {
	ctx := context.Background()
	rec := archive.NewMemoryArchive(4)
	w := archive.NewWriter(rec, nil)

	ArchiveHook(w)(game.Result{
		GameID:     "g7",
		PlayerOne:  "cam",
		PlayerTwo:  "jen",
		Winner:     "jen",
		Loser:      "cam",
		Outcome:    game.OutcomeWin,
		Moves:      []checkers.Move{checkers.FirstMove},
		FinalBoard: checkers.GenerateGameStart(),
	})
	w.Close()

	got, err := rec.Get(ctx, "g7")
	require.NoError(t, err)
	assert.Equal(t, archive.ReasonWin, got.Reason)
	assert.Equal(t, "jen", got.Winner)
}

func TestArchiveNone(t *testing.T) {
	cfg := memoryConfig()
	cfg.ArchiveBackend = config.BackendNone
	d, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer d.Close()
	assert.Nil(t, d.Archive)
	assert.Nil(t, d.Writer)
}

func TestRedisDepsShareClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := memoryConfig()
	cfg.AccountsBackend = config.BackendRedis
	cfg.ArchiveBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	ctx := context.Background()
	d, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, d.Accounts.Authenticate(ctx, "jen", "nej"))
	assert.True(t, mr.Exists("account:jen"))

	require.NoError(t, d.Archive.Save(ctx, archive.Result{GameID: "r1", PlayerOne: "cam", PlayerTwo: "jen"}))
	assert.True(t, mr.Exists("game:r1"))
	require.NoError(t, d.Close())
}

func TestSQLiteWithSeedFile(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("- username: ada\n  password: lovelace\n  rating: 1300\n"), 0o644))

	cfg := memoryConfig()
	cfg.AccountsBackend = config.BackendSQLite
	cfg.SQLitePath = filepath.Join(dir, "accounts.db")
	cfg.SeedFile = seed

	ctx := context.Background()
	d, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, d.Accounts.Authenticate(ctx, "ada", "lovelace"))
	assert.ErrorIs(t, d.Accounts.Authenticate(ctx, "cam", "mac"), accounts.ErrUserDoesNotExist)
	require.NoError(t, d.Close())

	// reopening keeps the account without the server seeding it again
	store, err := OpenAccounts(ctx, cfg)
	require.NoError(t, err)
	defer store.Close()
	r, err := store.Rating(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, 1300, r)
}

func TestBadConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.AccountsBackend = config.BackendRedis
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "REDIS_URL")

	cfg.RedisURL = "redis://127.0.0.1:1"
	_, err = New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "redis ping")
}
