package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	err := s.Authenticate(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, ErrUserDoesNotExist)
	_, err = s.Rating(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserDoesNotExist)
	assert.ErrorIs(t, s.SetRating(ctx, "ghost", 1), ErrUserDoesNotExist)

	require.NoError(t, s.Register(ctx, "cam", "mac", 1200))
	assert.ErrorIs(t, s.Register(ctx, "cam", "other", 1300), ErrDuplicateUser)
	assert.ErrorIs(t, s.Register(ctx, "  ", "pw", 1), ErrInvalidUsername)

	assert.NoError(t, s.Authenticate(ctx, "cam", "mac"))
	assert.ErrorIs(t, s.Authenticate(ctx, "cam", "cam"), ErrInvalidPassword)

	r, err := s.Rating(ctx, "cam")
	require.NoError(t, err)
	assert.Equal(t, 1200, r)

	require.NoError(t, s.SetRating(ctx, "cam", 1210))
	r, err = s.Rating(ctx, "cam")
	require.NoError(t, err)
	assert.Equal(t, 1210, r)

	require.NoError(t, s.SetRating(ctx, "cam", 1210))

	require.NoError(t, s.Register(ctx, "fresh", "pw", 0))
	r, err = s.Rating(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, r)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := DialRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newRedisStore(t)
	exerciseStore(t, s)

	assert.Equal(t, "1210", mr.HGet("account:cam", "rating"))
	assert.NotEqual(t, "mac", mr.HGet("account:cam", "password"))
}

func TestRedisStoreSharedClientStaysOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewRedisStore(rdb)
	require.NoError(t, s.Close())
	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestDialRedisRequiresURL(t *testing.T) {
	_, err := DialRedis(context.Background(), " ")
	assert.Error(t, err)
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@cache:6380/3")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = ParseRedisURL("http://cache")
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()
	r, err := reopened.Rating(context.Background(), "cam")
	require.NoError(t, err)
	assert.Equal(t, 1210, r)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.db.ExecContext(ctx, "DELETE FROM checkers_accounts WHERE username IN ('cam', 'fresh')")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestOpenPostgresRequiresURL(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	assert.Error(t, err)
}
