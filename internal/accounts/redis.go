package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPassword = "password"
	fieldRating   = "rating"
)

// RedisStore keeps one hash per user under account:<username>.
type RedisStore struct {
	rdb   *redis.Client
	owned bool
}

// NewRedisStore uses a shared client; Close leaves it open.
func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

// DialRedis connects to REDIS_URL and pings it.
func DialRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for the redis account store")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, owned: true}, nil
}

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

func (s *RedisStore) key(username string) string { return "account:" + strings.TrimSpace(username) }

func (s *RedisStore) Authenticate(ctx context.Context, username, password string) error {
	stored, err := s.rdb.HGet(ctx, s.key(username), fieldPassword).Result()
	if errors.Is(err, redis.Nil) {
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

func (s *RedisStore) Rating(ctx context.Context, username string) (int, error) {
	r, err := s.rdb.HGet(ctx, s.key(username), fieldRating).Int()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	return r, err
}

func (s *RedisStore) Register(ctx context.Context, username, password string, rating int) error {
	u, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	created, err := s.rdb.HSetNX(ctx, s.key(u), fieldPassword, hashPassword(password)).Result()
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, u)
	}
	return s.rdb.HSet(ctx, s.key(u), fieldRating, ratingOrDefault(rating)).Err()
}

func (s *RedisStore) SetRating(ctx context.Context, username string, rating int) error {
	n, err := s.rdb.Exists(ctx, s.key(username)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserDoesNotExist, username)
	}
	return s.rdb.HSet(ctx, s.key(username), fieldRating, rating).Err()
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil || !s.owned {
		return nil
	}
	return s.rdb.Close()
}
