package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTTL = 30 * 24 * time.Hour

// RedisArchive stores each game as JSON under game:<id> and keeps id lists in
// games:recent and games:user:<name>, newest first.
type RedisArchive struct {
	rdb   *redis.Client
	ttl   time.Duration
	limit int
}

// NewRedisArchive uses a shared client. ttl and limit fall back to defaults
// when zero.
func NewRedisArchive(rdb *redis.Client, ttl time.Duration, limit int) *RedisArchive {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RedisArchive{rdb: rdb, ttl: ttl, limit: limit}
}

func (a *RedisArchive) keyGame(id string) string   { return "game:" + strings.TrimSpace(id) }
func (a *RedisArchive) keyRecent() string          { return "games:recent" }
func (a *RedisArchive) keyUser(user string) string { return "games:user:" + strings.TrimSpace(user) }

func (a *RedisArchive) Save(ctx context.Context, r Result) error {
	raw, err := marshalResult(r)
	if err != nil {
		return err
	}
	_, err = a.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, a.keyGame(r.GameID), raw, a.ttl)
		a.pushID(ctx, p, a.keyRecent(), r.GameID)
		for _, u := range []string{r.PlayerOne, r.PlayerTwo} {
			if u != "" {
				a.pushID(ctx, p, a.keyUser(u), r.GameID)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive game %s: %w", r.GameID, err)
	}
	return nil
}

func (a *RedisArchive) pushID(ctx context.Context, p redis.Pipeliner, key, id string) {
	p.LRem(ctx, key, 0, id)
	p.LPush(ctx, key, id)
	p.LTrim(ctx, key, 0, int64(a.limit-1))
	p.Expire(ctx, key, a.ttl)
}

func (a *RedisArchive) Get(ctx context.Context, id string) (Result, error) {
	raw, err := a.rdb.Get(ctx, a.keyGame(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Result{}, err
	}
	return unmarshalResult(raw)
}

func (a *RedisArchive) Recent(ctx context.Context, user string, limit int) ([]Result, error) {
	limit = clampLimit(limit, a.limit)
	key := a.keyRecent()
	if user != "" {
		key = a.keyUser(user)
	}
	ids, err := a.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = a.keyGame(id)
	}
	vals, err := a.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// expired before its list entry was trimmed
			continue
		}
		r, err := unmarshalResult([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Close leaves the shared client open.
func (a *RedisArchive) Close() error { return nil }
