// Package matchqueue holds authenticated sessions waiting for an opponent and
// pairs the two closest ratings on every tick.
package matchqueue

import (
	"errors"
	"fmt"

	"github.com/park285/checkers-lobby/internal/obslog"
	"go.uber.org/zap"
)

var (
	ErrDuplicateUser = errors.New("matchqueue: user already queued")
	ErrNotInQueue    = errors.New("matchqueue: user not queued")
	ErrQueueTooSmall = errors.New("matchqueue: fewer than two users queued")
)

// Member is anything that can wait in the queue. Identity is the username.
type Member interface {
	Username() string
	Rating() int
	OnQueuePosition(size, position int)
}

// Queue is an ordered list of waiting members. It is not safe for concurrent
// use; the server loop owns it.
type Queue[T Member] struct {
	users []T
	log   *zap.Logger
}

func New[T Member](logger *zap.Logger) *Queue[T] {
	if logger == nil {
		logger = obslog.L()
	}
	return &Queue[T]{log: logger}
}

// Enqueue appends u. A member with the same username is a duplicate.
func (q *Queue[T]) Enqueue(u T) error {
	if q.index(u.Username()) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, u.Username())
	}
	q.users = append(q.users, u)
	q.log.Debug("queue_enqueue", zap.String("user", u.Username()), zap.Int("size", len(q.users)))
	return nil
}

func (q *Queue[T]) Dequeue(u T) error {
	i := q.index(u.Username())
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotInQueue, u.Username())
	}
	q.users = append(q.users[:i], q.users[i+1:]...)
	q.log.Debug("queue_dequeue", zap.String("user", u.Username()), zap.Int("size", len(q.users)))
	return nil
}

func (q *Queue[T]) Contains(u T) bool { return q.index(u.Username()) >= 0 }

func (q *Queue[T]) Len() int { return len(q.users) }

// LocationOf returns the 0-based index of u.
func (q *Queue[T]) LocationOf(u T) (int, error) {
	i := q.index(u.Username())
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotInQueue, u.Username())
	}
	return i, nil
}

// Members returns a snapshot in queue order.
func (q *Queue[T]) Members() []T {
	return append([]T(nil), q.users...)
}

// PopClosestPair removes and returns the two members whose ratings differ the
// least. Ties keep the first pair found scanning in queue order.
func (q *Queue[T]) PopClosestPair() (T, T, error) {
	var zero T
	if len(q.users) < 2 {
		return zero, zero, ErrQueueTooSmall
	}
	bestI, bestJ, best := -1, -1, 0
	for i, a := range q.users {
		for j, b := range q.users {
			if a.Username() == b.Username() {
				continue
			}
			d := absDiff(a.Rating(), b.Rating())
			if bestI < 0 || d < best {
				bestI, bestJ, best = i, j, d
			}
		}
	}
	if bestI < 0 {
		return zero, zero, ErrQueueTooSmall
	}
	first, second := q.users[bestI], q.users[bestJ]
	_ = q.Dequeue(first)
	_ = q.Dequeue(second)
	q.log.Info("queue_pop_pair",
		zap.String("one", first.Username()),
		zap.String("two", second.Username()),
		zap.Int("rating_diff", best))
	return first, second, nil
}

// Tick pairs the closest members and hands them to match. When match fails
// both go back to the end of the queue. Every member left waiting is then
// told its 1-based position.
func (q *Queue[T]) Tick(match func(a, b T) error) {
	a, b, err := q.PopClosestPair()
	switch {
	case errors.Is(err, ErrQueueTooSmall):
	case err != nil:
		q.log.Error("queue_pop_failed", zap.Error(err))
	default:
		if err := match(a, b); err != nil {
			q.log.Warn("queue_match_failed",
				zap.String("one", a.Username()),
				zap.String("two", b.Username()),
				zap.Error(err))
			_ = q.Enqueue(a)
			_ = q.Enqueue(b)
		} else {
			q.log.Info("queue_match", zap.String("one", a.Username()), zap.String("two", b.Username()))
		}
	}
	q.Broadcast()
}

// Broadcast sends every member its position and the queue size.
func (q *Queue[T]) Broadcast() {
	size := len(q.users)
	for i, u := range q.Members() {
		u.OnQueuePosition(size, i+1)
	}
}

// Drain empties the queue and returns what was in it.
func (q *Queue[T]) Drain() []T {
	out := q.users
	q.users = nil
	return out
}

func (q *Queue[T]) index(username string) int {
	for i, u := range q.users {
		if u.Username() == username {
			return i
		}
	}
	return -1
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
