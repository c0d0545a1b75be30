package matchqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ size, pos int }

type member struct {
	name      string
	rating    int
	positions []position
}

func (m *member) Username() string { return m.name }
func (m *member) Rating() int      { return m.rating }
func (m *member) OnQueuePosition(size, pos int) {
	m.positions = append(m.positions, position{size, pos})
}

func newQueue(t *testing.T, members ...*member) *Queue[*member] {
	t.Helper()
	q := New[*member](nil)
	for _, m := range members {
		require.NoError(t, q.Enqueue(m))
	}
	return q
}

func TestPopClosestPair(t *testing.T) {
	a := &member{name: "a", rating: 2}
	b := &member{name: "b", rating: 4}
	c := &member{name: "c", rating: 5}
	q := newQueue(t, a, b, c)

	one, two, err := q.PopClosestPair()
	require.NoError(t, err)
	assert.Same(t, b, one)
	assert.Same(t, c, two)

	loc, err := q.LocationOf(a)
	require.NoError(t, err)
	assert.Zero(t, loc)
	assert.Equal(t, 1, q.Len())
}

func TestPopClosestPairKeepsFirstOnTie(t *testing.T) {
	cam := &member{name: "cam", rating: 1200}
	kain := &member{name: "kain", rating: 1200}
	jen := &member{name: "jen", rating: 1201}
	q := newQueue(t, cam, jen, kain)

	one, two, err := q.PopClosestPair()
	require.NoError(t, err)
	assert.Same(t, cam, one)
	assert.Same(t, kain, two)
}

func TestQueueErrors(t *testing.T) {
	d := &member{name: "d", rating: 2}
	q := New[*member](nil)

	assert.ErrorIs(t, q.Dequeue(d), ErrNotInQueue)
	_, _, err := q.PopClosestPair()
	assert.ErrorIs(t, err, ErrQueueTooSmall)

	require.NoError(t, q.Enqueue(d))
	_, _, err = q.PopClosestPair()
	assert.ErrorIs(t, err, ErrQueueTooSmall)

	assert.ErrorIs(t, q.Enqueue(&member{name: "d", rating: 99}), ErrDuplicateUser)
	assert.True(t, q.Contains(d))

	require.NoError(t, q.Dequeue(d))
	_, err = q.LocationOf(d)
	assert.ErrorIs(t, err, ErrNotInQueue)
	assert.False(t, q.Contains(d))
}

func TestTickMatchesAndBroadcasts(t *testing.T) {
	a := &member{name: "a", rating: 2}
	b := &member{name: "b", rating: 4}
	c := &member{name: "c", rating: 5}
	q := newQueue(t, a, b, c)

	var matched []string
	q.Tick(func(x, y *member) error {
		matched = append(matched, x.name, y.name)
		return nil
	})

	assert.Equal(t, []string{"b", "c"}, matched)
	assert.Equal(t, []position{{1, 1}}, a.positions)
	assert.Empty(t, b.positions)
	assert.Empty(t, c.positions)
}

func TestTickRequeuesOnMatchFailure(t *testing.T) {
	a := &member{name: "a", rating: 2}
	b := &member{name: "b", rating: 4}
	c := &member{name: "c", rating: 5}
	q := newQueue(t, a, b, c)

	q.Tick(func(x, y *member) error { return errors.New("boom") })

	assert.Equal(t, []*member{a, b, c}, q.Members())
	assert.Equal(t, []position{{3, 1}}, a.positions)
	assert.Equal(t, []position{{3, 2}}, b.positions)
	assert.Equal(t, []position{{3, 3}}, c.positions)
}

func TestTickTooSmallStillBroadcasts(t *testing.T) {
	a := &member{name: "a", rating: 2}
	q := newQueue(t, a)
	called := false
	q.Tick(func(x, y *member) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.Equal(t, []position{{1, 1}}, a.positions)
}

func TestDrain(t *testing.T) {
	a := &member{name: "a"}
	b := &member{name: "b"}
	q := newQueue(t, a, b)
	assert.Equal(t, []*member{a, b}, q.Drain())
	assert.Zero(t, q.Len())
}
