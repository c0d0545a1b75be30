package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/checkers-lobby/internal/accounts"
	"github.com/park285/checkers-lobby/internal/game"
	"github.com/park285/checkers-lobby/internal/matchqueue"
	"github.com/park285/checkers-lobby/internal/obslog"
	"github.com/park285/checkers-lobby/internal/protocol"
	"github.com/park285/checkers-lobby/internal/wire"
	"go.uber.org/zap"
)

const defaultStoreTimeout = 3 * time.Second

// Hub owns every session, the match queue and the live games. It is not safe
// for concurrent use: the server loop calls it from a single goroutine.
type Hub struct {
	store    accounts.Store
	queue    *matchqueue.Queue[*Session]
	sessions map[*Session]struct{}
	games    map[string]*game.Game
	log      *zap.Logger
	rng      *rand.Rand

	storeTimeout time.Duration
	onResult     func(game.Result)
	spawn        func(func())
	gameOpts     []game.Option

	// onLoop runs fn on the goroutine that owns the hub. It reports false
	// once that goroutine has stopped.
	onLoop func(fn func()) bool
	// work counts store calls running off the loop.
	work sync.WaitGroup
	// ratings holds the latest rating per user until the store has it.
	ratings map[string]*pendingRating
}

type pendingRating struct {
	rating   int
	inFlight bool
}

type HubOption func(*Hub)

func WithLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithRand seeds the forced-capture choice of every game the hub starts.
func WithRand(r *rand.Rand) HubOption {
	return func(h *Hub) {
		if r != nil {
			h.rng = r
		}
	}
}

// WithResultHandler receives every finished game. It runs on the hub's
// goroutine and must hand slow work off.
func WithResultHandler(fn func(game.Result)) HubOption {
	return func(h *Hub) { h.onResult = fn }
}

func WithStoreTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.storeTimeout = d
		}
	}
}

// WithSpawner replaces the goroutine launcher used for store calls.
func WithSpawner(fn func(func())) HubOption {
	return func(h *Hub) {
		if fn != nil {
			h.spawn = fn
		}
	}
}

// WithGameOptions appends options to every game the hub starts.
func WithGameOptions(opts ...game.Option) HubOption {
	return func(h *Hub) { h.gameOpts = append(h.gameOpts, opts...) }
}

func NewHub(store accounts.Store, opts ...HubOption) *Hub {
	h := &Hub{
		store:        store,
		sessions:     make(map[*Session]struct{}),
		games:        make(map[string]*game.Game),
		log:          obslog.L(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		storeTimeout: defaultStoreTimeout,
		spawn:        func(f func()) { go f() },
		onLoop:       func(fn func()) bool { fn(); return true },
		ratings:      make(map[string]*pendingRating),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.queue = matchqueue.New[*Session](h.log)
	return h
}

// BindLoop routes store completions back to the goroutine that drives the
// hub. Without it they run on whatever goroutine finished the call.
func (h *Hub) BindLoop(post func(fn func()) bool) {
	if post != nil {
		h.onLoop = post
	}
}

// Attach registers a new connection in the unauthenticated state.
func (h *Hub) Attach(conn Conn) *Session {
	s := &Session{
		hub:   h,
		conn:  conn,
		log:   h.log.With(zap.String("remote", conn.RemoteAddr())),
		state: protocol.Unauthenticated,
	}
	h.sessions[s] = struct{}{}
	s.log.Info("session_started")
	return s
}

// Handle feeds one decoded inbound message to s.
func (h *Hub) Handle(s *Session, m wire.Message) { s.handle(m) }

// Drop is called when the connection of s failed or reached EOF. err is nil
// for a clean close.
func (h *Hub) Drop(s *Session, err error) {
	if s.closed {
		return
	}
	if err != nil {
		s.log.Error("session_read_failed", zap.String("user", s.username), zap.Error(err))
	}
	s.disconnect(false)
}

// Tick runs one matchmaking round.
func (h *Hub) Tick() { h.queue.Tick(h.startGame) }

func (h *Hub) startGame(a, b *Session) error {
	opts := append([]game.Option{
		game.WithRand(h.rng),
		game.WithLogger(h.log),
	}, h.gameOpts...)
	opts = append(opts, game.WithResultHook(h.gameFinished))
	g, err := game.New(a, b, opts...)
	if err != nil {
		return err
	}
	h.games[g.ID()] = g
	g.Start()
	return nil
}

func (h *Hub) gameFinished(r game.Result) {
	delete(h.games, r.GameID)
	if h.onResult != nil {
		h.onResult(r)
	}
}

// Shutdown ends every game and closes every connection without notifying
// opponents.
func (h *Hub) Shutdown() {
	h.log.Info("hub_shutdown", zap.Int("games", len(h.games)), zap.Int("sessions", len(h.sessions)))
	for _, g := range h.games {
		g.Abort()
	}
	h.queue.Drain()
	for s := range h.sessions {
		s.disconnect(true)
	}
	h.work.Wait()
	h.flushRatings()
}

// Stats is a point-in-time view for the admin API.
type Stats struct {
	QueueSize int
	LiveGames int
	Sessions  int
	Players   []string
}

func (h *Hub) Stats() Stats {
	st := Stats{QueueSize: h.queue.Len(), LiveGames: len(h.games), Sessions: len(h.sessions)}
	for s := range h.sessions {
		if s.username != "" {
			st.Players = append(st.Players, s.username)
		}
	}
	return st
}

// online reports whether another authenticated session uses username.
func (h *Hub) online(username string, except *Session) bool {
	for s := range h.sessions {
		if s != except && s.state != protocol.Unauthenticated && s.username == username {
			return true
		}
	}
	return false
}

// run calls fn off the loop and hands its completion back to the loop.
func (h *Hub) run(fn func() func()) {
	h.work.Add(1)
	h.spawn(func() {
		done := fn()
		h.work.Done()
		h.onLoop(done)
	})
}

type loginResult struct {
	username  string
	rating    int
	authErr   error
	ratingErr error
}

// authenticate checks credentials and reads the rating off the loop, then
// finishes the login of s on the loop.
func (h *Hub) authenticate(s *Session, username, password string) {
	store, timeout := h.store, h.storeTimeout
	h.run(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res := loginResult{username: username}
		res.authErr = store.Authenticate(ctx, username, password)
		if res.authErr == nil {
			res.rating, res.ratingErr = store.Rating(ctx, username)
		}
		return func() { s.finishLogin(res) }
	})
}

// rating prefers a write the store may not have seen yet.
func (h *Hub) rating(username string, stored int) int {
	if p, ok := h.ratings[username]; ok {
		return p.rating
	}
	return stored
}

// persistRating keeps at most one write per user in flight. A newer rating
// recorded meanwhile is written when the current write completes.
func (h *Hub) persistRating(username string, rating int) {
	p, ok := h.ratings[username]
	if !ok {
		p = &pendingRating{}
		h.ratings[username] = p
	}
	p.rating = rating
	if !p.inFlight {
		h.writeRating(username, p)
	}
}

func (h *Hub) writeRating(username string, p *pendingRating) {
	p.inFlight = true
	rating := p.rating
	store, timeout, log := h.store, h.storeTimeout, h.log
	h.run(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := store.SetRating(ctx, username, rating)
		if err != nil {
			log.Error("session_rating_persist_failed", zap.String("user", username), zap.Int("rating", rating), zap.Error(err))
		}
		return func() { h.ratingWritten(username, rating, err) }
	})
}

func (h *Hub) ratingWritten(username string, rating int, err error) {
	p, ok := h.ratings[username]
	if !ok {
		return
	}
	p.inFlight = false
	switch {
	case p.rating != rating:
		h.writeRating(username, p)
	case err == nil:
		delete(h.ratings, username)
	}
}

// flushRatings writes every rating the store may still lack. Completions
// posted to a stopped loop are lost, so this runs after work has drained.
func (h *Hub) flushRatings() {
	for username, p := range h.ratings {
		ctx, cancel := context.WithTimeout(context.Background(), h.storeTimeout)
		err := h.store.SetRating(ctx, username, p.rating)
		cancel()
		if err != nil {
			h.log.Error("session_rating_flush_failed", zap.String("user", username), zap.Int("rating", p.rating), zap.Error(err))
			continue
		}
		delete(h.ratings, username)
	}
}
