// Package admin serves a small read-only HTTP API over the lobby, the game
// archive and the account store, and a client for it.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/park285/checkers-lobby/internal/accounts"
	"github.com/park285/checkers-lobby/internal/archive"
	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/obslog"
	"github.com/park285/checkers-lobby/internal/render"
	"github.com/park285/checkers-lobby/internal/server"
	"github.com/park285/checkers-lobby/pkg/checkersdto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const requestTimeout = 5 * time.Second

// Lobby reports live server state.
type Lobby interface {
	Status(ctx context.Context) (server.Status, error)
}

// Ratings looks players up.
type Ratings interface {
	Rating(ctx context.Context, username string) (int, error)
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board checkers.Board, opts render.Options) ([]byte, error)
}

// Deps are the data sources behind the API. Archive and Renderer may be nil;
// their routes then answer 503.
type Deps struct {
	Lobby    Lobby
	Accounts Ratings
	Archive  archive.Recorder
	Renderer BoardRenderer
}

type Server struct {
	deps Deps
	log  *zap.Logger
	srv  *fasthttp.Server
}

func NewServer(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = obslog.L()
	}
	s := &Server{deps: deps, log: logger}
	s.srv = &fasthttp.Server{
		Handler:      s.route,
		Name:         "checkers-admin",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Serve answers requests on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()
	s.log.Info("admin_listening", zap.String("addr", ln.Addr().String()))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := s.srv.ShutdownWithContext(sctx); err != nil {
			s.log.Warn("admin_shutdown", zap.Error(err))
		}
		return nil
	}
}

func (s *Server) route(rc *fasthttp.RequestCtx) {
	if !rc.IsGet() {
		s.fail(rc, fasthttp.StatusMethodNotAllowed, checkersdto.CodeBadRequest, "only GET is supported")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	path := strings.TrimRight(string(rc.Path()), "/")
	switch {
	case path == "/healthz":
		rc.SetContentType("text/plain; charset=utf-8")
		rc.SetBodyString("ok")
	case path == "/status":
		s.status(ctx, rc)
	case path == "/games/recent":
		s.recent(ctx, rc)
	case strings.HasPrefix(path, "/games/") && strings.HasSuffix(path, "/board.png"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/games/"), "/board.png")
		s.board(ctx, rc, id)
	case strings.HasPrefix(path, "/games/"):
		s.game(ctx, rc, strings.TrimPrefix(path, "/games/"))
	case strings.HasPrefix(path, "/players/"):
		s.player(ctx, rc, strings.TrimPrefix(path, "/players/"))
	default:
		s.fail(rc, fasthttp.StatusNotFound, checkersdto.CodeNotFound, "no such route")
	}
}

func (s *Server) status(ctx context.Context, rc *fasthttp.RequestCtx) {
	st, err := s.deps.Lobby.Status(ctx)
	if err != nil {
		s.fail(rc, fasthttp.StatusServiceUnavailable, checkersdto.CodeUnavailable, err.Error())
		return
	}
	s.writeJSON(rc, checkersdto.Status{
		QueueSize: st.QueueSize,
		LiveGames: st.LiveGames,
		Sessions:  st.Sessions,
		Players:   st.Players,
		UptimeSec: int64(st.Uptime / time.Second),
	})
}

func (s *Server) recent(ctx context.Context, rc *fasthttp.RequestCtx) {
	if s.deps.Archive == nil {
		s.fail(rc, fasthttp.StatusServiceUnavailable, checkersdto.CodeUnavailable, "archive disabled")
		return
	}
	args := rc.QueryArgs()
	limit := 20
	if raw := string(args.Peek("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(rc, fasthttp.StatusBadRequest, checkersdto.CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	results, err := s.deps.Archive.Recent(ctx, strings.TrimSpace(string(args.Peek("user"))), limit)
	if err != nil {
		s.internal(rc, "admin_recent_failed", err)
		return
	}
	out := checkersdto.GameList{Games: make([]checkersdto.Game, 0, len(results))}
	for _, r := range results {
		out.Games = append(out.Games, gameDTO(r))
	}
	s.writeJSON(rc, out)
}

func (s *Server) lookup(ctx context.Context, rc *fasthttp.RequestCtx, id string) (archive.Result, bool) {
	if s.deps.Archive == nil {
		s.fail(rc, fasthttp.StatusServiceUnavailable, checkersdto.CodeUnavailable, "archive disabled")
		return archive.Result{}, false
	}
	r, err := s.deps.Archive.Get(ctx, id)
	if errors.Is(err, archive.ErrNotFound) {
		s.fail(rc, fasthttp.StatusNotFound, checkersdto.CodeNotFound, fmt.Sprintf("game %s not found", id))
		return archive.Result{}, false
	}
	if err != nil {
		s.internal(rc, "admin_game_failed", err)
		return archive.Result{}, false
	}
	return r, true
}

func (s *Server) game(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	if r, ok := s.lookup(ctx, rc, id); ok {
		s.writeJSON(rc, gameDTO(r))
	}
}

func (s *Server) board(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	if s.deps.Renderer == nil {
		s.fail(rc, fasthttp.StatusServiceUnavailable, checkersdto.CodeUnavailable, "renderer disabled")
		return
	}
	r, ok := s.lookup(ctx, rc, id)
	if !ok {
		return
	}
	opts := render.Options{Title: r.PlayerOne + " vs " + r.PlayerTwo}
	if string(rc.QueryArgs().Peek("perspective")) == "secondary" {
		opts.Perspective = render.PerspectiveSecondary
	}
	if n := len(r.Moves); n > 0 {
		last := checkers.MoveFromByte(r.Moves[n-1])
		opts.LastMove = &last
	}
	png, err := s.deps.Renderer.RenderPNG(ctx, r.FinalBoard, opts)
	if err != nil {
		s.internal(rc, "admin_render_failed", err)
		return
	}
	rc.SetContentType("image/png")
	rc.SetBody(png)
}

func (s *Server) player(ctx context.Context, rc *fasthttp.RequestCtx, name string) {
	rating, err := s.deps.Accounts.Rating(ctx, name)
	if errors.Is(err, accounts.ErrUserDoesNotExist) {
		s.fail(rc, fasthttp.StatusNotFound, checkersdto.CodeNotFound, fmt.Sprintf("player %s not found", name))
		return
	}
	if err != nil {
		s.internal(rc, "admin_player_failed", err)
		return
	}
	s.writeJSON(rc, checkersdto.Player{Username: name, Rating: rating})
}

func (s *Server) writeJSON(rc *fasthttp.RequestCtx, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.internal(rc, "admin_encode_failed", err)
		return
	}
	rc.SetContentType("application/json")
	rc.SetBody(raw)
}

func (s *Server) internal(rc *fasthttp.RequestCtx, event string, err error) {
	s.log.Error(event, zap.ByteString("path", rc.Path()), zap.Error(err))
	s.fail(rc, fasthttp.StatusInternalServerError, checkersdto.CodeInternal, "internal error")
}

func (s *Server) fail(rc *fasthttp.RequestCtx, status int, code, msg string) {
	raw, _ := json.Marshal(checkersdto.DomainError{
		Code:      code,
		Message:   msg,
		Retryable: status == fasthttp.StatusServiceUnavailable,
	})
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(raw)
}

func gameDTO(r archive.Result) checkersdto.Game {
	moves := make([]checkersdto.Move, 0, len(r.Moves))
	for _, m := range r.DecodedMoves() {
		moves = append(moves, checkersdto.Move{
			X:    int(m.X) + 1,
			Y:    int(m.Y) + 1,
			XDir: horizontal(m.XDir),
			YDir: vertical(m.YDir),
		})
	}
	duration := r.EndedAt.Sub(r.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	return checkersdto.Game{
		ID:          r.GameID,
		PlayerOne:   r.PlayerOne,
		PlayerTwo:   r.PlayerTwo,
		Winner:      r.Winner,
		Loser:       r.Loser,
		Reason:      string(r.Reason),
		RatingDelta: r.RatingDelta,
		Moves:       moves,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
		DurationMs:  duration,
	}
}

// Direction names as the terminal client spells them.
func horizontal(d checkers.Direction) string {
	if d == checkers.Positive {
		return "right"
	}
	return "left"
}

func vertical(d checkers.Direction) string {
	if d == checkers.Positive {
		return "down"
	}
	return "up"
}
