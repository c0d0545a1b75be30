// Package serverbuilder opens the stores named by config and assembles the
// lobby hub around them.
package serverbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/checkers-lobby/internal/accounts"
	"github.com/park285/checkers-lobby/internal/archive"
	"github.com/park285/checkers-lobby/internal/config"
	"github.com/park285/checkers-lobby/internal/game"
	"github.com/park285/checkers-lobby/internal/render"
	"github.com/park285/checkers-lobby/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const openTimeout = 10 * time.Second

type Deps struct {
	Accounts accounts.Store
	Archive  archive.Recorder // nil when ARCHIVE_BACKEND=none
	Writer   *archive.Writer  // nil when ARCHIVE_BACKEND=none
	Renderer *render.BoardRenderer
	Hub      *session.Hub

	closers []func() error
}

// New opens accounts and the archive, seeds the demo roster (or the seed
// file) and builds the hub. Close releases everything in reverse order.
func New(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger, hubOpts ...session.HubOption) (*Deps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	d := &Deps{Renderer: render.NewBoardRenderer()}
	fail := func(err error) (*Deps, error) {
		_ = d.Close()
		return nil, err
	}

	var rdb *redis.Client
	if cfg.AccountsBackend == config.BackendRedis || cfg.ArchiveBackend == config.BackendRedis {
		var err error
		rdb, err = dialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		d.closers = append(d.closers, rdb.Close)
	}

	store, err := openAccounts(ctx, cfg, rdb)
	if err != nil {
		return fail(fmt.Errorf("init accounts: %w", err))
	}
	d.Accounts = store
	d.closers = append(d.closers, store.Close)

	users := accounts.DefaultSeed
	if strings.TrimSpace(cfg.SeedFile) != "" {
		users, err = accounts.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return fail(err)
		}
	}
	if _, err := accounts.Seed(ctx, store, users, logger); err != nil {
		return fail(fmt.Errorf("seed accounts: %w", err))
	}

	rec, err := openArchive(ctx, cfg, rdb)
	if err != nil {
		return fail(fmt.Errorf("init archive: %w", err))
	}
	if rec != nil {
		d.Archive = rec
		d.closers = append(d.closers, rec.Close)
		d.Writer = archive.NewWriter(rec, logger)
		// the writer drains before the recorder closes
		d.closers = append(d.closers, func() error { d.Writer.Close(); return nil })
	}

	opts := []session.HubOption{session.WithLogger(logger)}
	if d.Writer != nil {
		opts = append(opts, session.WithResultHandler(ArchiveHook(d.Writer)))
	}
	d.Hub = session.NewHub(store, append(opts, hubOpts...)...)

	logger.Info("serverbuilder_ready",
		zap.String("accounts", cfg.AccountsBackend),
		zap.String("archive", cfg.ArchiveBackend),
		zap.Int("seed_users", len(users)),
	)
	return d, nil
}

// OpenAccounts opens only the account store, for tools that edit accounts
// directly. The returned store owns its connections.
func OpenAccounts(ctx context.Context, cfg config.StoreConfig) (accounts.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	if cfg.AccountsBackend == config.BackendRedis {
		return accounts.DialRedis(ctx, cfg.RedisURL)
	}
	return openAccounts(ctx, cfg, nil)
}

// ArchiveHook turns finished games into archive submissions.
func ArchiveHook(w *archive.Writer) func(game.Result) {
	return func(r game.Result) { w.Submit(archive.FromGame(r)) }
}

// Close releases resources in reverse order of acquisition.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func dialRedis(ctx context.Context, raw string) (*redis.Client, error) {
	opts, err := accounts.ParseRedisURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// openAccounts uses rdb when the backend is redis; the caller owns rdb.
func openAccounts(ctx context.Context, cfg config.StoreConfig, rdb *redis.Client) (accounts.Store, error) {
	switch cfg.AccountsBackend {
	case config.BackendMemory:
		return accounts.NewMemoryStore(), nil
	case config.BackendRedis:
		return accounts.NewRedisStore(rdb), nil
	case config.BackendPostgres:
		return accounts.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.BackendSQLite:
		return accounts.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown accounts backend %q", cfg.AccountsBackend)
	}
}

func openArchive(ctx context.Context, cfg config.StoreConfig, rdb *redis.Client) (archive.Recorder, error) {
	switch cfg.ArchiveBackend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		return archive.NewMemoryArchive(cfg.ArchiveRecentLimit), nil
	case config.BackendRedis:
		return archive.NewRedisArchive(rdb, cfg.ArchiveTTL, cfg.ArchiveRecentLimit), nil
	case config.BackendPostgres:
		return archive.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}
