package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/park285/checkers-lobby/internal/admin"
	"github.com/park285/checkers-lobby/internal/config"
	"github.com/park285/checkers-lobby/internal/discovery"
	"github.com/park285/checkers-lobby/internal/obslog"
	"github.com/park285/checkers-lobby/internal/server"
	"github.com/park285/checkers-lobby/internal/serverbuilder"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	cfg         *config.ServerConfig
	verbose     bool
	quiet       bool
	noAdvertise bool
}

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand binds flags over cfg, so environment values become the
// flag defaults.
func newRootCommand(cfg *config.ServerConfig) *cobra.Command {
	opts := &options{cfg: cfg}
	cmd := &cobra.Command{
		Use:           "checkers-server",
		Short:         "Checkers matchmaking lobby",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.noAdvertise {
				opts.cfg.Advertise = false
			}
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ListenIP, "listen-ip", cfg.ListenIP, "IP to accept players on")
	f.IntVar(&cfg.ListenPort, "listen-port", cfg.ListenPort, "TCP port to accept players on")
	f.StringVar(&cfg.BroadcastIP, "broadcast-ip", cfg.BroadcastIP, "address discovery datagrams are sent to")
	f.IntVar(&cfg.UDPPort, "udp-port", cfg.UDPPort, "local UDP port discovery datagrams are sent from")
	f.StringVar(&cfg.WSAddr, "ws-addr", cfg.WSAddr, "websocket listen address (empty disables)")
	f.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "admin HTTP listen address (empty disables)")
	f.DurationVar(&cfg.Tick, "tick", cfg.Tick, "matchmaking queue tick")
	f.BoolVar(&opts.noAdvertise, "no-advertise", !cfg.Advertise, "do not broadcast the lobby on the local network")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	switch {
	case opts.verbose:
		obslog.SetLevel("debug")
	case opts.quiet:
		obslog.SetLevel("error")
	}
	log := obslog.L()
	defer func() { _ = log.Sync() }()
	cfg := opts.cfg
	log.Info("server_starting",
		zap.String("log_level", obslog.Level()),
		zap.String("accounts", cfg.Store.AccountsBackend),
		zap.String("archive", cfg.Store.ArchiveBackend),
	)

	deps, err := serverbuilder.New(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Warn("server_deps_close_failed", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.ListenIP, strconv.Itoa(cfg.ListenPort)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srvOpts := []server.Option{
		server.WithLogger(log),
		server.WithTick(cfg.Tick),
		server.WithTCPListener(ln),
	}
	if cfg.WSAddr != "" {
		wsln, err := net.Listen("tcp", cfg.WSAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("websocket listen: %w", err)
		}
		srvOpts = append(srvOpts, server.WithWebSocketListener(wsln))
	}
	srv := server.New(deps.Hub, srvOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	if cfg.Advertise {
		lobbyPort := ln.Addr().(*net.TCPAddr).Port
		adv := discovery.NewAdvertiser(cfg.ListenIP, cfg.UDPPort, cfg.BroadcastIP, lobbyPort, discovery.WithLogger(log))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adv.Run(ctx); err != nil {
				log.Error("server_advertiser_failed", zap.Error(err))
			}
		}()
	}
	if cfg.AdminAddr != "" {
		adminLn, err := net.Listen("tcp", cfg.AdminAddr)
		if err != nil {
			log.Error("server_admin_listen_failed", zap.String("addr", cfg.AdminAddr), zap.Error(err))
		} else {
			api := admin.NewServer(admin.Deps{
				Lobby:    srv,
				Accounts: deps.Accounts,
				Archive:  deps.Archive,
				Renderer: deps.Renderer,
			}, log)
			log.Info("server_admin_listening", zap.String("addr", adminLn.Addr().String()))
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := api.Serve(ctx, adminLn); err != nil {
					log.Error("server_admin_failed", zap.Error(err))
				}
			}()
		}
	}

	err = srv.Run(ctx)
	cancel()
	wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server_stopped")
	return nil
}
