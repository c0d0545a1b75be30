package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/checkers-lobby/internal/client"
	"github.com/park285/checkers-lobby/internal/client/termui"
	"github.com/park285/checkers-lobby/internal/config"
	"github.com/park285/checkers-lobby/internal/discovery"
	"github.com/park285/checkers-lobby/internal/msgcat"
	"github.com/park285/checkers-lobby/internal/obslog"
	"github.com/park285/checkers-lobby/internal/transport"
	"github.com/spf13/cobra"
)

const discoveryTimeout = 3 * time.Second

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.ClientConfig) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:           "checkers-client",
		Short:         "Play checkers against other players in the lobby",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			// logging stays off unless asked for; the terminal belongs to the game
			opts := obslog.OptionsFromEnv()
			opts.Console = verbose
			if verbose {
				opts.Level = "debug"
			}
			logger, err := obslog.Build(opts)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			obslog.Set(logger)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ServerIP, "server-ip", cfg.ServerIP, "lobby address (found by service discovery when empty)")
	f.IntVar(&cfg.Port, "port", cfg.Port, "lobby TCP port")
	f.StringVar(&cfg.Username, "username", cfg.Username, "username to log in with")
	f.StringVar(&cfg.Password, "password", cfg.Password, "password to log in with")
	f.StringVar(&cfg.WSURL, "ws-url", cfg.WSURL, "connect over websocket to this URL instead of TCP")
	f.BoolVarP(&verbose, "verbose", "v", false, "log protocol traffic to stderr")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.ClientConfig) error {
	cat, err := msgcat.New(cfg.MsgDir)
	if err != nil {
		return err
	}
	ui := termui.New(cmd.InOrStdin(), cmd.OutOrStdout(), cat)

	conn, err := dial(ctx, cfg, ui, cat)
	if err != nil {
		return err
	}
	c := client.New(conn, ui, cfg.Username, cfg.Password,
		client.WithCatalog(cat),
		client.WithLogger(obslog.L()),
	)
	err = c.Run(ctx)
	if errors.Is(err, client.ErrServerClosed) {
		// already reported to the player
		return nil
	}
	return err
}

func dial(ctx context.Context, cfg *config.ClientConfig, ui *termui.Terminal, cat *msgcat.Catalog) (*transport.Conn, error) {
	if cfg.WSURL != "" {
		return transport.DialWebSocket(ctx, cfg.WSURL)
	}
	if cfg.ServerIP == "" {
		ui.Notify(cat.Text("login.discovering", nil))
		dctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
		ip, err := discovery.Listen(dctx, cfg.Port)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%w; pass --server-ip", err)
		}
		ui.Notify(cat.Text("login.discovered", map[string]any{"IP": ip}))
		cfg.ServerIP = ip
	}
	return transport.DialTCP(ctx, cfg.ServerIP, cfg.Port)
}
