package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/park285/checkers-lobby/internal/admin"
	"github.com/park285/checkers-lobby/pkg/checkersdto"
	"github.com/spf13/cobra"
)

func apiClient(opts *rootOptions) *admin.Client {
	return admin.NewClient(opts.AdminURL, admin.WithTimeout(opts.Timeout))
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue and game counts of a running lobby",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient(opts).Status(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), opts, st, func(w io.Writer) {
				fmt.Fprintf(w, "queue:    %d\n", st.QueueSize)
				fmt.Fprintf(w, "games:    %d\n", st.LiveGames)
				fmt.Fprintf(w, "sessions: %d\n", st.Sessions)
				fmt.Fprintf(w, "uptime:   %s\n", time.Duration(st.UptimeSec)*time.Second)
				if len(st.Players) > 0 {
					fmt.Fprintf(w, "players:  %s\n", strings.Join(st.Players, ", "))
				}
			})
		},
	}
}

func newRecentCommand(opts *rootOptions) *cobra.Command {
	var user string
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently finished games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			games, err := apiClient(opts).Recent(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			return emit(cmd.OutOrStdout(), opts, checkersdto.GameList{Games: games}, func(w io.Writer) {
				if len(games) == 0 {
					fmt.Fprintln(w, "no games")
					return
				}
				for _, g := range games {
					fmt.Fprintln(w, describeGame(g))
				}
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only games this player took part in")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of games")
	return cmd
}

func newBoardCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "board <game-id>",
		Short: "Save the final board of a game as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := apiClient(opts).BoardPNG(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".png"
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(raw))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default <game-id>.png)")
	return cmd
}

func describeGame(g checkersdto.Game) string {
	result := g.Reason
	if g.Winner != "" {
		result = fmt.Sprintf("%s won (%s)", g.Winner, g.Reason)
	}
	return fmt.Sprintf("%s  %s vs %s  %s  %d moves  %s",
		g.ID, g.PlayerOne, g.PlayerTwo, result, len(g.Moves),
		(time.Duration(g.DurationMs) * time.Millisecond).Round(time.Second))
}
