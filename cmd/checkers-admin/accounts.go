package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/park285/checkers-lobby/internal/accounts"
	"github.com/park285/checkers-lobby/internal/config"
	"github.com/park285/checkers-lobby/internal/serverbuilder"
	"github.com/park285/checkers-lobby/pkg/checkersdto"
	"github.com/spf13/cobra"
)

const defaultRating = 1200

// withStore opens the account store named by the environment for one
// command.
func withStore(ctx context.Context, fn func(accounts.Store) error) error {
	cfg, err := config.LoadStore()
	if err != nil {
		return err
	}
	store, err := serverbuilder.OpenAccounts(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newRegisterCommand(opts *rootOptions) *cobra.Command {
	var rating int
	cmd := &cobra.Command{
		Use:   "register <username> <password>",
		Short: "Create an account",
		Long: `Create an account in the store selected by ACCOUNTS_BACKEND.

Example:
  ACCOUNTS_BACKEND=sqlite checkers-admin register ada lovelace --rating 1300`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rating == 0 {
				rating = defaultRating
			}
			return withStore(cmd.Context(), func(s accounts.Store) error {
				if err := s.Register(cmd.Context(), args[0], args[1], rating); err != nil {
					return fmt.Errorf("register %s: %w", args[0], err)
				}
				p := checkersdto.Player{Username: args[0], Rating: rating}
				return emit(cmd.OutOrStdout(), opts, p, func(w io.Writer) {
					fmt.Fprintf(w, "registered %s (rating %d)\n", p.Username, p.Rating)
				})
			})
		},
	}
	cmd.Flags().IntVar(&rating, "rating", defaultRating, "starting rating")
	return cmd
}

func newSetRatingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-rating <username> <rating>",
		Short: "Overwrite a player's rating",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}
			return withStore(cmd.Context(), func(s accounts.Store) error {
				if err := s.SetRating(cmd.Context(), args[0], rating); err != nil {
					return fmt.Errorf("set rating for %s: %w", args[0], err)
				}
				p := checkersdto.Player{Username: args[0], Rating: rating}
				return emit(cmd.OutOrStdout(), opts, p, func(w io.Writer) {
					fmt.Fprintf(w, "%s rating set to %d\n", p.Username, p.Rating)
				})
			})
		},
	}
}

func newPlayerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "player <username>",
		Short: "Show a player's rating from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s accounts.Store) error {
				rating, err := s.Rating(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("lookup %s: %w", args[0], err)
				}
				p := checkersdto.Player{Username: args[0], Rating: rating}
				return emit(cmd.OutOrStdout(), opts, p, func(w io.Writer) {
					fmt.Fprintf(w, "%s %d\n", p.Username, p.Rating)
				})
			})
		},
	}
}
