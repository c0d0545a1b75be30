package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	AdminURL string
	Format   string // "text" | "json"
	Timeout  time.Duration
}

var validFormats = []string{"text", "json"}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	defaultURL := strings.TrimSpace(os.Getenv("ADMIN_URL"))
	if defaultURL == "" {
		defaultURL = "http://127.0.0.1:8865"
	}

	cmd := &cobra.Command{
		Use:           "checkers-admin",
		Short:         "Manage checkers accounts and inspect a running lobby",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.AdminURL, "admin-url", defaultURL, "base URL of the lobby admin API")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(newRegisterCommand(opts))
	cmd.AddCommand(newSetRatingCommand(opts))
	cmd.AddCommand(newPlayerCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newRecentCommand(opts))
	cmd.AddCommand(newBoardCommand(opts))
	return cmd
}

// emit prints v as indented JSON, or calls text for the text format.
func emit(w io.Writer, opts *rootOptions, v any, text func(io.Writer)) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
