package cli

import (
	"context"
	"strings"
	"time"

	"github.com/brandonsypek/approver-repeater/internal/auth"
	"github.com/brandonsypek/approver-repeater/internal/directory"

	"github.com/spf13/cobra"
)

const requestTimeout = 20 * time.Second

func newSearchCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the directory for people",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.options()
			if err != nil {
				return writeErr(cmd, err)
			}
			if opts.ClientID == "" {
				return writeErr(cmd, auth.ErrMissingClientID)
			}
			term := strings.TrimSpace(args[0])
			if len([]rune(term)) < opts.MinChars {
				return writeData(cmd, app, []directory.Person{})
			}
			if limit <= 0 {
				limit = opts.MaxSuggestions
			}
			dir, _, err := app.directory(opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			people, err := dir.Search(ctx, term, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, people)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (default from config)")
	return cmd
}

func newResolveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <key>",
		Short: "Resolve a canonical key to a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.options()
			if err != nil {
				return writeErr(cmd, err)
			}
			if opts.ClientID == "" {
				return writeErr(cmd, auth.ErrMissingClientID)
			}
			dir, _, err := app.directory(opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			p, err := dir.Resolve(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, p)
		},
	}
}
