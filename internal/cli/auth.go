package cli

import (
	"context"
	"errors"
	"time"

	"github.com/brandonsypek/approver-repeater/internal/authinfo"

	"github.com/spf13/cobra"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Authenticate against the directory"}
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	cmd.AddCommand(newAuthWhoamiCmd(app))
	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in via browser and store a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.options()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.provider(opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
			defer cancel()

			token, err := p.Token(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			claims := authinfo.FromToken(token)
			return writeData(cmd, app, map[string]any{
				"account": claims.Account,
				"name":    claims.Name,
			})
		},
	}
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.options()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.provider(opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := p.SignOut(); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"signedOut": true})
		},
	}
}

func newAuthWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.options()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.provider(opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			account := p.Account()
			if account == "" {
				return writeErr(cmd, errors.New("not signed in"))
			}
			return writeData(cmd, app, map[string]any{"account": account})
		},
	}
}
