package cli

import (
	"fmt"

	"github.com/brandonsypek/approver-repeater/internal/config"
	"github.com/brandonsypek/approver-repeater/internal/directory"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file, interactively unless --yes",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := app.options()
			if err != nil {
				return writeErr(cmd, err)
			}
			if !yes {
				if err := promptOptions(opts); err != nil {
					return fmt.Errorf("prompt cancelled: %w", err)
				}
			}
			opts.Normalize()
			if err := config.SaveAtomic(app.ConfigPath, opts); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"path": app.ConfigPath})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Write defaults without prompting")
	return cmd
}

func promptOptions(opts *config.Options) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Application (client) ID").
				Description("Required for directory access").
				Value(&opts.ClientID),
			huh.NewInput().
				Title("Tenant ID").
				Placeholder(config.DefaultTenantID).
				Value(&opts.TenantID),
			huh.NewInput().
				Title("Directory base URL").
				Placeholder("https://graph.example.com/v1.0").
				Value(&opts.DirectoryURL),
			huh.NewInput().
				Title("Auth base URL").
				Value(&opts.AuthURL),
			huh.NewSelect[string]().
				Title("Search endpoint").
				Options(
					huh.NewOption("Relevance ranked (people I work with)", string(directory.EndpointRelevance)),
					huh.NewOption("Directory wide (all users)", string(directory.EndpointDirectory)),
				).
				Value(&opts.Endpoint),
			huh.NewInput().
				Title("Mirror sink path (optional)").
				Value(&opts.MirrorSink),
		),
	).Run()
}
