package cli

import (
	"github.com/brandonsypek/approver-repeater/internal/tui"

	"github.com/spf13/cobra"
)

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the interactive approver editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(app)
		},
	}
}

func runEdit(app *App) error {
	opts, err := app.options()
	if err != nil {
		return err
	}
	eng, err := app.engine(opts)
	if err != nil {
		return err
	}
	return tui.Run(eng)
}
