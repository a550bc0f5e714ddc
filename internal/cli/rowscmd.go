package cli

import (
	"errors"
	"strconv"

	"github.com/brandonsypek/approver-repeater/internal/config"
	"github.com/brandonsypek/approver-repeater/internal/directory"
	"github.com/brandonsypek/approver-repeater/internal/repeater"

	"github.com/spf13/cobra"
)

// The rows commands work the form document headlessly, without the editor.
func newRowsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "rows", Short: "Work the approver rows without the editor"}
	cmd.AddCommand(newRowsListCmd(app))
	cmd.AddCommand(newRowsAddCmd(app))
	cmd.AddCommand(newRowsRemoveCmd(app))
	cmd.AddCommand(newRowsMoveCmd(app))
	return cmd
}

func headlessEngine(app *App) (*repeater.Engine, *config.Options, error) {
	opts, err := app.options()
	if err != nil {
		return nil, nil, err
	}
	eng, err := app.engine(opts)
	if err != nil {
		return nil, nil, err
	}
	return eng, opts, nil
}

func newRowsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the rows in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := headlessEngine(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, eng.Collection().Persisted())
		},
	}
}

func newRowsAddCmd(app *App) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a row, optionally with an approver key",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := headlessEngine(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ok, err := eng.AddRow()
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, errors.New("row limit reached"))
			}
			if key != "" {
				all := eng.Rows()
				if err := eng.Pick(all[len(all)-1].ID, directory.Fallback(key)); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeData(cmd, app, eng.Collection().Persisted())
		},
	}
	cmd.Flags().StringVar(&key, "approver", "", "Canonical key for the new row")
	return cmd
}

func newRowsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <order>",
		Short: "Remove the row at the given position (1-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := rowIndex(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			eng, _, err := headlessEngine(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ok, err := eng.RemoveRow(index)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, errors.New("no such row"))
			}
			return writeData(cmd, app, eng.Collection().Persisted())
		},
	}
}

func newRowsMoveCmd(app *App) *cobra.Command {
	var up bool

	cmd := &cobra.Command{
		Use:   "move <order>",
		Short: "Move the row at the given position down (or up with --up)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := rowIndex(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			eng, _, err := headlessEngine(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var ok bool
			if up {
				ok, err = eng.MoveUp(index)
			} else {
				ok, err = eng.MoveDown(index)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ok {
				return writeErr(cmd, errors.New("cannot move past the list edge"))
			}
			return writeData(cmd, app, eng.Collection().Persisted())
		},
	}
	cmd.Flags().BoolVar(&up, "up", false, "Move the row up instead of down")
	return cmd
}

func rowIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errors.New("position must be a 1-based row number")
	}
	return n - 1, nil
}
