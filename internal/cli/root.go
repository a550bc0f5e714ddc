package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/brandonsypek/approver-repeater/internal/auth"
	"github.com/brandonsypek/approver-repeater/internal/authstore"
	"github.com/brandonsypek/approver-repeater/internal/config"
	"github.com/brandonsypek/approver-repeater/internal/directory"
	"github.com/brandonsypek/approver-repeater/internal/formmode"
	"github.com/brandonsypek/approver-repeater/internal/persist"
	"github.com/brandonsypek/approver-repeater/internal/repeater"
	"github.com/brandonsypek/approver-repeater/internal/rows"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	FormPath   string
	PrettyJSON bool
	ReadOnly   bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "approvers",
		Short:        "Ordered approver list editor",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive editor.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runEdit(app)
			}
			return cmd.Help()
		},
	}

	defaultConfig, _ := config.DefaultPath()
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("APPROVERS_CONFIG", defaultConfig), "Path to config JSON")
	cmd.PersistentFlags().StringVar(&app.FormPath, "form", envOr("APPROVERS_FORM", "approvers-form.json"), "Path to the form document JSON")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVar(&app.ReadOnly, "read-only", false, "Open the form without editing")

	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newSearchCmd(app))
	cmd.AddCommand(newResolveCmd(app))
	cmd.AddCommand(newRowsCmd(app))
	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

func (app *App) options() (*config.Options, error) {
	opts, err := config.LoadOrDefault(app.ConfigPath)
	if err != nil {
		return nil, err
	}
	opts.Normalize()
	return opts, nil
}

func (app *App) provider(opts *config.Options) (*auth.Provider, error) {
	storePath, err := authstore.DefaultPath()
	if err != nil {
		return nil, err
	}
	return auth.New(auth.Config{
		ClientID:       opts.ClientID,
		TenantID:       opts.TenantID,
		AuthURL:        opts.AuthURL,
		RedirectOrigin: opts.RedirectOrigin,
		Scopes:         opts.ScopeList(),
	}, storePath), nil
}

func (app *App) directory(opts *config.Options) (directory.Client, *auth.Provider, error) {
	p, err := app.provider(opts)
	if err != nil {
		return nil, nil, err
	}
	return directory.HTTPClient{
		BaseURL:  opts.DirectoryURL,
		Endpoint: directory.Endpoint(opts.Endpoint),
		Tokens:   p,
	}, p, nil
}

func (app *App) mode(opts *config.Options) *formmode.Detector {
	return &formmode.Detector{
		ForceEditable: opts.ForceEditable,
		HostMode: func() (bool, bool) {
			if app.ReadOnly {
				return true, true
			}
			return false, false
		},
		Affordance: formmode.FileWritableProbe(app.FormPath),
	}
}

// engine assembles the full editing stack around the form document.
func (app *App) engine(opts *config.Options) (*repeater.Engine, error) {
	doc, err := persist.OpenFormDoc(app.FormPath, persist.DefaultField)
	if err != nil {
		return nil, err
	}
	dir, _, err := app.directory(opts)
	if err != nil {
		return nil, err
	}
	mode := app.mode(opts)

	eng := repeater.New(repeater.Config{
		Mode:      mode,
		Directory: dir,
		Gateway: &persist.Gateway{
			Host:       doc,
			Mode:       mode,
			MirrorPath: opts.MirrorSink,
		},
		MinRows:        opts.MinRows,
		MaxRows:        opts.MaxRows,
		MinChars:       opts.MinChars,
		MaxSuggestions: opts.MaxSuggestions,
	})
	if opts.ClientID == "" {
		eng.SetConfigError(auth.ErrMissingClientID)
	}

	raw := doc.Value()
	var persisted []rows.Persisted
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &persisted); err != nil {
			return nil, fmt.Errorf("form value: %w", err)
		}
	}
	if err := eng.Load(persisted, raw); err != nil {
		return nil, err
	}
	return eng, nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeData(cmd *cobra.Command, app *App, data any) error {
	return writeOut(cmd, app, map[string]any{"ok": true, "data": data})
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
