package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"3tcapital/goglosas/internal/app"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/infrastructure/http/middleware"
)

// Opener builds the application components a command runs against.
type Opener func(ctx context.Context) (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	Seccion string
	Offline bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the glosasctl root command.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "glosasctl",
		Short: "Operator tooling for the glosas sync layer",
		Long:  "Runs reconciliation, recovery and reporting against the configured local cache and remote store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, ok := seccion.Parse(opts.Seccion); !ok {
				return fmt.Errorf("invalid seccion %q", opts.Seccion)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Seccion, "seccion", "", "section to operate on (GLOSAS|RATIFICADAS|MEDICAMENTOS)")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "read the local cache without contacting the remote store")

	cmd.AddCommand(NewSyncCommand(opts, open))
	cmd.AddCommand(NewStatsCommand(opts, open))
	cmd.AddCommand(NewConsolidadoCommand(opts, open))
	cmd.AddCommand(NewDedupeCommand(opts, open))
	cmd.AddCommand(NewRecoverFlagsCommand(opts, open))
	cmd.AddCommand(NewSyncFlagsCommand(opts, open))
	cmd.AddCommand(NewMigrateCommand(opts, open))
	cmd.AddCommand(NewImportCommand(opts, open))
	cmd.AddCommand(NewExportCommand(opts, open))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// operatorSession is the identity commands act as.
func operatorSession(a *app.App) session.Session {
	return middleware.DefaultSession(a.Config.Auth)
}

// scope resolves the --seccion flag against the operator's permissions.
func scope(opts *RootOptions, sess session.Session) seccion.Seccion {
	return sess.Scope(opts.Seccion)
}

// start loads the workspace. Unless --offline is set the operator session is
// opened, which runs recovery and the first remote fetch.
func start(ctx context.Context, opts *RootOptions, a *app.App, sess session.Session) error {
	if opts.Offline {
		return a.Workspace.Load(ctx)
	}
	if _, err := a.Sessions.SignIn(ctx, sess); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	return nil
}

// withApp opens the application for the duration of fn.
func withApp(cmd *cobra.Command, open Opener, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
