package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"3tcapital/goglosas/internal/app"
	"3tcapital/goglosas/internal/application/reconciliation"
	"3tcapital/goglosas/internal/application/stats"
)

// SyncSummary is the output of the sync command.
type SyncSummary struct {
	Glosas              int    `json:"glosas"`
	Ingresos            int    `json:"ingresos"`
	Intentos            int    `json:"intentos"`
	IngresosDescartados bool   `json:"ingresos_descartados"`
	FlagsConservadas    int    `json:"flags_conservadas"`
	BanderasRecuperadas int    `json:"banderas_recuperadas"`
	Error               string `json:"error,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch both remote collections and merge them into the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				report, err := a.Sessions.SignIn(ctx, sess)
				if err != nil {
					return err
				}
				res := report.Fetch
				if report.FetchError == "" && res.Skipped {
					res, err = a.Engine.FetchAndMerge(ctx, sess, reconciliation.Options{Force: true})
					if err != nil {
						report.FetchError = err.Error()
					}
				}
				out := SyncSummary{
					Glosas:              len(res.Glosas),
					Ingresos:            len(res.Ingresos),
					Intentos:            res.Attempts,
					IngresosDescartados: res.IngresosDiscarded,
					FlagsConservadas:    res.PromotedFlags,
					BanderasRecuperadas: report.RecoveredFlags,
					Error:               report.FetchError,
				}
				if err := newFormatter(opts, cmd.OutOrStdout()).Emit(out, func(w io.Writer) error {
					return KeyValues(w,
						[2]string{"glosas", strconv.Itoa(out.Glosas)},
						[2]string{"ingresos", strconv.Itoa(out.Ingresos)},
						[2]string{"intentos", strconv.Itoa(out.Intentos)},
						[2]string{"flags conservadas", strconv.Itoa(out.FlagsConservadas)},
						[2]string{"banderas recuperadas", strconv.Itoa(out.BanderasRecuperadas)},
					)
				}); err != nil {
					return err
				}
				if out.Error != "" {
					return fmt.Errorf("sync failed: %s", out.Error)
				}
				return nil
			})
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the statistics of a section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				if err := start(ctx, opts, a, sess); err != nil {
					return err
				}
				s := scope(opts, sess)
				st := stats.ForSection(s, a.Workspace.Glosas(), a.Workspace.Ingresos())
				return newFormatter(opts, cmd.OutOrStdout()).Emit(st, func(w io.Writer) error {
					return KeyValues(w,
						[2]string{"seccion", string(s)},
						[2]string{"glosas", strconv.Itoa(st.CantidadGlosas)},
						[2]string{"ingresos", strconv.Itoa(st.CantidadIngresos)},
						[2]string{"facturas", strconv.Itoa(st.CantidadFacturas)},
						[2]string{"total glosado", st.TotalGlosado.StringFixed(2)},
						[2]string{"total aceptado", st.TotalAceptado.StringFixed(2)},
						[2]string{"total no aceptado", st.TotalNoAceptado.StringFixed(2)},
						[2]string{"saldo pendiente", st.SaldoPendiente.StringFixed(2)},
						[2]string{"aceptacion %", strconv.FormatInt(st.PorcentajeAceptacion, 10)},
						[2]string{"registrado %", strconv.FormatInt(st.PorcentajeRegistrado, 10)},
					)
				})
			})
		},
	}
}

// NewConsolidadoCommand creates the consolidado command.
func NewConsolidadoCommand(opts *RootOptions, open Opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "consolidado",
		Short: "Print the per-factura reconciliation of a section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				if err := start(ctx, opts, a, sess); err != nil {
					return err
				}
				g, i := stats.FilterBySection(scope(opts, sess), a.Workspace.Glosas(), a.Workspace.Ingresos())
				rows := stats.Consolidate(g, i)
				if limit > 0 && len(rows) > limit {
					rows = rows[:limit]
				}
				return newFormatter(opts, cmd.OutOrStdout()).Emit(rows, func(w io.Writer) error {
					table := make([][]string, 0, len(rows))
					for _, r := range rows {
						table = append(table, []string{
							r.Factura,
							strconv.Itoa(r.CantidadGlosas),
							r.TotalGlosado.StringFixed(2),
							r.TotalAceptado.StringFixed(2),
							r.TotalNoAceptado.StringFixed(2),
							r.Diferencia.StringFixed(2),
							r.UltimaFecha,
						})
					}
					return Table(w, []string{"FACTURA", "GLOSAS", "GLOSADO", "ACEPTADO", "NO ACEPTADO", "DIFERENCIA", "ULTIMA FECHA"}, table)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of rows (0 prints all)")
	return cmd
}

// NewDedupeCommand creates the dedupe command.
func NewDedupeCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "dedupe",
		Short: "Delete duplicate glosas, keeping the first of each group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				if err := start(ctx, opts, a, sess); err != nil {
					return err
				}
				removed, err := a.Coordinator.DeduplicateGlosas(ctx, sess)
				if err != nil {
					return err
				}
				return emitCount(opts, cmd, "eliminadas", removed)
			})
		},
	}
}

// NewRecoverFlagsCommand creates the recover-flags command.
func NewRecoverFlagsCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "recover-flags",
		Short: "Promote internal-registration flags found in the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				if err := sess.RequireAdmin(); err != nil {
					return err
				}
				if err := a.Workspace.Load(ctx); err != nil {
					return err
				}
				n, err := a.Scanner.RunFlagRecovery(ctx)
				if err != nil {
					return err
				}
				return emitCount(opts, cmd, "recuperadas", n)
			})
		},
	}
}

// NewSyncFlagsCommand creates the sync-flags command.
func NewSyncFlagsCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-flags",
		Short: "Push every promoted internal-registration flag to the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				if err := sess.RequireAdmin(); err != nil {
					return err
				}
				if err := a.Workspace.Load(ctx); err != nil {
					return err
				}
				n, err := a.Scanner.SyncPromotedFlags(ctx)
				if emitErr := emitCount(opts, cmd, "sincronizadas", n); emitErr != nil {
					return emitErr
				}
				return err
			})
		},
	}
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema migrations to the remote Postgres database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Emit(map[string]bool{"migrado": true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "migrations applied")
					return err
				})
			})
		},
	}
}

func emitCount(opts *RootOptions, cmd *cobra.Command, label string, n int) error {
	return newFormatter(opts, cmd.OutOrStdout()).Emit(map[string]int{label: n}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %d\n", label, n)
		return err
	})
}
