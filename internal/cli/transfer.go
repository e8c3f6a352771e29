package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"3tcapital/goglosas/internal/app"
	"3tcapital/goglosas/internal/application/recovery"
	"3tcapital/goglosas/internal/application/stats"
	"3tcapital/goglosas/internal/application/transfer"
)

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:       "import <glosas|ingresos> <file>",
		Short:     "Bulk-load glosas or ingresos from a CSV or JSON file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"glosas", "ingresos"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if kind != "glosas" && kind != "ingresos" {
				return fmt.Errorf("unknown import kind %q: use glosas or ingresos", kind)
			}
			payload, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}
			if len(bytes.TrimSpace(payload)) == 0 {
				return transfer.ErrEmptyImport
			}

			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				if err := sess.RequireAdmin(); err != nil {
					return err
				}
				if err := start(ctx, opts, a, sess); err != nil {
					return err
				}
				target := scope(opts, sess)

				var report transfer.Report
				switch {
				case isJSONFile(args[1], payload):
					decoded, err := recovery.Decode(payload)
					if err != nil {
						return err
					}
					if decoded.Kind.String() != kind {
						return fmt.Errorf("%w: expected %s, found %s", recovery.ErrUnrecognized, kind, decoded.Kind)
					}
					report, err = a.Importer.ImportJSON(ctx, sess, payload, target)
					if err != nil {
						return err
					}
				case kind == "glosas":
					report, err = a.Importer.ImportGlosasCSV(ctx, sess, bytes.NewReader(payload), target)
					if err != nil {
						return err
					}
				default:
					report, err = a.Importer.ImportIngresosCSV(ctx, sess, bytes.NewReader(payload), target)
					if err != nil {
						return err
					}
				}

				return newFormatter(opts, cmd.OutOrStdout()).Emit(report, func(w io.Writer) error {
					fmt.Fprintf(w, "%s importados: %d\n", report.Kind, report.Imported)
					if len(report.Rejected) == 0 {
						return nil
					}
					rows := make([][]string, 0, len(report.Rejected))
					for _, r := range report.Rejected {
						rows = append(rows, []string{strconv.Itoa(r.Line), r.Message})
					}
					return Table(w, []string{"LINEA", "MOTIVO"}, rows)
				})
			})
		},
	}
}

func isJSONFile(path string, payload []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return true
	}
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write the consolidated view of a section to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess := operatorSession(a)
				if err := start(ctx, opts, a, sess); err != nil {
					return err
				}
				s := scope(opts, sess)
				g, i := stats.FilterBySection(s, a.Workspace.Glosas(), a.Workspace.Ingresos())
				rows := stats.Consolidate(g, i)

				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create %s: %w", args[0], err)
				}
				if err := transfer.ExportConsolidadoXLSX(f, s, rows, stats.Compute(g, i)); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				return newFormatter(opts, cmd.OutOrStdout()).Emit(map[string]any{"archivo": args[0], "facturas": len(rows)}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%d facturas exported to %s\n", len(rows), args[0])
					return err
				})
			})
		},
	}
}
