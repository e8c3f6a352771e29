package transfer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"3tcapital/goglosas/internal/application/stats"
	"3tcapital/goglosas/internal/core/seccion"
)

const (
	sheetConsolidado = "Consolidado"
	sheetResumen     = "Resumen"
)

var consolidadoHeaders = []string{
	"Factura", "Total glosado", "Total aceptado", "Total no aceptado", "Diferencia", "Glosas", "Última fecha",
}

// ExportConsolidadoXLSX writes the per-factura consolidation and the section
// statistics as an xlsx workbook.
func ExportConsolidadoXLSX(w io.Writer, s seccion.Seccion, rows []stats.InvoiceSummary, st stats.Statistics) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetConsolidado)

	for col, h := range consolidadoHeaders {
		if err := setCell(f, sheetConsolidado, col+1, 1, h); err != nil {
			return err
		}
	}
	for idx, r := range rows {
		line := idx + 2
		values := []any{
			r.Factura,
			r.TotalGlosado.InexactFloat64(),
			r.TotalAceptado.InexactFloat64(),
			r.TotalNoAceptado.InexactFloat64(),
			r.Diferencia.InexactFloat64(),
			r.CantidadGlosas,
			r.UltimaFecha,
		}
		for col, v := range values {
			if err := setCell(f, sheetConsolidado, col+1, line, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.NewSheet(sheetResumen); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetResumen, err)
	}
	summary := [][2]any{
		{"Sección", string(s.Normalize())},
		{"Total glosado", st.TotalGlosado.InexactFloat64()},
		{"Total aceptado", st.TotalAceptado.InexactFloat64()},
		{"Total no aceptado", st.TotalNoAceptado.InexactFloat64()},
		{"Saldo pendiente", st.SaldoPendiente.InexactFloat64()},
		{"Total registrado interno", st.TotalRegistradoInterno.InexactFloat64()},
		{"% aceptación", st.PorcentajeAceptacion},
		{"% registrado", st.PorcentajeRegistrado},
		{"Facturas", st.CantidadFacturas},
		{"Facturas aceptadas", st.FacturasAceptadas},
	}
	for idx, kv := range summary {
		if err := setCell(f, sheetResumen, 1, idx+1, kv[0]); err != nil {
			return err
		}
		if err := setCell(f, sheetResumen, 2, idx+1, kv[1]); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
