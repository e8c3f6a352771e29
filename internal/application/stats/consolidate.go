package stats

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/fecha"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
)

// InvoiceSummary is one row of the per-factura reconciliation.
type InvoiceSummary struct {
	Factura         string          `json:"factura"`
	TotalGlosado    decimal.Decimal `json:"total_glosado"`
	TotalAceptado   decimal.Decimal `json:"total_aceptado"`
	TotalNoAceptado decimal.Decimal `json:"total_no_aceptado"`
	UltimaFecha     string          `json:"ultima_fecha"`
	Diferencia      decimal.Decimal `json:"diferencia"`
	CantidadGlosas  int             `json:"cantidad_glosas"`
	// Aceptada is true when any glosa of the factura is in state Aceptada
	// or any ingreso was recorded for it.
	Aceptada bool `json:"aceptada"`

	lastTS int64
}

// Consolidate groups glosas and ingresos by factura, most recent activity
// first. Blank facturas are ignored. Rows whose dates cannot be parsed
// sort last.
func Consolidate(glosas []glosa.Glosa, ingresos []ingreso.Ingreso) []InvoiceSummary {
	index := make(map[string]int)
	var rows []InvoiceSummary

	row := func(factura string) *InvoiceSummary {
		if idx, ok := index[factura]; ok {
			return &rows[idx]
		}
		index[factura] = len(rows)
		rows = append(rows, InvoiceSummary{Factura: factura, UltimaFecha: fecha.Placeholder})
		return &rows[len(rows)-1]
	}
	touch := func(r *InvoiceSummary, raw string) {
		ts := fecha.Timestamp(raw)
		if ts > r.lastTS {
			r.lastTS = ts
			r.UltimaFecha = raw
		}
	}

	for _, g := range glosas {
		factura := strings.TrimSpace(g.Factura)
		if factura == "" {
			continue
		}
		r := row(factura)
		r.TotalGlosado = r.TotalGlosado.Add(g.ValorGlosa)
		r.CantidadGlosas++
		if g.Estado == glosa.EstadoAceptada {
			r.Aceptada = true
		}
		touch(r, g.Fecha)
	}
	for _, i := range ingresos {
		factura := strings.TrimSpace(i.Factura)
		if factura == "" {
			continue
		}
		r := row(factura)
		r.TotalAceptado = r.TotalAceptado.Add(i.ValorAceptado)
		r.TotalNoAceptado = r.TotalNoAceptado.Add(i.ValorNoAceptado)
		r.Aceptada = true
		touch(r, i.Fecha)
	}

	for idx := range rows {
		r := &rows[idx]
		r.Diferencia = r.TotalGlosado.Sub(r.TotalAceptado).Sub(r.TotalNoAceptado)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].lastTS > rows[b].lastTS
	})
	return rows
}
