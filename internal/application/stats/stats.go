// Package stats derives the dashboard aggregates from the glosas and
// ingresos of one section. Nothing here is persisted; every read
// recomputes.
package stats

import (
	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
)

var hundred = decimal.NewFromInt(100)

// Statistics is the summary shown at the top of the dashboard.
type Statistics struct {
	TotalGlosado           decimal.Decimal      `json:"total_glosado"`
	TotalAceptado          decimal.Decimal      `json:"total_aceptado"`
	TotalNoAceptado        decimal.Decimal      `json:"total_no_aceptado"`
	TotalRegistradoInterno decimal.Decimal      `json:"total_registrado_interno"`
	SaldoPendiente         decimal.Decimal      `json:"saldo_pendiente"`
	PorcentajeAceptacion   int64                `json:"porcentaje_aceptacion"`
	PorcentajeRegistrado   int64                `json:"porcentaje_registrado"`
	CantidadGlosas         int                  `json:"cantidad_glosas"`
	CantidadIngresos       int                  `json:"cantidad_ingresos"`
	CantidadFacturas       int                  `json:"cantidad_facturas"`
	FacturasAceptadas      int                  `json:"facturas_aceptadas"`
	PorEstado              map[glosa.Estado]int `json:"por_estado"`
	PorTipo                map[glosa.Tipo]int   `json:"por_tipo"`
}

// FilterBySection keeps the records of s. Records without a section belong
// to GLOSAS.
func FilterBySection(s seccion.Seccion, glosas []glosa.Glosa, ingresos []ingreso.Ingreso) ([]glosa.Glosa, []ingreso.Ingreso) {
	var gs []glosa.Glosa
	for _, g := range glosas {
		if g.EnSeccion(s) {
			gs = append(gs, g)
		}
	}
	var is []ingreso.Ingreso
	for _, i := range ingresos {
		if i.EnSeccion(s) {
			is = append(is, i)
		}
	}
	return gs, is
}

// Compute aggregates already-filtered glosas and ingresos.
func Compute(glosas []glosa.Glosa, ingresos []ingreso.Ingreso) Statistics {
	st := Statistics{
		PorEstado:        make(map[glosa.Estado]int, len(glosa.Estados)),
		PorTipo:          make(map[glosa.Tipo]int, len(glosa.Tipos)),
		CantidadGlosas:   len(glosas),
		CantidadIngresos: len(ingresos),
	}
	for _, e := range glosa.Estados {
		st.PorEstado[e] = 0
	}
	for _, t := range glosa.Tipos {
		st.PorTipo[t] = 0
	}

	for _, g := range glosas {
		st.TotalGlosado = st.TotalGlosado.Add(g.ValorGlosa)
		if g.RegistradaInternamente {
			st.TotalRegistradoInterno = st.TotalRegistradoInterno.Add(g.ValorGlosa)
		}
		if g.Estado != "" {
			st.PorEstado[g.Estado]++
		}
		if g.TipoGlosa != "" {
			st.PorTipo[g.TipoGlosa]++
		}
	}
	for _, i := range ingresos {
		st.TotalAceptado = st.TotalAceptado.Add(i.ValorAceptado)
		st.TotalNoAceptado = st.TotalNoAceptado.Add(i.ValorNoAceptado)
	}

	st.SaldoPendiente = decimal.Max(decimal.Zero, st.TotalGlosado.Sub(st.TotalAceptado).Sub(st.TotalNoAceptado))
	st.PorcentajeAceptacion = percent(st.TotalAceptado, st.TotalGlosado)
	st.PorcentajeRegistrado = percent(st.TotalRegistradoInterno, st.TotalGlosado)

	rows := Consolidate(glosas, ingresos)
	st.CantidadFacturas = len(rows)
	for _, r := range rows {
		if r.Aceptada {
			st.FacturasAceptadas++
		}
	}
	return st
}

// ForSection filters by s and computes the statistics.
func ForSection(s seccion.Seccion, glosas []glosa.Glosa, ingresos []ingreso.Ingreso) Statistics {
	gs, is := FilterBySection(s, glosas, ingresos)
	return Compute(gs, is)
}

func percent(part, total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return part.Div(total).Mul(hundred).Round(0).IntPart()
}
