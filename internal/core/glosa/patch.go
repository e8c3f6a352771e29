package glosa

import (
	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/seccion"
)

// Patch is a partial update of a glosa. Nil fields are left untouched.
type Patch struct {
	Factura                *string          `json:"factura,omitempty"`
	Servicio               *string          `json:"servicio,omitempty"`
	OrdenServicio          *string          `json:"orden_servicio,omitempty"`
	ValorGlosa             *decimal.Decimal `json:"valor_glosa,omitempty"`
	Descripcion            *string          `json:"descripcion,omitempty"`
	TipoGlosa              *Tipo            `json:"tipo_glosa,omitempty"`
	Estado                 *Estado          `json:"estado,omitempty"`
	RegistradaInternamente *bool            `json:"registrada_internamente,omitempty"`
	Seccion                *seccion.Seccion `json:"seccion,omitempty"`
}

// EstadoPatch builds a patch that only changes the workflow state.
func EstadoPatch(e Estado) Patch {
	return Patch{Estado: &e}
}

// RegistroInternoPatch builds the patch that promotes the internal flag.
func RegistroInternoPatch() Patch {
	registered := true
	return Patch{RegistradaInternamente: &registered}
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// Apply returns g with the patch applied. The internal flag only moves
// from false to true; a patch asking for false is ignored.
func (p Patch) Apply(g Glosa) Glosa {
	if p.Factura != nil {
		g.Factura = *p.Factura
	}
	if p.Servicio != nil {
		g.Servicio = *p.Servicio
	}
	if p.OrdenServicio != nil {
		g.OrdenServicio = *p.OrdenServicio
	}
	if p.ValorGlosa != nil {
		g.ValorGlosa = *p.ValorGlosa
	}
	if p.Descripcion != nil {
		g.Descripcion = *p.Descripcion
	}
	if p.TipoGlosa != nil {
		g.TipoGlosa = *p.TipoGlosa
	}
	if p.Estado != nil {
		g.Estado = *p.Estado
	}
	if p.RegistradaInternamente != nil && *p.RegistradaInternamente {
		g.RegistradaInternamente = true
	}
	if p.Seccion != nil {
		g.Seccion = *p.Seccion
	}
	return g
}

// Columns flattens the patch into column/value pairs for storage adapters.
// A false internal flag is dropped so it can never reach the remote store.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Factura != nil {
		cols["factura"] = *p.Factura
	}
	if p.Servicio != nil {
		cols["servicio"] = *p.Servicio
	}
	if p.OrdenServicio != nil {
		cols["orden_servicio"] = *p.OrdenServicio
	}
	if p.ValorGlosa != nil {
		cols["valor_glosa"] = *p.ValorGlosa
	}
	if p.Descripcion != nil {
		cols["descripcion"] = *p.Descripcion
	}
	if p.TipoGlosa != nil {
		cols["tipo_glosa"] = string(*p.TipoGlosa)
	}
	if p.Estado != nil {
		cols["estado"] = string(*p.Estado)
	}
	if p.RegistradaInternamente != nil && *p.RegistradaInternamente {
		cols["registrada_internamente"] = true
	}
	if p.Seccion != nil {
		cols["seccion"] = string(p.Seccion.Normalize())
	}
	return cols
}
