package ingreso

import (
	"context"

	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/seccion"
)

// OrderBy selects the sort applied by SelectAll.
type OrderBy = glosa.OrderBy

// Patch is a partial update of an ingreso. Nil fields are left untouched.
type Patch struct {
	Factura         *string          `json:"factura,omitempty"`
	ValorAceptado   *decimal.Decimal `json:"valor_aceptado,omitempty"`
	ValorNoAceptado *decimal.Decimal `json:"valor_no_aceptado,omitempty"`
	Seccion         *seccion.Seccion `json:"seccion,omitempty"`
}

// Apply returns i with the patch applied.
func (p Patch) Apply(i Ingreso) Ingreso {
	if p.Factura != nil {
		i.Factura = *p.Factura
	}
	if p.ValorAceptado != nil {
		i.ValorAceptado = *p.ValorAceptado
	}
	if p.ValorNoAceptado != nil {
		i.ValorNoAceptado = *p.ValorNoAceptado
	}
	if p.Seccion != nil {
		i.Seccion = *p.Seccion
	}
	return i
}

// Columns flattens the patch into column/value pairs.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Factura != nil {
		cols["factura"] = *p.Factura
	}
	if p.ValorAceptado != nil {
		cols["valor_aceptado"] = *p.ValorAceptado
	}
	if p.ValorNoAceptado != nil {
		cols["valor_no_aceptado"] = *p.ValorNoAceptado
	}
	if p.Seccion != nil {
		cols["seccion"] = string(p.Seccion.Normalize())
	}
	return cols
}

// Repository defines the remote ingresos collection.
type Repository interface {
	SelectAll(ctx context.Context, order OrderBy) ([]Ingreso, error)
	Insert(ctx context.Context, ingresos []Ingreso) error
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
	Upsert(ctx context.Context, ingresos []Ingreso) error
}
