package postgrest

import (
	"context"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
)

const (
	glosasTable   = "glosas"
	ingresosTable = "ingresos"
)

// GlosaRepository implements glosa.Repository over PostgREST.
type GlosaRepository struct {
	c *Client
}

func NewGlosaRepository(c *Client) *GlosaRepository {
	return &GlosaRepository{c: c}
}

var _ glosa.Repository = (*GlosaRepository)(nil)

func (r *GlosaRepository) SelectAll(ctx context.Context, order glosa.OrderBy) ([]glosa.Glosa, error) {
	var rows []glosa.Glosa
	if err := r.c.selectAll(ctx, glosasTable, order.Field, order.Desc, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GlosaRepository) Insert(ctx context.Context, glosas []glosa.Glosa) error {
	if len(glosas) == 0 {
		return nil
	}
	return r.c.insert(ctx, glosasTable, normalizeGlosas(glosas))
}

func (r *GlosaRepository) Upsert(ctx context.Context, glosas []glosa.Glosa) error {
	if len(glosas) == 0 {
		return nil
	}
	return r.c.upsert(ctx, glosasTable, normalizeGlosas(glosas))
}

func (r *GlosaRepository) Update(ctx context.Context, id string, patch glosa.Patch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	return r.c.update(ctx, glosasTable, id, cols)
}

func (r *GlosaRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, glosasTable, id)
}

func (r *GlosaRepository) DeleteMany(ctx context.Context, ids []string) error {
	return r.c.deleteMany(ctx, glosasTable, ids)
}

func normalizeGlosas(in []glosa.Glosa) []glosa.Glosa {
	out := make([]glosa.Glosa, len(in))
	for i, g := range in {
		g.Seccion = g.Seccion.Normalize()
		out[i] = g
	}
	return out
}

// IngresoRepository implements ingreso.Repository over PostgREST.
type IngresoRepository struct {
	c *Client
}

func NewIngresoRepository(c *Client) *IngresoRepository {
	return &IngresoRepository{c: c}
}

var _ ingreso.Repository = (*IngresoRepository)(nil)

func (r *IngresoRepository) SelectAll(ctx context.Context, order ingreso.OrderBy) ([]ingreso.Ingreso, error) {
	var rows []ingreso.Ingreso
	if err := r.c.selectAll(ctx, ingresosTable, order.Field, order.Desc, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *IngresoRepository) Insert(ctx context.Context, ingresos []ingreso.Ingreso) error {
	if len(ingresos) == 0 {
		return nil
	}
	return r.c.insert(ctx, ingresosTable, normalizeIngresos(ingresos))
}

func (r *IngresoRepository) Upsert(ctx context.Context, ingresos []ingreso.Ingreso) error {
	if len(ingresos) == 0 {
		return nil
	}
	return r.c.upsert(ctx, ingresosTable, normalizeIngresos(ingresos))
}

func (r *IngresoRepository) Update(ctx context.Context, id string, patch ingreso.Patch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	return r.c.update(ctx, ingresosTable, id, cols)
}

func (r *IngresoRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, ingresosTable, id)
}

func (r *IngresoRepository) DeleteMany(ctx context.Context, ids []string) error {
	return r.c.deleteMany(ctx, ingresosTable, ids)
}

func normalizeIngresos(in []ingreso.Ingreso) []ingreso.Ingreso {
	out := make([]ingreso.Ingreso, len(in))
	for i, v := range in {
		v.Seccion = v.Seccion.Normalize()
		out[i] = v
	}
	return out
}
