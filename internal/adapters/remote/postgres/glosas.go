package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/seccion"
)

// glosaColumns maps patchable columns to the cast applied to their parameter.
var glosaColumns = map[string]string{
	"factura":                 "",
	"servicio":                "",
	"orden_servicio":          "",
	"valor_glosa":             "::numeric",
	"descripcion":             "",
	"tipo_glosa":              "",
	"estado":                  "",
	"registrada_internamente": "",
	"seccion":                 "",
}

const selectGlosas = `
	SELECT id, factura, servicio, orden_servicio, valor_glosa::text, descripcion,
		tipo_glosa, estado, fecha, registrada_internamente, seccion
	FROM glosas`

const upsertGlosa = `
	INSERT INTO glosas (
		id, factura, servicio, orden_servicio, valor_glosa, descripcion,
		tipo_glosa, estado, fecha, registrada_internamente, seccion
	) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		factura = EXCLUDED.factura,
		servicio = EXCLUDED.servicio,
		orden_servicio = EXCLUDED.orden_servicio,
		valor_glosa = EXCLUDED.valor_glosa,
		descripcion = EXCLUDED.descripcion,
		tipo_glosa = EXCLUDED.tipo_glosa,
		estado = EXCLUDED.estado,
		fecha = EXCLUDED.fecha,
		registrada_internamente = glosas.registrada_internamente OR EXCLUDED.registrada_internamente,
		seccion = EXCLUDED.seccion`

const insertGlosa = `
	INSERT INTO glosas (
		id, factura, servicio, orden_servicio, valor_glosa, descripcion,
		tipo_glosa, estado, fecha, registrada_internamente, seccion
	) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11)`

// GlosaRepository implements glosa.Repository on PostgreSQL.
type GlosaRepository struct {
	pool *pgxpool.Pool
}

func NewGlosaRepository(pool *pgxpool.Pool) *GlosaRepository {
	return &GlosaRepository{pool: pool}
}

var _ glosa.Repository = (*GlosaRepository)(nil)

func (r *GlosaRepository) SelectAll(ctx context.Context, order glosa.OrderBy) ([]glosa.Glosa, error) {
	rows, err := r.pool.Query(ctx, selectGlosas+orderClause(order))
	if err != nil {
		return nil, fmt.Errorf("select glosas: %w", err)
	}
	defer rows.Close()

	var result []glosa.Glosa
	for rows.Next() {
		var (
			g     glosa.Glosa
			valor string
			tipo  string
			est   string
			sec   string
		)
		if err := rows.Scan(&g.ID, &g.Factura, &g.Servicio, &g.OrdenServicio, &valor,
			&g.Descripcion, &tipo, &est, &g.Fecha, &g.RegistradaInternamente, &sec); err != nil {
			return nil, fmt.Errorf("scan glosa: %w", err)
		}
		g.ValorGlosa = parseDecimal(valor)
		g.TipoGlosa = glosa.Tipo(tipo)
		g.Estado = glosa.Estado(est)
		g.Seccion = seccion.Seccion(sec)
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate glosas: %w", err)
	}
	return result, nil
}

func (r *GlosaRepository) Insert(ctx context.Context, glosas []glosa.Glosa) error {
	return r.batch(ctx, insertGlosa, glosas, "insert glosas")
}

func (r *GlosaRepository) Upsert(ctx context.Context, glosas []glosa.Glosa) error {
	return r.batch(ctx, upsertGlosa, glosas, "upsert glosas")
}

func (r *GlosaRepository) batch(ctx context.Context, query string, glosas []glosa.Glosa, op string) error {
	if len(glosas) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, g := range glosas {
		batch.Queue(query, glosaArgs(g)...)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *GlosaRepository) Update(ctx context.Context, id string, patch glosa.Patch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	set, args, err := setClause(cols, glosaColumns)
	if err != nil {
		return fmt.Errorf("update glosa %s: %w", id, err)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE glosas SET %s WHERE id = $%d", set, len(args))
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update glosa %s: %w", id, err)
	}
	return nil
}

func (r *GlosaRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM glosas WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete glosa %s: %w", id, err)
	}
	return nil
}

func (r *GlosaRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, "DELETE FROM glosas WHERE id = ANY($1)", ids); err != nil {
		return fmt.Errorf("delete glosas: %w", err)
	}
	return nil
}

func glosaArgs(g glosa.Glosa) []any {
	return []any{
		g.ID,
		g.Factura,
		g.Servicio,
		g.OrdenServicio,
		g.ValorGlosa.String(),
		g.Descripcion,
		string(g.TipoGlosa),
		string(g.Estado),
		g.Fecha,
		g.RegistradaInternamente,
		string(g.Seccion.Normalize()),
	}
}
