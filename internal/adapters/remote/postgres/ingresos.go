package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
)

var ingresoColumns = map[string]string{
	"factura":           "",
	"valor_aceptado":    "::numeric",
	"valor_no_aceptado": "::numeric",
	"seccion":           "",
}

const selectIngresos = `
	SELECT id, factura, valor_aceptado::text, valor_no_aceptado::text, fecha, seccion
	FROM ingresos`

const insertIngreso = `
	INSERT INTO ingresos (id, factura, valor_aceptado, valor_no_aceptado, fecha, seccion)
	VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)`

const upsertIngreso = insertIngreso + `
	ON CONFLICT (id) DO UPDATE SET
		factura = EXCLUDED.factura,
		valor_aceptado = EXCLUDED.valor_aceptado,
		valor_no_aceptado = EXCLUDED.valor_no_aceptado,
		fecha = EXCLUDED.fecha,
		seccion = EXCLUDED.seccion`

// IngresoRepository implements ingreso.Repository on PostgreSQL.
type IngresoRepository struct {
	pool *pgxpool.Pool
}

func NewIngresoRepository(pool *pgxpool.Pool) *IngresoRepository {
	return &IngresoRepository{pool: pool}
}

var _ ingreso.Repository = (*IngresoRepository)(nil)

func (r *IngresoRepository) SelectAll(ctx context.Context, order ingreso.OrderBy) ([]ingreso.Ingreso, error) {
	rows, err := r.pool.Query(ctx, selectIngresos+orderClause(order))
	if err != nil {
		return nil, fmt.Errorf("select ingresos: %w", err)
	}
	defer rows.Close()

	var result []ingreso.Ingreso
	for rows.Next() {
		var (
			i                    ingreso.Ingreso
			aceptado, noAceptado string
			sec                  string
		)
		if err := rows.Scan(&i.ID, &i.Factura, &aceptado, &noAceptado, &i.Fecha, &sec); err != nil {
			return nil, fmt.Errorf("scan ingreso: %w", err)
		}
		i.ValorAceptado = parseDecimal(aceptado)
		i.ValorNoAceptado = parseDecimal(noAceptado)
		i.Seccion = seccion.Seccion(sec)
		result = append(result, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingresos: %w", err)
	}
	return result, nil
}

func (r *IngresoRepository) Insert(ctx context.Context, ingresos []ingreso.Ingreso) error {
	return r.batch(ctx, insertIngreso, ingresos, "insert ingresos")
}

func (r *IngresoRepository) Upsert(ctx context.Context, ingresos []ingreso.Ingreso) error {
	return r.batch(ctx, upsertIngreso, ingresos, "upsert ingresos")
}

func (r *IngresoRepository) batch(ctx context.Context, query string, ingresos []ingreso.Ingreso, op string) error {
	if len(ingresos) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, i := range ingresos {
		batch.Queue(query, i.ID, i.Factura, i.ValorAceptado.String(), i.ValorNoAceptado.String(),
			i.Fecha, string(i.Seccion.Normalize()))
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *IngresoRepository) Update(ctx context.Context, id string, patch ingreso.Patch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	set, args, err := setClause(cols, ingresoColumns)
	if err != nil {
		return fmt.Errorf("update ingreso %s: %w", id, err)
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE ingresos SET %s WHERE id = $%d", set, len(args))
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update ingreso %s: %w", id, err)
	}
	return nil
}

func (r *IngresoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM ingresos WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete ingreso %s: %w", id, err)
	}
	return nil
}

func (r *IngresoRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, "DELETE FROM ingresos WHERE id = ANY($1)", ids); err != nil {
		return fmt.Errorf("delete ingresos: %w", err)
	}
	return nil
}
