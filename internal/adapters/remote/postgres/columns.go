package postgres

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/glosa"
)

var orderColumns = map[string]struct{}{
	"fecha":      {},
	"factura":    {},
	"created_at": {},
	"id":         {},
}

// orderClause renders a whitelisted ORDER BY. Unknown fields fall back to
// creation time so callers can never inject SQL through the order.
func orderClause(order glosa.OrderBy) string {
	field := order.Field
	if _, ok := orderColumns[field]; !ok {
		field = "created_at"
	}
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", field, dir, dir)
}

// setClause renders the SET list for cols, keeping only whitelisted columns.
// Decimal values travel as text and are cast server side.
func setClause(cols map[string]any, allowed map[string]string) (string, []any, error) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		if _, ok := allowed[name]; !ok {
			return "", nil, fmt.Errorf("columna no permitida [%s]", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for i, name := range names {
		value := cols[name]
		if d, ok := value.(decimal.Decimal); ok {
			value = d.String()
		}
		parts = append(parts, fmt.Sprintf("%s = $%d%s", name, i+1, allowed[name]))
		args = append(args, value)
	}
	return strings.Join(parts, ", "), args, nil
}

func parseDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
