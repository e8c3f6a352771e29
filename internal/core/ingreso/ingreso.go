package ingreso

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/seccion"
)

// Ingreso is a payment recorded against a factura. ValorAceptado and
// ValorNoAceptado keep the field names used by the persisted shape even
// though dashboards read them as paid and unpaid amounts.
type Ingreso struct {
	ID              string          `json:"id"`
	Factura         string          `json:"factura"`
	ValorAceptado   decimal.Decimal `json:"valor_aceptado"`
	ValorNoAceptado decimal.Decimal `json:"valor_no_aceptado"`
	Fecha           string          `json:"fecha"`
	Seccion         seccion.Seccion `json:"seccion,omitempty"`
}

// EnSeccion reports whether the ingreso belongs to s.
func (i Ingreso) EnSeccion(s seccion.Seccion) bool {
	return i.Seccion.Normalize() == s.Normalize()
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("ingreso inválido")

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid.Error(), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Validate checks the fields a new ingreso must carry.
func (i Ingreso) Validate() error {
	var problems []string
	if strings.TrimSpace(i.Factura) == "" {
		problems = append(problems, "la factura es obligatoria")
	}
	if i.ValorAceptado.IsNegative() {
		problems = append(problems, "el valor aceptado no puede ser negativo")
	}
	if i.ValorNoAceptado.IsNegative() {
		problems = append(problems, "el valor no aceptado no puede ser negativo")
	}
	if i.Seccion != "" && !i.Seccion.Valid() {
		problems = append(problems, fmt.Sprintf("sección desconocida [%s]", i.Seccion))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
