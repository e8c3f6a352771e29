package glosa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/seccion"
)

// Tipo classifies the reason an insurer disputed a charge.
type Tipo string

const (
	TipoTarifas      Tipo = "Tarifas"
	TipoSoportes     Tipo = "Soportes"
	TipoRIPS         Tipo = "RIPS"
	TipoAutorizacion Tipo = "Autorización"
)

// Tipos lists every known dispute category in display order.
var Tipos = []Tipo{TipoTarifas, TipoSoportes, TipoRIPS, TipoAutorizacion}

// Valid reports whether t is a known category.
func (t Tipo) Valid() bool {
	for _, known := range Tipos {
		if t == known {
			return true
		}
	}
	return false
}

// Estado is the state of a glosa in its response workflow.
type Estado string

const (
	EstadoPendiente  Estado = "Pendiente"
	EstadoRespondida Estado = "Respondida"
	EstadoAceptada   Estado = "Aceptada"
)

// Estados lists every workflow state.
var Estados = []Estado{EstadoPendiente, EstadoRespondida, EstadoAceptada}

// Valid reports whether e is a known state.
func (e Estado) Valid() bool {
	for _, known := range Estados {
		if e == known {
			return true
		}
	}
	return false
}

// Glosa represents an insurer's objection to a billed charge.
type Glosa struct {
	ID                     string          `json:"id"`
	Factura                string          `json:"factura"`
	Servicio               string          `json:"servicio"`
	OrdenServicio          string          `json:"orden_servicio"`
	ValorGlosa             decimal.Decimal `json:"valor_glosa"`
	Descripcion            string          `json:"descripcion"`
	TipoGlosa              Tipo            `json:"tipo_glosa"`
	Estado                 Estado          `json:"estado"`
	Fecha                  string          `json:"fecha"`
	RegistradaInternamente bool            `json:"registrada_internamente"`
	Seccion                seccion.Seccion `json:"seccion,omitempty"`
}

// EnSeccion reports whether the glosa belongs to s. Records without a
// section belong to GLOSAS.
func (g Glosa) EnSeccion(s seccion.Seccion) bool {
	return g.Seccion.Normalize() == s.Normalize()
}

// DuplicateKey returns the identity used for duplicate detection.
func (g Glosa) DuplicateKey() string {
	return DuplicateKeyOf(g.Factura, g.Servicio, g.ValorGlosa)
}

// DuplicateKeyOf builds a duplicate-detection key from its parts.
func DuplicateKeyOf(factura, servicio string, valor decimal.Decimal) string {
	return strings.ToLower(strings.TrimSpace(factura)) + "|" +
		strings.ToLower(strings.TrimSpace(servicio)) + "|" +
		valor.String()
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("glosa inválida")

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

// Validate checks the fields a new glosa must carry.
func (g Glosa) Validate() error {
	var problems []string
	if strings.TrimSpace(g.Factura) == "" {
		problems = append(problems, "la factura es obligatoria")
	}
	if g.ValorGlosa.IsNegative() {
		problems = append(problems, "el valor de la glosa no puede ser negativo")
	}
	if g.TipoGlosa != "" && !g.TipoGlosa.Valid() {
		problems = append(problems, fmt.Sprintf("tipo de glosa desconocido [%s]", g.TipoGlosa))
	}
	if g.Estado != "" && !g.Estado.Valid() {
		problems = append(problems, fmt.Sprintf("estado desconocido [%s]", g.Estado))
	}
	if g.Seccion != "" && !g.Seccion.Valid() {
		problems = append(problems, fmt.Sprintf("sección desconocida [%s]", g.Seccion))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
