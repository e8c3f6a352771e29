package seccion

import "strings"

// Seccion is the organizational partition that scopes every view and aggregate.
type Seccion string

const (
	Glosas       Seccion = "GLOSAS"
	Ratificadas  Seccion = "RATIFICADAS"
	Medicamentos Seccion = "MEDICAMENTOS"
)

// All lists every section.
var All = []Seccion{Glosas, Ratificadas, Medicamentos}

// Normalize maps the legacy empty section to GLOSAS and upper-cases the value.
func (s Seccion) Normalize() Seccion {
	trimmed := strings.ToUpper(strings.TrimSpace(string(s)))
	if trimmed == "" {
		return Glosas
	}
	return Seccion(trimmed)
}

// Valid reports whether s (after normalization) is a known section.
func (s Seccion) Valid() bool {
	n := s.Normalize()
	for _, known := range All {
		if n == known {
			return true
		}
	}
	return false
}

// Parse converts free text into a section, falling back to GLOSAS.
func Parse(raw string) (Seccion, bool) {
	s := Seccion(raw).Normalize()
	if !s.Valid() {
		return Glosas, false
	}
	return s, true
}
