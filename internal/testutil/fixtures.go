package testutil

import (
	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
)

// Admin is a signed-in administrator.
var Admin = session.Session{UserID: "admin-1", Email: "admin@example.com", Role: session.RoleAdmin}

// Viewer is a signed-in read-only user pinned to RATIFICADAS.
var Viewer = session.Session{UserID: "viewer-1", Email: "viewer@example.com", Role: session.RoleViewer, AssignedSection: seccion.Ratificadas}

// Glosa builds a pending glosa with the given identity and amount.
func Glosa(id, factura, servicio string, valor int64) glosa.Glosa {
	return glosa.Glosa{
		ID:         id,
		Factura:    factura,
		Servicio:   servicio,
		ValorGlosa: decimal.NewFromInt(valor),
		TipoGlosa:  glosa.TipoTarifas,
		Estado:     glosa.EstadoPendiente,
		Fecha:      "15/03/2024, 10:00:00",
	}
}

// Ingreso builds an ingreso for factura.
func Ingreso(id, factura string, aceptado, noAceptado int64) ingreso.Ingreso {
	return ingreso.Ingreso{
		ID:              id,
		Factura:         factura,
		ValorAceptado:   decimal.NewFromInt(aceptado),
		ValorNoAceptado: decimal.NewFromInt(noAceptado),
		Fecha:           "15/03/2024, 10:00:00",
	}
}
