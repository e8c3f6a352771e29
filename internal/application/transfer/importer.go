package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"3tcapital/goglosas/internal/application/recovery"
	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/fecha"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
)

// ErrEmptyImport is returned when a payload holds no usable rows.
var ErrEmptyImport = errors.New("el archivo no contiene registros válidos")

// ErrDuplicateID rejects a row whose id already appeared earlier in the same
// payload. The first occurrence is kept.
var ErrDuplicateID = errors.New("id repetido en el archivo")

// RowError describes a rejected input row.
type RowError struct {
	Line    int    `json:"linea"`
	Message string `json:"mensaje"`
}

// Report summarises an import.
type Report struct {
	Kind     string     `json:"tipo"`
	Imported int        `json:"importados"`
	Rejected []RowError `json:"rechazados,omitempty"`
}

// Importer loads bulk glosas and ingresos. Valid rows are upserted remotely
// in one call and then merged into the workspace by id.
type Importer struct {
	ws       *workspace.Workspace
	glosas   glosa.Repository
	ingresos ingreso.Repository
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewImporter wires an Importer.
func NewImporter(ws *workspace.Workspace, glosas glosa.Repository, ingresos ingreso.Repository, log *slog.Logger) *Importer {
	return &Importer{
		ws:       ws,
		glosas:   glosas,
		ingresos: ingresos,
		log:      log.With("component", "transfer"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ImportJSON accepts a pasted JSON array of glosas or ingresos. The
// collection type is detected from the first element.
func (im *Importer) ImportJSON(ctx context.Context, sess session.Session, raw []byte, target seccion.Seccion) (Report, error) {
	if err := sess.RequireAdmin(); err != nil {
		return Report{}, err
	}
	decoded, err := recovery.Decode(raw)
	if err != nil {
		return Report{}, err
	}

	switch decoded.Kind {
	case recovery.KindGlosas:
		rows := make([]glosaRow, 0, len(decoded.Glosas))
		for idx, g := range decoded.Glosas {
			rows = append(rows, glosaRow{line: idx + 1, glosa: g})
		}
		return im.storeGlosas(ctx, rows, nil, target)
	case recovery.KindIngresos:
		rows := make([]ingresoRow, 0, len(decoded.Ingresos))
		for idx, i := range decoded.Ingresos {
			rows = append(rows, ingresoRow{line: idx + 1, ingreso: i})
		}
		return im.storeIngresos(ctx, rows, nil, target)
	default:
		return Report{}, ErrEmptyImport
	}
}

type glosaRow struct {
	line  int
	glosa glosa.Glosa
}

type ingresoRow struct {
	line    int
	ingreso ingreso.Ingreso
}

func (im *Importer) storeGlosas(ctx context.Context, rows []glosaRow, rejected []RowError, target seccion.Seccion) (Report, error) {
	report := Report{Kind: recovery.KindGlosas.String(), Rejected: rejected}
	valid := make([]glosa.Glosa, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		g := row.glosa
		if g.ID == "" {
			g.ID = im.newID()
		}
		if g.Fecha == "" {
			g.Fecha = fecha.Format(im.now())
		}
		if g.Estado == "" {
			g.Estado = glosa.EstadoPendiente
		}
		if g.Seccion == "" {
			g.Seccion = target
		}
		g.Seccion = g.Seccion.Normalize()
		if err := g.Validate(); err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: row.line, Message: err.Error()})
			continue
		}
		if _, dup := seen[g.ID]; dup {
			report.Rejected = append(report.Rejected, RowError{Line: row.line, Message: fmt.Sprintf("%s: %s", ErrDuplicateID, g.ID)})
			continue
		}
		seen[g.ID] = struct{}{}
		valid = append(valid, g)
	}
	if len(valid) == 0 {
		return report, ErrEmptyImport
	}

	if err := im.glosas.Upsert(ctx, valid); err != nil {
		return report, fmt.Errorf("upsert glosas: %w", err)
	}

	byID := make(map[string]glosa.Glosa, len(valid))
	for _, g := range valid {
		byID[g.ID] = g
	}
	if err := im.ws.MutateGlosas(ctx, func(gs []glosa.Glosa) []glosa.Glosa {
		for i := range gs {
			if g, ok := byID[gs[i].ID]; ok {
				// Imports never clear an existing internal flag.
				if gs[i].RegistradaInternamente {
					g.RegistradaInternamente = true
				}
				gs[i] = g
				delete(byID, g.ID)
			}
		}
		var added []glosa.Glosa
		for _, g := range valid {
			if _, ok := byID[g.ID]; ok {
				added = append(added, g)
			}
		}
		return append(added, gs...)
	}); err != nil {
		im.log.Warn("local cache write failed after import", "error", err)
	}

	report.Imported = len(valid)
	im.log.Info("glosas imported", "imported", report.Imported, "rejected", len(report.Rejected))
	return report, nil
}

func (im *Importer) storeIngresos(ctx context.Context, rows []ingresoRow, rejected []RowError, target seccion.Seccion) (Report, error) {
	report := Report{Kind: recovery.KindIngresos.String(), Rejected: rejected}
	valid := make([]ingreso.Ingreso, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		i := row.ingreso
		if i.ID == "" {
			i.ID = im.newID()
		}
		if i.Fecha == "" {
			i.Fecha = fecha.Format(im.now())
		}
		if i.Seccion == "" {
			i.Seccion = target
		}
		i.Seccion = i.Seccion.Normalize()
		if err := i.Validate(); err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: row.line, Message: err.Error()})
			continue
		}
		if _, dup := seen[i.ID]; dup {
			report.Rejected = append(report.Rejected, RowError{Line: row.line, Message: fmt.Sprintf("%s: %s", ErrDuplicateID, i.ID)})
			continue
		}
		seen[i.ID] = struct{}{}
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		return report, ErrEmptyImport
	}

	if err := im.ingresos.Upsert(ctx, valid); err != nil {
		return report, fmt.Errorf("upsert ingresos: %w", err)
	}

	byID := make(map[string]ingreso.Ingreso, len(valid))
	for _, i := range valid {
		byID[i.ID] = i
	}
	if err := im.ws.MutateIngresos(ctx, func(is []ingreso.Ingreso) []ingreso.Ingreso {
		for idx := range is {
			if i, ok := byID[is[idx].ID]; ok {
				is[idx] = i
				delete(byID, i.ID)
			}
		}
		var added []ingreso.Ingreso
		for _, i := range valid {
			if _, ok := byID[i.ID]; ok {
				added = append(added, i)
			}
		}
		return append(added, is...)
	}); err != nil {
		im.log.Warn("local cache write failed after import", "error", err)
	}

	report.Imported = len(valid)
	im.log.Info("ingresos imported", "imported", report.Imported, "rejected", len(report.Rejected))
	return report, nil
}
