package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/fecha"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/infrastructure/metrics"
)

var (
	// ErrDuplicateRequiresConfirmation is returned by AddGlosa when a glosa
	// with the same factura, servicio and valor already exists and the
	// caller has not confirmed.
	ErrDuplicateRequiresConfirmation = errors.New("ya existe una glosa con la misma factura, servicio y valor")
	// ErrNotFound is returned when the target record is not in the workspace.
	ErrNotFound = errors.New("registro no encontrado")
)

const defaultRemoteTimeout = 30 * time.Second

// NewGlosa carries the caller-supplied fields of a glosa.
type NewGlosa struct {
	Factura       string          `json:"factura"`
	Servicio      string          `json:"servicio"`
	OrdenServicio string          `json:"orden_servicio"`
	ValorGlosa    decimal.Decimal `json:"valor_glosa"`
	Descripcion   string          `json:"descripcion"`
	TipoGlosa     glosa.Tipo      `json:"tipo_glosa"`
	Estado        glosa.Estado    `json:"estado"`
	Seccion       seccion.Seccion `json:"seccion"`
	// Confirmed acknowledges that a duplicate may be created.
	Confirmed bool `json:"confirmado"`
}

// NewIngreso carries the caller-supplied fields of an ingreso.
type NewIngreso struct {
	Factura         string          `json:"factura"`
	ValorAceptado   decimal.Decimal `json:"valor_aceptado"`
	ValorNoAceptado decimal.Decimal `json:"valor_no_aceptado"`
	Seccion         seccion.Seccion `json:"seccion"`
}

// Coordinator applies mutations to the workspace immediately and persists
// them remotely in the background. A failed remote write is logged and
// recorded as the last sync error; local state is never rolled back.
type Coordinator struct {
	ws            *workspace.Workspace
	glosas        glosa.Repository
	ingresos      ingreso.Repository
	metrics       *metrics.Sync
	log           *slog.Logger
	remoteTimeout time.Duration

	now   func() time.Time
	newID func() string

	wg sync.WaitGroup
}

// NewCoordinator wires a Coordinator. remoteTimeout bounds each background
// write; zero means 30s.
func NewCoordinator(ws *workspace.Workspace, glosas glosa.Repository, ingresos ingreso.Repository, remoteTimeout time.Duration, m *metrics.Sync, log *slog.Logger) *Coordinator {
	if remoteTimeout <= 0 {
		remoteTimeout = defaultRemoteTimeout
	}
	return &Coordinator{
		ws:            ws,
		glosas:        glosas,
		ingresos:      ingresos,
		metrics:       m,
		log:           log.With("component", "mutation"),
		remoteTimeout: remoteTimeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Wait blocks until every background remote write has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// AddGlosa creates a glosa dated now and returns it.
func (c *Coordinator) AddGlosa(ctx context.Context, sess session.Session, in NewGlosa) (glosa.Glosa, error) {
	if err := sess.RequireAdmin(); err != nil {
		return glosa.Glosa{}, err
	}

	g := glosa.Glosa{
		ID:            c.newID(),
		Factura:       strings.TrimSpace(in.Factura),
		Servicio:      strings.TrimSpace(in.Servicio),
		OrdenServicio: strings.TrimSpace(in.OrdenServicio),
		ValorGlosa:    in.ValorGlosa,
		Descripcion:   in.Descripcion,
		TipoGlosa:     in.TipoGlosa,
		Estado:        in.Estado,
		Fecha:         fecha.Format(c.now()),
		Seccion:       in.Seccion.Normalize(),
	}
	if g.Estado == "" {
		g.Estado = glosa.EstadoPendiente
	}
	if err := g.Validate(); err != nil {
		return glosa.Glosa{}, err
	}
	if !in.Confirmed && glosa.HasDuplicate(c.ws.Glosas(), g) {
		return glosa.Glosa{}, ErrDuplicateRequiresConfirmation
	}

	if err := c.ws.MutateGlosas(ctx, func(gs []glosa.Glosa) []glosa.Glosa {
		return append([]glosa.Glosa{g}, gs...)
	}); err != nil {
		c.log.Warn("local cache write failed", "operation", "add_glosa", "error", err)
	}

	c.background(ctx, "glosas", "insert", func(ctx context.Context) error {
		return c.glosas.Insert(ctx, []glosa.Glosa{g})
	})
	return g, nil
}

// UpdateGlosaEstado moves a glosa to a new workflow state.
func (c *Coordinator) UpdateGlosaEstado(ctx context.Context, sess session.Session, id string, estado glosa.Estado) (glosa.Glosa, error) {
	if !estado.Valid() {
		return glosa.Glosa{}, &glosa.ValidationError{Problems: []string{fmt.Sprintf("estado desconocido [%s]", estado)}}
	}
	return c.UpdateGlosa(ctx, sess, id, glosa.EstadoPatch(estado))
}

// UpdateGlosa applies patch to a glosa. A patch can never clear the
// internal-registration flag.
func (c *Coordinator) UpdateGlosa(ctx context.Context, sess session.Session, id string, patch glosa.Patch) (glosa.Glosa, error) {
	if err := sess.RequireAdmin(); err != nil {
		return glosa.Glosa{}, err
	}
	current, ok := c.ws.GlosaByID(id)
	if !ok {
		return glosa.Glosa{}, ErrNotFound
	}
	if patch.RegistradaInternamente != nil && !*patch.RegistradaInternamente {
		patch.RegistradaInternamente = nil
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return glosa.Glosa{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	if err := c.ws.MutateGlosas(ctx, func(gs []glosa.Glosa) []glosa.Glosa {
		for i := range gs {
			if gs[i].ID == id {
				gs[i] = patch.Apply(gs[i])
			}
		}
		return gs
	}); err != nil {
		c.log.Warn("local cache write failed", "operation", "update_glosa", "id", id, "error", err)
	}

	c.background(ctx, "glosas", "update", func(ctx context.Context) error {
		return c.glosas.Update(ctx, id, patch)
	})
	return updated, nil
}

// PromoteInternalFlag marks a glosa as internally registered. It reports
// false without doing anything when the flag is already set.
func (c *Coordinator) PromoteInternalFlag(ctx context.Context, sess session.Session, id string) (bool, error) {
	if err := sess.RequireAdmin(); err != nil {
		return false, err
	}
	current, ok := c.ws.GlosaByID(id)
	if !ok {
		return false, ErrNotFound
	}
	if current.RegistradaInternamente {
		return false, nil
	}

	if _, err := c.UpdateGlosa(ctx, sess, id, glosa.RegistroInternoPatch()); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteGlosa removes a glosa.
func (c *Coordinator) DeleteGlosa(ctx context.Context, sess session.Session, id string) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	if _, ok := c.ws.GlosaByID(id); !ok {
		return ErrNotFound
	}

	if err := c.ws.MutateGlosas(ctx, func(gs []glosa.Glosa) []glosa.Glosa {
		return removeGlosas(gs, map[string]struct{}{id: {}})
	}); err != nil {
		c.log.Warn("local cache write failed", "operation", "delete_glosa", "id", id, "error", err)
	}

	c.background(ctx, "glosas", "delete", func(ctx context.Context) error {
		return c.glosas.Delete(ctx, id)
	})
	return nil
}

// DeduplicateGlosas keeps the first glosa of every duplicate group and
// deletes the rest. The remote delete runs first, in a single call; local
// state only changes once it succeeds.
func (c *Coordinator) DeduplicateGlosas(ctx context.Context, sess session.Session) (int, error) {
	if err := sess.RequireAdmin(); err != nil {
		return 0, err
	}

	_, removed := glosa.Dedupe(c.ws.Glosas())
	if len(removed) == 0 {
		return 0, nil
	}

	if err := c.glosas.DeleteMany(ctx, removed); err != nil {
		c.metrics.MutationFailed("glosas", "delete_many")
		c.ws.SetSyncError(err)
		return 0, fmt.Errorf("delete duplicated glosas: %w", err)
	}

	drop := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	if err := c.ws.MutateGlosas(ctx, func(gs []glosa.Glosa) []glosa.Glosa {
		return removeGlosas(gs, drop)
	}); err != nil {
		c.log.Warn("local cache write failed", "operation", "deduplicate", "error", err)
	}

	c.log.Info("duplicated glosas removed", "count", len(removed))
	return len(removed), nil
}

// AddIngreso records a payment dated now.
func (c *Coordinator) AddIngreso(ctx context.Context, sess session.Session, in NewIngreso) (ingreso.Ingreso, error) {
	if err := sess.RequireAdmin(); err != nil {
		return ingreso.Ingreso{}, err
	}

	i := ingreso.Ingreso{
		ID:              c.newID(),
		Factura:         strings.TrimSpace(in.Factura),
		ValorAceptado:   in.ValorAceptado,
		ValorNoAceptado: in.ValorNoAceptado,
		Fecha:           fecha.Format(c.now()),
		Seccion:         in.Seccion.Normalize(),
	}
	if err := i.Validate(); err != nil {
		return ingreso.Ingreso{}, err
	}

	if err := c.ws.MutateIngresos(ctx, func(is []ingreso.Ingreso) []ingreso.Ingreso {
		return append([]ingreso.Ingreso{i}, is...)
	}); err != nil {
		c.log.Warn("local cache write failed", "operation", "add_ingreso", "error", err)
	}

	c.background(ctx, "ingresos", "insert", func(ctx context.Context) error {
		return c.ingresos.Insert(ctx, []ingreso.Ingreso{i})
	})
	return i, nil
}

// DeleteIngreso removes a payment.
func (c *Coordinator) DeleteIngreso(ctx context.Context, sess session.Session, id string) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}

	found := false
	for _, i := range c.ws.Ingresos() {
		if i.ID == id {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	if err := c.ws.MutateIngresos(ctx, func(is []ingreso.Ingreso) []ingreso.Ingreso {
		out := is[:0]
		for _, i := range is {
			if i.ID != id {
				out = append(out, i)
			}
		}
		return out
	}); err != nil {
		c.log.Warn("local cache write failed", "operation", "delete_ingreso", "id", id, "error", err)
	}

	c.background(ctx, "ingresos", "delete", func(ctx context.Context) error {
		return c.ingresos.Delete(ctx, id)
	})
	return nil
}

// background runs fn detached from the caller's cancellation.
func (c *Coordinator) background(parent context.Context, collection, operation string, fn func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("panic in background remote write",
					"panic", r,
					"collection", collection,
					"operation", operation,
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.remoteTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			c.metrics.MutationFailed(collection, operation)
			c.ws.SetSyncError(err)
			c.log.Error("background remote write failed, local state kept",
				"collection", collection,
				"operation", operation,
				"error", err,
			)
		}
	}()
}

func removeGlosas(gs []glosa.Glosa, drop map[string]struct{}) []glosa.Glosa {
	out := gs[:0]
	for _, g := range gs {
		if _, ok := drop[g.ID]; !ok {
			out = append(out, g)
		}
	}
	return out
}
