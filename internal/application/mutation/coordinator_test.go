package mutation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"3tcapital/goglosas/internal/adapters/localstore/memory"
	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/localstore"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/infrastructure/metrics"
	"3tcapital/goglosas/internal/testutil"
)

type fixture struct {
	coord    *Coordinator
	ws       *workspace.Workspace
	store    *memory.Store
	glosas   *testutil.MockGlosaRepository
	ingresos *testutil.MockIngresoRepository
}

func newFixture(t *testing.T, seed ...glosa.Glosa) *fixture {
	t.Helper()
	store := memory.New()
	ws := workspace.New(store, testutil.NewNullLogger())
	if len(seed) > 0 {
		require.NoError(t, ws.MutateGlosas(context.Background(), func([]glosa.Glosa) []glosa.Glosa { return seed }))
	}
	f := &fixture{
		ws:       ws,
		store:    store,
		glosas:   &testutil.MockGlosaRepository{},
		ingresos: &testutil.MockIngresoRepository{},
	}
	m := metrics.New(prometheus.NewRegistry(), metrics.Config{})
	f.coord = NewCoordinator(ws, f.glosas, f.ingresos, time.Second, m, testutil.NewNullLogger())
	f.coord.now = func() time.Time { return time.Date(2024, 3, 15, 15, 30, 0, 0, time.UTC) }
	seq := 0
	f.coord.newID = func() string {
		seq++
		return "id-" + string(rune('0'+seq))
	}
	return f
}

func TestAddGlosa(t *testing.T) {
	f := newFixture(t)
	inserted := make(chan []glosa.Glosa, 1)
	f.glosas.InsertFunc = func(ctx context.Context, gs []glosa.Glosa) error {
		inserted <- gs
		return nil
	}

	g, err := f.coord.AddGlosa(context.Background(), testutil.Admin, NewGlosa{
		Factura:    " F-100 ",
		Servicio:   "Consulta",
		ValorGlosa: decimal.NewFromInt(1000),
		TipoGlosa:  glosa.TipoSoportes,
	})
	require.NoError(t, err)
	f.coord.Wait()

	assert.Equal(t, "id-1", g.ID)
	assert.Equal(t, "F-100", g.Factura)
	assert.Equal(t, glosa.EstadoPendiente, g.Estado)
	assert.Equal(t, seccion.Glosas, g.Seccion)
	assert.Equal(t, "15/03/2024, 10:30:00", g.Fecha)
	assert.Equal(t, []glosa.Glosa{g}, f.ws.Glosas())
	assert.Equal(t, []glosa.Glosa{g}, <-inserted)

	cached, err := f.store.Get(context.Background(), localstore.KeyGlosas)
	require.NoError(t, err)
	assert.Contains(t, cached, "F-100")
}

func TestAddGlosa_DuplicateRequiresConfirmation(t *testing.T) {
	existing := testutil.Glosa("g1", "F-1", "Consulta", 500)
	f := newFixture(t, existing)
	in := NewGlosa{Factura: "f-1", Servicio: " consulta", ValorGlosa: decimal.NewFromInt(500), TipoGlosa: glosa.TipoRIPS}

	_, err := f.coord.AddGlosa(context.Background(), testutil.Admin, in)
	assert.ErrorIs(t, err, ErrDuplicateRequiresConfirmation)
	assert.Len(t, f.ws.Glosas(), 1)

	in.Confirmed = true
	_, err = f.coord.AddGlosa(context.Background(), testutil.Admin, in)
	require.NoError(t, err)
	f.coord.Wait()
	assert.Len(t, f.ws.Glosas(), 2)
}

func TestAddGlosa_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.AddGlosa(context.Background(), testutil.Admin, NewGlosa{ValorGlosa: decimal.NewFromInt(-1)})

	var verr *glosa.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
	assert.ErrorIs(t, err, glosa.ErrInvalid)
	assert.Empty(t, f.ws.Glosas())
}

func TestMutations_RequireAdmin(t *testing.T) {
	f := newFixture(t, testutil.Glosa("g1", "F", "S", 1))
	ctx := context.Background()

	_, err := f.coord.AddGlosa(ctx, testutil.Viewer, NewGlosa{Factura: "F"})
	assert.ErrorIs(t, err, session.ErrForbidden)
	_, err = f.coord.UpdateGlosaEstado(ctx, testutil.Viewer, "g1", glosa.EstadoAceptada)
	assert.ErrorIs(t, err, session.ErrForbidden)
	assert.ErrorIs(t, f.coord.DeleteGlosa(ctx, testutil.Viewer, "g1"), session.ErrForbidden)
	_, err = f.coord.DeduplicateGlosas(ctx, session.Session{})
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = f.coord.PromoteInternalFlag(ctx, testutil.Viewer, "g1")
	assert.ErrorIs(t, err, session.ErrForbidden)
}

func TestRemoteFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t, testutil.Glosa("g1", "F", "S", 1))
	f.glosas.UpdateFunc = func(ctx context.Context, id string, patch glosa.Patch) error {
		return errors.New("remote unavailable")
	}

	updated, err := f.coord.UpdateGlosaEstado(context.Background(), testutil.Admin, "g1", glosa.EstadoRespondida)
	require.NoError(t, err)
	f.coord.Wait()

	assert.Equal(t, glosa.EstadoRespondida, updated.Estado)
	got, _ := f.ws.GlosaByID("g1")
	assert.Equal(t, glosa.EstadoRespondida, got.Estado)
	assert.Contains(t, f.ws.Status().LastSyncError, "remote unavailable")
}

func TestUpdateGlosa_CannotResetFlag(t *testing.T) {
	flagged := testutil.Glosa("g1", "F", "S", 1)
	flagged.RegistradaInternamente = true
	f := newFixture(t, flagged)
	var sent atomic.Value
	f.glosas.UpdateFunc = func(ctx context.Context, id string, patch glosa.Patch) error {
		sent.Store(patch)
		return nil
	}

	off := false
	desc := "nueva descripción"
	updated, err := f.coord.UpdateGlosa(context.Background(), testutil.Admin, "g1", glosa.Patch{
		RegistradaInternamente: &off,
		Descripcion:            &desc,
	})
	require.NoError(t, err)
	f.coord.Wait()

	assert.True(t, updated.RegistradaInternamente)
	assert.Equal(t, desc, updated.Descripcion)
	got, _ := f.ws.GlosaByID("g1")
	assert.True(t, got.RegistradaInternamente)
	patch := sent.Load().(glosa.Patch)
	assert.Nil(t, patch.RegistradaInternamente)
}

func TestUpdateGlosa_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.UpdateGlosaEstado(context.Background(), testutil.Admin, "missing", glosa.EstadoAceptada)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateGlosaEstado_RejectsUnknownState(t *testing.T) {
	f := newFixture(t, testutil.Glosa("g1", "F", "S", 1))
	_, err := f.coord.UpdateGlosaEstado(context.Background(), testutil.Admin, "g1", glosa.Estado("Archivada"))
	assert.ErrorIs(t, err, glosa.ErrInvalid)
}

func TestPromoteInternalFlag(t *testing.T) {
	f := newFixture(t, testutil.Glosa("42", "A", "S", 1))
	var calls atomic.Int32
	f.glosas.UpdateFunc = func(ctx context.Context, id string, patch glosa.Patch) error {
		calls.Add(1)
		return nil
	}

	promoted, err := f.coord.PromoteInternalFlag(context.Background(), testutil.Admin, "42")
	require.NoError(t, err)
	assert.True(t, promoted)

	promoted, err = f.coord.PromoteInternalFlag(context.Background(), testutil.Admin, "42")
	require.NoError(t, err)
	assert.False(t, promoted)

	f.coord.Wait()
	assert.Equal(t, int32(1), calls.Load())
	got, _ := f.ws.GlosaByID("42")
	assert.True(t, got.RegistradaInternamente)
}

func TestDeleteGlosa(t *testing.T) {
	f := newFixture(t, testutil.Glosa("g1", "F", "S", 1), testutil.Glosa("g2", "F", "T", 2))
	deleted := make(chan string, 1)
	f.glosas.DeleteFunc = func(ctx context.Context, id string) error {
		deleted <- id
		return nil
	}

	require.NoError(t, f.coord.DeleteGlosa(context.Background(), testutil.Admin, "g1"))
	f.coord.Wait()

	assert.Equal(t, "g1", <-deleted)
	require.Len(t, f.ws.Glosas(), 1)
	assert.Equal(t, "g2", f.ws.Glosas()[0].ID)
	assert.ErrorIs(t, f.coord.DeleteGlosa(context.Background(), testutil.Admin, "g1"), ErrNotFound)
}

func TestDeduplicateGlosas(t *testing.T) {
	seed := []glosa.Glosa{
		testutil.Glosa("a", "F1", "S1", 100),
		testutil.Glosa("b", "F1", "S1", 100),
		testutil.Glosa("c", "F2", "S1", 100),
		testutil.Glosa("d", " f1 ", "s1", 100),
	}

	t.Run("removes every later occurrence in one call", func(t *testing.T) {
		f := newFixture(t, seed...)
		var (
			mu    sync.Mutex
			calls [][]string
		)
		f.glosas.DeleteManyFunc = func(ctx context.Context, ids []string) error {
			mu.Lock()
			calls = append(calls, ids)
			mu.Unlock()
			return nil
		}

		removed, err := f.coord.DeduplicateGlosas(context.Background(), testutil.Admin)
		require.NoError(t, err)

		assert.Equal(t, 2, removed)
		assert.Equal(t, [][]string{{"b", "d"}}, calls)
		ids := []string{}
		for _, g := range f.ws.Glosas() {
			ids = append(ids, g.ID)
		}
		assert.Equal(t, []string{"a", "c"}, ids)
	})

	t.Run("remote failure leaves local state untouched", func(t *testing.T) {
		f := newFixture(t, seed...)
		f.glosas.DeleteManyFunc = func(ctx context.Context, ids []string) error {
			return errors.New("timeout")
		}

		removed, err := f.coord.DeduplicateGlosas(context.Background(), testutil.Admin)
		require.Error(t, err)
		assert.Zero(t, removed)
		assert.Len(t, f.ws.Glosas(), 4)
	})

	t.Run("no duplicates makes no remote call", func(t *testing.T) {
		f := newFixture(t, seed[0], seed[2])
		f.glosas.DeleteManyFunc = func(ctx context.Context, ids []string) error {
			t.Fatal("unexpected remote call")
			return nil
		}
		removed, err := f.coord.DeduplicateGlosas(context.Background(), testutil.Admin)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}

func TestIngresoMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inserted := make(chan ingreso.Ingreso, 1)
	f.ingresos.InsertFunc = func(ctx context.Context, is []ingreso.Ingreso) error {
		inserted <- is[0]
		return nil
	}

	i, err := f.coord.AddIngreso(ctx, testutil.Admin, NewIngreso{
		Factura:         "A",
		ValorAceptado:   decimal.NewFromInt(600),
		ValorNoAceptado: decimal.NewFromInt(100),
		Seccion:         seccion.Medicamentos,
	})
	require.NoError(t, err)
	f.coord.Wait()
	assert.Equal(t, i, <-inserted)
	assert.Equal(t, seccion.Medicamentos, i.Seccion)
	assert.Len(t, f.ws.Ingresos(), 1)

	require.NoError(t, f.coord.DeleteIngreso(ctx, testutil.Admin, i.ID))
	f.coord.Wait()
	assert.Empty(t, f.ws.Ingresos())
	assert.ErrorIs(t, f.coord.DeleteIngreso(ctx, testutil.Admin, i.ID), ErrNotFound)

	_, err = f.coord.AddIngreso(ctx, testutil.Admin, NewIngreso{Factura: "A", ValorAceptado: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, ingreso.ErrInvalid)
}
