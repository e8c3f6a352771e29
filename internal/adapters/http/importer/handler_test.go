package importer

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"3tcapital/goglosas/internal/adapters/localstore/memory"
	"3tcapital/goglosas/internal/application/transfer"
	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/testutil"
)

type fixture struct {
	router   http.Handler
	ws       *workspace.Workspace
	glosas   *testutil.MockGlosaRepository
	ingresos *testutil.MockIngresoRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws := workspace.New(memory.New(), testutil.NewNullLogger())
	f := &fixture{ws: ws, glosas: &testutil.MockGlosaRepository{}, ingresos: &testutil.MockIngresoRepository{}}
	h := NewHandler(transfer.NewImporter(ws, f.glosas, f.ingresos, testutil.NewNullLogger()), 1<<20, testutil.NewNullLogger())

	r := chi.NewRouter()
	r.Post("/api/import/{tipo}", h.Import)
	f.router = r
	return f
}

func (f *fixture) post(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestImport_GlosasCSV(t *testing.T) {
	f := newFixture(t)
	csv := "factura;servicio;valor_glosa;tipo_glosa\nFE-1;Consulta;1.500;Tarifas\nFE-2;Cirugía;abc;RIPS\n"

	req := testutil.NewRequest(http.MethodPost, "/api/import/glosas?seccion=RATIFICADAS", csv, &testutil.Admin)
	req.Header.Set("Content-Type", "text/csv")

	var report transfer.Report
	testutil.DecodeJSON(t, f.post(req), http.StatusOK, &report)
	assert.Equal(t, "glosas", report.Kind)
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 3, report.Rejected[0].Line)

	gs := f.ws.Glosas()
	require.Len(t, gs, 1)
	assert.Equal(t, seccion.Ratificadas, gs[0].Seccion)
}

func TestImport_IngresosMultipart(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("archivo", "ingresos.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("factura,valor_aceptado,valor_no_aceptado\nFE-1,1000,200\n"))
	require.NoError(t, mw.Close())

	req := testutil.NewRequest(http.MethodPost, "/api/import/ingresos", &buf, &testutil.Admin)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var report transfer.Report
	testutil.DecodeJSON(t, f.post(req), http.StatusOK, &report)
	assert.Equal(t, "ingresos", report.Kind)
	assert.Equal(t, 1, report.Imported)
	assert.Len(t, f.ws.Ingresos(), 1)
}

func TestImport_JSON(t *testing.T) {
	f := newFixture(t)
	var upserted []glosa.Glosa
	f.glosas.UpsertFunc = func(ctx context.Context, gs []glosa.Glosa) error {
		upserted = gs
		return nil
	}

	raw := `[{"factura":"FE-1","servicio":"Consulta","valor_glosa":100,"registrada_internamente":true}]`
	var report transfer.Report
	testutil.DecodeJSON(t, f.post(testutil.NewRequest(http.MethodPost, "/api/import/glosas", raw, &testutil.Admin)), http.StatusOK, &report)

	assert.Equal(t, 1, report.Imported)
	require.Len(t, upserted, 1)
	assert.True(t, upserted[0].RegistradaInternamente)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		sess   *session.Session
		status int
	}{
		{"unknown kind", "/api/import/facturas", "x", &testutil.Admin, http.StatusNotFound},
		{"viewer", "/api/import/glosas", "factura,valor_glosa\nA,1\n", &testutil.Viewer, http.StatusForbidden},
		{"no session", "/api/import/glosas", "factura,valor_glosa\nA,1\n", nil, http.StatusUnauthorized},
		{"empty body", "/api/import/glosas", "   ", &testutil.Admin, http.StatusBadRequest},
		{"missing column", "/api/import/glosas", "servicio,valor_glosa\nA,1\n", &testutil.Admin, http.StatusBadRequest},
		{"json kind mismatch", "/api/import/glosas", `[{"factura":"A","valor_aceptado":1}]`, &testutil.Admin, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.post(testutil.NewRequest(http.MethodPost, tt.path, tt.body, tt.sess))
			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, f.ws.Glosas())
		})
	}
}

func TestImport_RemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.ingresos.UpsertFunc = func(ctx context.Context, is []ingreso.Ingreso) error {
		return errors.New("connection reset")
	}

	w := f.post(testutil.NewRequest(http.MethodPost, "/api/import/ingresos", "factura,valor_aceptado\nFE-1,10\n", &testutil.Admin))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, f.ws.Ingresos())
}
