package report

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"3tcapital/goglosas/internal/adapters/localstore/memory"
	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/testutil"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	ws := workspace.New(memory.New(), testutil.NewNullLogger())

	a := testutil.Glosa("g1", "A", "Consulta", 1000)
	b := testutil.Glosa("g2", "B", "Consulta", 400)
	b.Fecha = "20/03/2024, 09:00:00"
	r := testutil.Glosa("g3", "R", "Consulta", 50)
	r.Seccion = seccion.Ratificadas

	require.NoError(t, ws.ReplaceAll(context.Background(),
		[]glosa.Glosa{a, b, r},
		[]ingreso.Ingreso{testutil.Ingreso("i1", "A", 600, 100)},
		time.Now()))

	h := NewHandler(ws, testutil.NewNullLogger())
	h.now = func() time.Time { return time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC) }
	return h
}

func TestHandler_Statistics(t *testing.T) {
	h := newHandler(t)

	w := httptest.NewRecorder()
	h.Statistics(w, testutil.NewRequest(http.MethodGet, "/api/estadisticas", nil, &testutil.Admin))

	var body StatisticsResponse
	testutil.DecodeJSON(t, w, http.StatusOK, &body)
	assert.Equal(t, "GLOSAS", body.Seccion)
	assert.Equal(t, 2, body.Estadisticas.CantidadGlosas)
	assert.True(t, body.Estadisticas.TotalGlosado.Equal(decimal.NewFromInt(1400)))

	w = httptest.NewRecorder()
	h.Statistics(w, testutil.NewRequest(http.MethodGet, "/api/estadisticas", nil, &testutil.Viewer))
	testutil.DecodeJSON(t, w, http.StatusOK, &body)
	assert.Equal(t, "RATIFICADAS", body.Seccion)
	assert.Equal(t, 1, body.Estadisticas.CantidadGlosas)
}

func TestHandler_Consolidado(t *testing.T) {
	h := newHandler(t)

	w := httptest.NewRecorder()
	h.Consolidado(w, testutil.NewRequest(http.MethodGet, "/api/consolidado", nil, &testutil.Admin))

	var body ConsolidadoResponse
	testutil.DecodeJSON(t, w, http.StatusOK, &body)
	require.Len(t, body.Facturas, 2)
	assert.Equal(t, "B", body.Facturas[0].Factura, "most recent activity first")

	a := body.Facturas[1]
	assert.True(t, a.Diferencia.Equal(decimal.NewFromInt(300)))
	assert.True(t, a.Aceptada)
}

func TestHandler_Consolidado_Filters(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"by factura", "/api/consolidado?factura=a", []string{"A"}},
		{"no match", "/api/consolidado?factura=zzz", nil},
		{"limit", "/api/consolidado?limite=1", []string{"B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Consolidado(w, testutil.NewRequest(http.MethodGet, tt.path, nil, &testutil.Admin))

			var body ConsolidadoResponse
			testutil.DecodeJSON(t, w, http.StatusOK, &body)
			var got []string
			for _, row := range body.Facturas {
				got = append(got, row.Factura)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler_ConsolidadoXLSX(t *testing.T) {
	h := newHandler(t)

	w := httptest.NewRecorder()
	h.ConsolidadoXLSX(w, testutil.NewRequest(http.MethodGet, "/api/consolidado.xlsx", nil, &testutil.Admin))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "consolidado-glosas-20240321.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Consolidado")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestHandler_RequiresSession(t *testing.T) {
	h := newHandler(t)

	for _, fn := range []http.HandlerFunc{h.Statistics, h.Consolidado, h.ConsolidadoXLSX} {
		w := httptest.NewRecorder()
		fn(w, testutil.NewRequest(http.MethodGet, "/", nil, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}
