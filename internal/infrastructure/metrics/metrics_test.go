package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, Config{ServiceName: "glosas", Environment: "test"})

	m.FetchAttempt(150 * time.Millisecond)
	m.FetchAttempt(time.Second)
	m.FetchFailed()
	m.MutationFailed("glosas", "update")
	m.MutationFailed("glosas", "update")
	m.FlagsRecovered(3)
	m.FlagsRecovered(0)
	m.FlagsSynced(2)
	m.SyncSucceeded(time.Unix(1700000000, 0))
	m.RemoteRequest("glosas", 200, 10*time.Millisecond, nil)
	m.RemoteRequest("glosas", 0, time.Millisecond, errors.New("refused"))

	assert.Equal(t, 2.0, promtest.ToFloat64(m.fetchAttempts))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.fetchFailures))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.mutationFailures.WithLabelValues("glosas", "update")))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.recoveredFlags))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.syncedFlags))
	assert.Equal(t, 1700000000.0, promtest.ToFloat64(m.lastSync))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.remoteRequests.WithLabelValues("glosas", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.remoteRequests.WithLabelValues("glosas", "error")))
}

func TestSync_NilIsNoop(t *testing.T) {
	var m *Sync
	assert.NotPanics(t, func() {
		m.FetchAttempt(time.Second)
		m.FetchFailed()
		m.SyncSucceeded(time.Now())
		m.MutationFailed("ingresos", "delete")
		m.FlagsRecovered(1)
		m.FlagsSynced(1)
		m.RemoteRequest("glosas", 500, time.Second, nil)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, Config{})
	m.FetchFailed()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `glosas_fetch_failures_total{env="unknown",service="glosas"} 1`), body)
}
