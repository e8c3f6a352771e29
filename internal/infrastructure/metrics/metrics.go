package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

// Sync captures reconciliation and background persistence signals.
// A nil *Sync is valid and records nothing.
type Sync struct {
	fetchAttempts    prometheus.Counter
	fetchFailures    prometheus.Counter
	fetchDuration    prometheus.Histogram
	mutationFailures *prometheus.CounterVec
	recoveredFlags   prometheus.Counter
	syncedFlags      prometheus.Counter
	lastSync         prometheus.Gauge
	remoteRequests   *prometheus.CounterVec
	remoteDuration   *prometheus.HistogramVec
}

// New registers the sync metrics on registerer.
func New(registerer prometheus.Registerer, cfg Config) *Sync {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "glosas"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Sync{
		fetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "glosas_fetch_attempts_total",
			Help:        "Remote fetch attempts including retries.",
			ConstLabels: constLabels,
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "glosas_fetch_failures_total",
			Help:        "Fetch-and-merge runs that exhausted every retry.",
			ConstLabels: constLabels,
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "glosas_fetch_duration_seconds",
			Help:        "Latency of a single remote fetch attempt.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			ConstLabels: constLabels,
		}),
		mutationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "glosas_remote_mutation_failures_total",
			Help:        "Background remote writes that failed after the local state was updated.",
			ConstLabels: constLabels,
		}, []string{"collection", "operation"}),
		recoveredFlags: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "glosas_recovered_flags_total",
			Help:        "Internal-registration flags restored from local storage.",
			ConstLabels: constLabels,
		}),
		syncedFlags: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "glosas_synced_flags_total",
			Help:        "Internal-registration flags pushed to the remote store.",
			ConstLabels: constLabels,
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "glosas_last_successful_sync_timestamp_seconds",
			Help:        "Unix time of the last successful fetch-and-merge.",
			ConstLabels: constLabels,
		}),
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "glosas_remote_requests_total",
			Help:        "HTTP requests issued to the remote record store by status code.",
			ConstLabels: constLabels,
		}, []string{"operation", "code"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "glosas_remote_request_duration_seconds",
			Help:        "Latency of HTTP requests to the remote record store.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"operation"}),
	}

	registerer.MustRegister(
		m.fetchAttempts,
		m.fetchFailures,
		m.fetchDuration,
		m.mutationFailures,
		m.recoveredFlags,
		m.syncedFlags,
		m.lastSync,
		m.remoteRequests,
		m.remoteDuration,
	)
	return m
}

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Sync) FetchAttempt(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchAttempts.Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Sync) FetchFailed() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

func (m *Sync) SyncSucceeded(at time.Time) {
	if m == nil {
		return
	}
	m.lastSync.Set(float64(at.Unix()))
}

func (m *Sync) MutationFailed(collection, operation string) {
	if m == nil {
		return
	}
	m.mutationFailures.WithLabelValues(collection, operation).Inc()
}

func (m *Sync) FlagsRecovered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recoveredFlags.Add(float64(n))
}

func (m *Sync) FlagsSynced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.syncedFlags.Add(float64(n))
}

// RemoteRequest records one HTTP call to the remote store. A transport
// failure is counted under code "error".
func (m *Sync) RemoteRequest(operation string, status int, d time.Duration, err error) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	if err != nil {
		code = "error"
	}
	m.remoteRequests.WithLabelValues(operation, code).Inc()
	m.remoteDuration.WithLabelValues(operation).Observe(d.Seconds())
}
