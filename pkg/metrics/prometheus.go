// Package metrics provides Prometheus metrics for the weighbridge service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Default metric dimensions.
const (
	defaultNamespace = "weighbridge"
)

// Manager owns every Prometheus collector for the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Telemetry channel
	samplesRead     prometheus.Counter
	readErrors      prometheus.Counter
	stableReadings  prometheus.Counter
	connectionsLost prometheus.Counter
	scaleConnected  prometheus.Gauge

	// Ledger
	weighingsRecorded *prometheus.CounterVec
	ledgerErrors      prometheus.Counter
	ledgerLatency     prometheus.Histogram

	// Sync gateway
	sapConnected      prometheus.Gauge
	submissions       prometheus.Counter
	submissionErrors  prometheus.Counter
	submissionLatency prometheus.Histogram

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager builds a Manager and registers all collectors on its registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: m.namespace, Name: name, Help: help}
	}
	gauge := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{Namespace: m.namespace, Name: name, Help: help}
	}
	histogram := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      help,
			Buckets:   m.histogramBuckets,
		}
	}

	m.samplesRead = prometheus.NewCounter(factory("scale_samples_read_total", "Raw weight samples read from the scale."))
	m.readErrors = prometheus.NewCounter(factory("scale_read_errors_total", "Transient read failures in the continuous loop."))
	m.stableReadings = prometheus.NewCounter(factory("scale_stable_readings_total", "Stable readings emitted by the dwell detector."))
	m.connectionsLost = prometheus.NewCounter(factory("scale_connections_lost_total", "Terminal connection losses of the scale link."))
	m.scaleConnected = prometheus.NewGauge(gauge("scale_connected", "1 while the scale link is open."))

	m.weighingsRecorded = prometheus.NewCounterVec(
		factory("weighings_recorded_total", "Weighing rows persisted, by kind."),
		[]string{"kind"},
	)
	m.ledgerErrors = prometheus.NewCounter(factory("ledger_errors_total", "Failed ledger operations."))
	m.ledgerLatency = prometheus.NewHistogram(histogram("ledger_op_duration_ms", "Ledger operation latency in milliseconds."))

	m.sapConnected = prometheus.NewGauge(gauge("sap_connected", "1 while the SAP gateway is connected."))
	m.submissions = prometheus.NewCounter(factory("sap_submissions_total", "Weighings accepted by SAP."))
	m.submissionErrors = prometheus.NewCounter(factory("sap_submission_errors_total", "Failed SAP submissions."))
	m.submissionLatency = prometheus.NewHistogram(histogram("sap_submission_duration_ms", "SAP submission round trip in milliseconds."))

	m.httpRequests = prometheus.NewCounterVec(
		factory("http_requests_total", "HTTP requests by endpoint, method and status."),
		[]string{"endpoint", "method", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		histogram("http_request_duration_ms", "HTTP request latency in milliseconds."),
		[]string{"endpoint", "method"},
	)

	m.registry.MustRegister(
		m.samplesRead, m.readErrors, m.stableReadings, m.connectionsLost, m.scaleConnected,
		m.weighingsRecorded, m.ledgerErrors, m.ledgerLatency,
		m.sapConnected, m.submissions, m.submissionErrors, m.submissionLatency,
		m.httpRequests, m.httpRequestDuration,
	)

	return m
}

// Registry exposes the manager's registry for HTTP scraping.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

func def() *Manager {
	defaultOnce.Do(func() {
		if defaultManager == nil {
			defaultManager = NewManager()
		}
	})
	return defaultManager
}

// GetRegistry returns the default manager's registry.
func GetRegistry() *prometheus.Registry { return def().Registry() }

// Telemetry channel helpers.
func RecordSampleRead()            { def().samplesRead.Inc() }
func RecordReadError()             { def().readErrors.Inc() }
func RecordStableReading()         { def().stableReadings.Inc() }
func RecordConnectionLost()        { def().connectionsLost.Inc() }
func UpdateScaleConnected(up bool) { def().scaleConnected.Set(boolGauge(up)) }

// Ledger helpers.
func RecordWeighingRecorded(kind string) { def().weighingsRecorded.WithLabelValues(kind).Inc() }
func RecordLedgerError()                 { def().ledgerErrors.Inc() }
func RecordLedgerLatency(ms float64)     { def().ledgerLatency.Observe(ms) }

// Sync gateway helpers.
func UpdateSAPConnected(up bool)         { def().sapConnected.Set(boolGauge(up)) }
func RecordSubmission()                  { def().submissions.Inc() }
func RecordSubmissionError()             { def().submissionErrors.Inc() }
func RecordSubmissionLatency(ms float64) { def().submissionLatency.Observe(ms) }

// HTTP helpers.
func RecordHTTPRequest(endpoint, method, status string) {
	def().httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	def().httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

func boolGauge(up bool) float64 {
	if up {
		return 1
	}
	return 0
}
