package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes transfer and HTTP counters on a dedicated Prometheus
// registry, served at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	downloads           *prometheus.CounterVec
	downloadBytes       prometheus.Counter
	deviceTransfers     *prometheus.CounterVec
	deviceTransferBytes prometheus.Counter
	deviceRemovals      *prometheus.CounterVec

	activeOps   prometheus.Gauge
	queueDepth  *prometheus.GaugeVec
	transferDur *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podsync_http_requests_total",
			Help: "HTTP requests handled, by method and status code",
		}, []string{"method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "podsync_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podsync_downloads_total",
			Help: "Episode downloads, by result",
		}, []string{"result"}),
		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "podsync_download_bytes_total",
			Help: "Bytes fetched by episode downloads",
		}),
		deviceTransfers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podsync_device_transfers_total",
			Help: "Episode copies onto devices, by result",
		}, []string{"result"}),
		deviceTransferBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "podsync_device_transfer_bytes_total",
			Help: "Bytes copied onto devices",
		}),
		deviceRemovals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podsync_device_removals_total",
			Help: "Episode removals from devices, by result",
		}, []string{"result"}),
		activeOps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "podsync_active_operations",
			Help: "Downloads and transfers currently running",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "podsync_queue_entries",
			Help: "Download queue entries, by status",
		}, []string{"status"}),
		transferDur: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "podsync_transfer_duration_seconds",
			Help:    "Duration of downloads and device copies",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) OpStarted() {
	m.activeOps.Inc()
}

func (m *Metrics) OpFinished() {
	m.activeOps.Dec()
}

func (m *Metrics) RecordDownload(success bool, bytes uint64, duration time.Duration) {
	m.downloads.WithLabelValues(resultLabel(success)).Inc()
	if success {
		m.downloadBytes.Add(float64(bytes))
	}
	m.transferDur.WithLabelValues("download").Observe(duration.Seconds())
}

func (m *Metrics) RecordDeviceTransfer(success bool, bytes uint64, duration time.Duration) {
	m.deviceTransfers.WithLabelValues(resultLabel(success)).Inc()
	if success {
		m.deviceTransferBytes.Add(float64(bytes))
	}
	m.transferDur.WithLabelValues("device_transfer").Observe(duration.Seconds())
}

func (m *Metrics) RecordDeviceRemoval(success bool) {
	m.deviceRemovals.WithLabelValues(resultLabel(success)).Inc()
}

// SetQueueDepth publishes the latest queue counters
func (m *Metrics) SetQueueDepth(pending, processing, completed, failed int64) {
	m.queueDepth.WithLabelValues("pending").Set(float64(pending))
	m.queueDepth.WithLabelValues("processing").Set(float64(processing))
	m.queueDepth.WithLabelValues("completed").Set(float64(completed))
	m.queueDepth.WithLabelValues("failed").Set(float64(failed))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
