// Package metrics exposes Prometheus counters for uploads, downloads, scans
// and trash purges. All methods are safe on a nil *Metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filevault"

// Upload modes.
const (
	ModeSingle  = "single"
	ModeChunked = "chunked"
)

type Metrics struct {
	registry *prometheus.Registry

	uploads         *prometheus.CounterVec
	uploadedBytes   prometheus.Counter
	downloads       *prometheus.CounterVec
	scans           *prometheus.CounterVec
	purges          *prometheus.CounterVec
	sessionsExpired prometheus.Counter
}

// New registers all collectors, plus Go runtime and process collectors, on a
// private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by mode and outcome.",
		}, []string{"mode", "result"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Plaintext bytes accepted by successful uploads.",
		}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download attempts by outcome.",
		}, []string{"result"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Virus scan verdicts.",
		}, []string{"verdict"}),
		purges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trash_purges_total",
			Help:      "Trashed files handled by the reaper.",
		}, []string{"result"}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_sessions_expired_total",
			Help:      "Multipart upload sessions aborted after their TTL.",
		}),
	}
	m.registry.MustRegister(
		m.uploads, m.uploadedBytes, m.downloads, m.scans, m.purges, m.sessionsExpired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result maps an operation error to a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, common.ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, common.ErrInfected):
		return "infected"
	case errors.Is(err, common.ErrScanUnavailable):
		return "scan_unavailable"
	case errors.Is(err, common.ErrSettingsMissing):
		return "settings_missing"
	case errors.Is(err, common.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrCorruptPayload), errors.Is(err, common.ErrEncryptionParamsMissing):
		return "integrity"
	case errors.Is(err, common.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveUpload(mode string, size int64, err error) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(mode, Result(err)).Inc()
	if err == nil && size > 0 {
		m.uploadedBytes.Add(float64(size))
	}
}

func (m *Metrics) ObserveDownload(err error) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(Result(err)).Inc()
}

func (m *Metrics) ObserveScan(verdict string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObservePurge(ok bool) {
	if m == nil {
		return
	}
	result := "purged"
	if !ok {
		result = "failed"
	}
	m.purges.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionsExpired.Inc()
}
