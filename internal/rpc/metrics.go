package rpc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes a Store-request counter and per-peer audit outcome
// counters on /metrics, per spec §4.7. It has no reputation metric.
type Metrics struct {
	registry     *prometheus.Registry
	storesTotal  prometheus.Counter
	auditsPassed *prometheus.CounterVec
	auditsFailed *prometheus.CounterVec
}

// NewMetrics registers the façade's counters against reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		storesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "kiss_store_requests_total",
			Help: "Number of Store RPCs served.",
		}),
		auditsPassed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kiss_audit_passed_total",
			Help: "Number of PoR audits that passed, by custodian peer id.",
		}, []string{"peer_id"}),
		auditsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kiss_audit_failed_total",
			Help: "Number of PoR audits that failed, by custodian peer id.",
		}, []string{"peer_id"}),
	}
}

// RecordStore increments the Store-RPC counter.
func (m *Metrics) RecordStore() { m.storesTotal.Inc() }

// RecordVerify records a challenge outcome for peerID.
func (m *Metrics) RecordVerify(peerID string, passed bool) {
	if passed {
		m.auditsPassed.WithLabelValues(peerID).Inc()
		return
	}
	m.auditsFailed.WithLabelValues(peerID).Inc()
}

// Handler returns the HTTP handler to mount at /metrics, serving m's
// registry rather than the global default one.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
