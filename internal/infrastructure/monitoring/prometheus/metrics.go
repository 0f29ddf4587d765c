// Package prometheus exposes the engine's operational counters and
// histograms.  A nil *Metrics is valid everywhere and records nothing, so
// tests and CLI runs skip registration entirely.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the engine records.
type Metrics struct {
	alertsCreated     *prometheus.CounterVec
	alertTransitions  *prometheus.CounterVec
	overdueSwept      prometheus.Counter
	noticeTransitions *prometheus.CounterVec
	noticesClaimed    prometheus.Histogram
	renderDuration    prometheus.Histogram
	renderBytes       prometheus.Histogram
	eventsPublished   *prometheus.CounterVec
	eventsFailed      *prometheus.CounterVec
}

// New builds and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satavisos",
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Alerts created, by severity.",
		}, []string{"severity"}),
		alertTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satavisos",
			Subsystem: "alerts",
			Name:      "transitions_total",
			Help:      "Alert status transitions, by target status.",
		}, []string{"to"}),
		overdueSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "satavisos",
			Subsystem: "alerts",
			Name:      "overdue_swept_total",
			Help:      "Alerts flipped to OVERDUE by the lazy sweep.",
		}),
		noticeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satavisos",
			Subsystem: "notices",
			Name:      "transitions_total",
			Help:      "Notice status transitions, by target status.",
		}, []string{"to"}),
		noticesClaimed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "satavisos",
			Subsystem: "notices",
			Name:      "claimed_alerts",
			Help:      "Alerts claimed per notice creation.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "satavisos",
			Subsystem: "reporting",
			Name:      "render_duration_seconds",
			Help:      "Regulatory document render latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		renderBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "satavisos",
			Subsystem: "reporting",
			Name:      "render_bytes",
			Help:      "Rendered document size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satavisos",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published, by type.",
		}, []string{"type"}),
		eventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satavisos",
			Subsystem: "events",
			Name:      "failed_total",
			Help:      "Domain event publish failures, by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(
		m.alertsCreated,
		m.alertTransitions,
		m.overdueSwept,
		m.noticeTransitions,
		m.noticesClaimed,
		m.renderDuration,
		m.renderBytes,
		m.eventsPublished,
		m.eventsFailed,
	)
	return m
}

func (m *Metrics) AlertCreated(severity string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(severity).Inc()
}

func (m *Metrics) AlertTransition(to string) {
	if m == nil {
		return
	}
	m.alertTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) OverdueSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.overdueSwept.Add(float64(n))
}

func (m *Metrics) NoticeTransition(to string) {
	if m == nil {
		return
	}
	m.noticeTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) NoticeClaimed(n int64) {
	if m == nil {
		return
	}
	m.noticesClaimed.Observe(float64(n))
}

func (m *Metrics) RenderObserved(d time.Duration, size int) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
	m.renderBytes.Observe(float64(size))
}

func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventFailed(eventType string) {
	if m == nil {
		return
	}
	m.eventsFailed.WithLabelValues(eventType).Inc()
}
