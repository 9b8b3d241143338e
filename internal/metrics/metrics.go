// Package metrics exposes Prometheus collectors for the session subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hermit"

// Cache lookup results.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
)

// Refresh run results.
const (
	RefreshOK    = "ok"
	RefreshError = "error"
)

// SessionMetrics groups the session collectors. A nil *SessionMetrics is valid
// and records nothing.
type SessionMetrics struct {
	cacheLookups    *prometheus.CounterVec
	created         prometheus.Counter
	evicted         prometheus.Counter
	expired         prometheus.Counter
	refreshRuns     *prometheus.CounterVec
	cachedSessions  prometheus.Gauge
	refreshDuration prometheus.Histogram
}

// NewSessionMetrics creates the collectors and registers them on reg.
func NewSessionMetrics(reg prometheus.Registerer) (*SessionMetrics, error) {
	m := &SessionMetrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session_cache",
			Name:      "lookups_total",
			Help:      "Session cache lookups by result.",
		}, []string{"result"}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions created.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "evicted_total",
			Help:      "Sessions superseded by a newer login from the same location.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "expired_total",
			Help:      "Expired sessions removed from the store.",
		}),
		refreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session_cache",
			Name:      "refresh_runs_total",
			Help:      "Session cache refresh passes by result.",
		}, []string{"result"}),
		cachedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session_cache",
			Name:      "entries",
			Help:      "Sessions held in the cache after the last refresh.",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session_cache",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of session cache refresh passes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.cacheLookups, m.created, m.evicted, m.expired, m.refreshRuns, m.cachedSessions, m.refreshDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SessionMetrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *SessionMetrics) SessionCreated(evicted int) {
	if m == nil {
		return
	}
	m.created.Inc()
	m.evicted.Add(float64(evicted))
}

func (m *SessionMetrics) SessionsExpired(n int) {
	if m == nil {
		return
	}
	m.expired.Add(float64(n))
}

// RefreshDone records one refresh pass.
func (m *SessionMetrics) RefreshDone(result string, seconds float64, cached int) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(seconds)
	if result == RefreshOK {
		m.cachedSessions.Set(float64(cached))
	}
}
