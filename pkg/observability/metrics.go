package observability

import (
	"time"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/ports"
	"github.com/georgfedermann/hit2assext/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of the session pool.
type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsRemoved prometheus.Counter
	SessionsReaped  prometheus.Counter
	SessionsActive  prometheus.Gauge
	ReapedAge       prometheus.Histogram
	SoftFaults      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hit2assext_sessions_created_total",
			Help: "Total number of render sessions created",
		}),
		SessionsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hit2assext_sessions_removed_total",
			Help: "Total number of render sessions removed explicitly",
		}),
		SessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hit2assext_sessions_reaped_total",
			Help: "Total number of stale render sessions reaped by the sweeper",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hit2assext_sessions_active",
			Help: "Number of live render sessions",
		}),
		ReapedAge: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hit2assext_reaped_session_age_seconds",
			Help:    "Age of render sessions when they were reaped",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		SoftFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hit2assext_soft_faults_total",
				Help: "Soft faults reported while rendering, by kind",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.SessionsCreated, m.SessionsRemoved, m.SessionsReaped, m.SessionsActive, m.ReapedAge, m.SoftFaults)
	return m
}

// Hooks returns Manager hooks that keep the pool collectors current.
func (m *Metrics) Hooks() session.Hooks {
	return session.Hooks{
		OnCreate: func(string) {
			m.SessionsCreated.Inc()
			m.SessionsActive.Inc()
		},
		OnRemove: func(string) {
			m.SessionsRemoved.Inc()
			m.SessionsActive.Dec()
		},
		OnReap: func(_ string, age time.Duration) {
			m.SessionsReaped.Inc()
			m.SessionsActive.Dec()
			m.ReapedAge.Observe(age.Seconds())
		},
	}
}

// Reporter counts every soft fault by kind before passing it on to next.
func (m *Metrics) Reporter(next ports.Reporter) ports.Reporter {
	if next == nil {
		next = ports.NopReporter{}
	}
	return ports.ReporterFunc(func(kind domain.FaultKind, msg string, args ...any) {
		m.SoftFaults.WithLabelValues(string(kind)).Inc()
		next.Report(kind, msg, args...)
	})
}
