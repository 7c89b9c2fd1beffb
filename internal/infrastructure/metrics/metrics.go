package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	EntriesCreated *prometheus.CounterVec
	EntriesUpdated prometheus.Counter
	EntriesRemoved prometheus.Counter
	StatusChanges  *prometheus.CounterVec
	PlansCreated   prometheus.Counter
	PlansEdited    prometheus.Counter
	PlanSize       prometheus.Histogram
	EntryAmount    *prometheus.HistogramVec

	// Persistence queue metrics
	PersistenceWrites   *prometheus.CounterVec
	PersistenceDuration *prometheus.HistogramVec
	PendingWrites       prometheus.Gauge
	WriteReverts        *prometheus.CounterVec

	// Session metrics
	ActiveSessions prometheus.Gauge

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		EntriesCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_entries_created_total",
				Help: "Total number of entries created by kind",
			},
			[]string{"kind"},
		),
		EntriesUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "bizledger_entries_updated_total",
			Help: "Total number of entry updates",
		}),
		EntriesRemoved: f.NewCounter(prometheus.CounterOpts{
			Name: "bizledger_entries_removed_total",
			Help: "Total number of entries removed",
		}),
		StatusChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_status_changes_total",
				Help: "Total settlement status changes by target status",
			},
			[]string{"status"},
		),
		PlansCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "bizledger_plans_created_total",
			Help: "Total number of installment plans created",
		}),
		PlansEdited: f.NewCounter(prometheus.CounterOpts{
			Name: "bizledger_plans_edited_total",
			Help: "Total number of installment plans edited",
		}),
		PlanSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bizledger_plan_installments",
			Help:    "Number of installments per created plan",
			Buckets: []float64{1, 2, 3, 6, 10, 12, 24, 36, 60},
		}),
		EntryAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bizledger_entry_amount",
				Help:    "Entry amounts by kind",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 100000},
			},
			[]string{"kind"},
		),

		// Persistence queue metrics
		PersistenceWrites: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_persistence_writes_total",
				Help: "Total persistence writes by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		PersistenceDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bizledger_persistence_write_duration_seconds",
				Help:    "Duration of persistence writes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		PendingWrites: f.NewGauge(prometheus.GaugeOpts{
			Name: "bizledger_pending_writes",
			Help: "Current number of queued persistence writes",
		}),
		WriteReverts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_write_reverts_total",
				Help: "Total local mutations reverted after a failed write",
			},
			[]string{"op"},
		),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "bizledger_active_sessions",
			Help: "Current number of open ledger sessions",
		}),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bizledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Redis metrics
		RedisOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_events_published_total",
				Help: "Total entry events published by type and outcome",
			},
			[]string{"type", "outcome"},
		),

		// Rate limiting metrics
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bizledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
