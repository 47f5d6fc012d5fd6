// Package metrics holds the process-wide Prometheus collectors for the point
// of sale data layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos"

var (
	StorageWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "writes_total",
		Help:      "Committed write operations by table and operation.",
	}, []string{"table", "op"})

	StorageWriteErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "write_errors_total",
		Help:      "Failed write operations by table.",
	}, []string{"table"})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "active_subscriptions",
		Help:      "Live query subscriptions currently registered.",
	})

	MigrationsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "schema",
		Name:      "migrations_applied_total",
		Help:      "Schema migration steps applied by target version.",
	}, []string{"version"})

	MigrationFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "schema",
		Name:      "migration_fallbacks_total",
		Help:      "Migration fallback tiers taken.",
	}, []string{"tier"})

	SalesOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sales",
		Name:      "orders_created_total",
		Help:      "Sales orders created.",
	})

	SalesRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sales",
		Name:      "revenue_total",
		Help:      "Revenue of created sales orders.",
	})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "app",
		Name:      "validation_failures_total",
		Help:      "Rejected inputs by entity.",
	}, []string{"entity"})

	AsyncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "app",
		Name:      "async_failures_total",
		Help:      "Background operations that returned an error or panicked.",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
