package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all core engine metrics (not host-specific).
type Metrics struct {
	// Entity store metrics.
	StoreOperations        *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	EntitiesLoaded         *prometheus.CounterVec

	// Registry cache metrics.
	RegistryPopulations *prometheus.CounterVec
	RegistryFlushes     *prometheus.CounterVec

	// Context generator metrics.
	ContextRegenerations *prometheus.CounterVec
	ContextDiagnostics   *prometheus.CounterVec

	// Collection metrics.
	CollectionsLoaded *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all core engine metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "annalist",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of entity store operations",
			},
			[]string{"operation", "status"},
		),

		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "annalist",
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Entity store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		EntitiesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "annalist",
				Subsystem: "store",
				Name:      "entities_loaded_total",
				Help:      "Total number of entities loaded, by type id",
			},
			[]string{"type_id"},
		),

		RegistryPopulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "annalist",
				Subsystem: "registry",
				Name:      "populations_total",
				Help:      "Total number of registry cache populations",
			},
			[]string{"registry", "collection"},
		),

		RegistryFlushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "annalist",
				Subsystem: "registry",
				Name:      "flushes_total",
				Help:      "Total number of registry cache flushes",
			},
			[]string{"collection"},
		),

		ContextRegenerations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "annalist",
				Subsystem: "context",
				Name:      "regenerations_total",
				Help:      "Total number of JSON-LD context regenerations",
			},
			[]string{"collection", "status"},
		),

		ContextDiagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "annalist",
				Subsystem: "context",
				Name:      "diagnostics_total",
				Help:      "Total number of diagnostics recorded during context generation",
			},
			[]string{"collection", "kind"},
		),

		CollectionsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "annalist",
				Subsystem: "collection",
				Name:      "loaded_total",
				Help:      "Total number of collection loads, by outcome",
			},
			[]string{"status"},
		),
	}
}

// RecordStoreOperation records one entity store operation with its outcome.
func (m *Metrics) RecordStoreOperation(operation, status string) {
	m.StoreOperations.WithLabelValues(operation, status).Inc()
}

// RecordEntityLoaded records a successful entity load for the given type id.
func (m *Metrics) RecordEntityLoaded(typeID string) {
	m.EntitiesLoaded.WithLabelValues(typeID).Inc()
}

// RecordRegistryPopulation records a registry cache population.
func (m *Metrics) RecordRegistryPopulation(registry, collection string) {
	m.RegistryPopulations.WithLabelValues(registry, collection).Inc()
}

// RecordRegistryFlush records a registry cache flush for a collection.
func (m *Metrics) RecordRegistryFlush(collection string) {
	m.RegistryFlushes.WithLabelValues(collection).Inc()
}

// RecordContextRegeneration records a context regeneration with its outcome.
func (m *Metrics) RecordContextRegeneration(collection, status string) {
	m.ContextRegenerations.WithLabelValues(collection, status).Inc()
}

// RecordContextDiagnostic records one diagnostic raised during context
// generation.
func (m *Metrics) RecordContextDiagnostic(collection, kind string) {
	m.ContextDiagnostics.WithLabelValues(collection, kind).Inc()
}

// RecordCollectionLoaded records a collection load outcome.
func (m *Metrics) RecordCollectionLoaded(status string) {
	m.CollectionsLoaded.WithLabelValues(status).Inc()
}
