package registry

import (
	"log/slog"

	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/metric"
	"github.com/gklyne/annalist-sub001/pkg/cache"
)

// Set bundles the three registries derived for one collection.
type Set struct {
	Types  *TypeRegistry
	Fields *FieldRegistry
	Vocabs *VocabRegistry
}

// Manager owns the process-wide registry state: one Set per collection id,
// created on demand and discarded only by explicit flush. Flush points are
// collection writes, collection reload after external change, and admin
// request.
type Manager struct {
	sets    cache.Cache[*Set]
	logger  *slog.Logger
	metrics *metric.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger used by the manager.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics enables registry population and flush metrics.
func WithMetrics(met *metric.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = met
	}
}

// NewManager creates an empty registry manager.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	sets, err := cache.New[*Set]()
	if err != nil {
		return nil, err
	}
	m := &Manager{
		sets:   sets,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// For returns the registry set for a collection, creating it on first use.
// Only one caller creates; concurrent callers for the same collection wait
// and share the result. The registries themselves populate lazily on first
// query.
func (m *Manager) For(coll *collection.Collection) (*Set, error) {
	return m.sets.GetOrCreate(coll.ID(), func() (*Set, error) {
		if m.metrics != nil {
			m.metrics.RecordRegistryPopulation("set", coll.ID())
		}
		m.logger.Debug("registry set created", "coll", coll.ID())
		return &Set{
			Types:  NewTypeRegistry(coll),
			Fields: NewFieldRegistry(coll),
			Vocabs: NewVocabRegistry(coll),
		}, nil
	})
}

// Flush drops all derived registry state for a collection. The next access
// rebuilds from stored entities.
func (m *Manager) Flush(collID string) error {
	dropped, err := m.sets.Delete(collID)
	if err != nil {
		return err
	}
	if dropped {
		if m.metrics != nil {
			m.metrics.RecordRegistryFlush(collID)
		}
		m.logger.Debug("registry set flushed", "coll", collID)
	}
	return nil
}

// FlushAll drops derived registry state for every collection.
func (m *Manager) FlushAll() error {
	return m.sets.Clear()
}

// Collections returns the collection ids with live registry state.
func (m *Manager) Collections() []string {
	return m.sets.Keys()
}
