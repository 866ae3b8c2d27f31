package collection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/metric"
	"github.com/gklyne/annalist-sub001/store"
	"github.com/gklyne/annalist-sub001/types"
)

// Site is the entry point for collection access. It wraps the entity store
// and knows how to build inheritance chains rooted at the site-data
// collection.
type Site struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *metric.Metrics
}

// SiteOption configures a Site.
type SiteOption func(*Site)

// WithLogger sets the structured logger used by the site.
func WithLogger(logger *slog.Logger) SiteOption {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables collection-load metrics recording.
func WithMetrics(m *metric.Metrics) SiteOption {
	return func(s *Site) {
		s.metrics = m
	}
}

// NewSite creates a Site over the given store.
func NewSite(st *store.Store, opts ...SiteOption) *Site {
	s := &Site{
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying entity store.
func (s *Site) Store() *store.Store { return s.store }

// EnsureSiteData writes site-data collection metadata if absent, so every
// inheritance chain has a root to terminate at.
func (s *Site) EnsureSiteData(ctx context.Context) error {
	exists, err := s.store.CollExists(ctx, annal.SiteCollectionID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.store.SaveCollMeta(ctx, annal.SiteCollectionID, types.Values{
		annal.KeyType:     []any{annal.TypeSiteData},
		annal.PropLabel:   "Annalist site data",
		annal.PropComment: "Built-in types, views, lists and fields shared by all collections.",
	})
}

// Load reads a collection and resolves its inheritance chain. Chain
// problems (missing parent, inheritance cycle, unreachable site data) are
// recorded as diagnostics on the returned collection, not failures; a
// newer-version stamp or malformed metadata fails the load.
func (s *Site) Load(ctx context.Context, collID string) (*Collection, error) {
	values, err := s.store.LoadCollMeta(ctx, collID)
	if err != nil {
		return nil, err
	}
	if values == nil {
		return nil, errors.WrapNotFound(errors.ErrNotFound, "Site", "Load",
			fmt.Sprintf("load collection %s", collID))
	}
	if err := checkVersion(collID, values); err != nil {
		return nil, err
	}

	c := &Collection{
		id:     collID,
		values: values,
		site:   s,
		chain:  []link{{id: collID, values: values}},
	}
	s.resolveChain(ctx, c)
	s.applyDefaults(c)

	if s.metrics != nil {
		status := "ok"
		if len(c.diagnostics) > 0 {
			status = "degraded"
		}
		s.metrics.RecordCollectionLoaded(status)
	}
	s.logger.Debug("collection loaded",
		"coll", collID, "chain", c.Chain(), "diagnostics", len(c.diagnostics))
	return c, nil
}

// resolveChain follows inherit_from pointers until site data is reached,
// recording diagnostics for missing parents and cycles.
func (s *Site) resolveChain(ctx context.Context, c *Collection) {
	seen := map[string]bool{c.id: true}
	current := c.values
	currentID := c.id

	for {
		parentID := refString(current[annal.PropInheritFrom])
		if parentID == "" {
			break
		}
		if seen[parentID] {
			c.diagnostics = append(c.diagnostics,
				fmt.Sprintf("inheritance cycle: collection %s inherits from already-visited %s",
					currentID, parentID))
			break
		}
		parentValues, err := s.store.LoadCollMeta(ctx, parentID)
		if err != nil || parentValues == nil {
			c.diagnostics = append(c.diagnostics,
				fmt.Sprintf("inherited collection %s (parent of %s) not available",
					parentID, currentID))
			break
		}
		if err := checkVersion(parentID, parentValues); err != nil {
			c.diagnostics = append(c.diagnostics,
				fmt.Sprintf("inherited collection %s rejected: %v", parentID, err))
			break
		}
		seen[parentID] = true
		c.chain = append(c.chain, link{id: parentID, values: parentValues})
		current = parentValues
		currentID = parentID
	}

	if lastID := c.chain[len(c.chain)-1].id; lastID != annal.SiteCollectionID {
		siteValues, err := s.store.LoadCollMeta(ctx, annal.SiteCollectionID)
		if err != nil || siteValues == nil {
			c.diagnostics = append(c.diagnostics, "site data collection not reachable")
		} else {
			c.chain = append(c.chain, link{id: annal.SiteCollectionID, values: siteValues})
		}
	}
}

// applyDefaults copies default view/list/type ids from the first chain
// member that defines them.
func (s *Site) applyDefaults(c *Collection) {
	for _, l := range c.chain {
		if c.defaultView == "" {
			c.defaultView = refString(l.values[annal.PropDefaultView])
		}
		if c.defaultList == "" {
			c.defaultList = refString(l.values[annal.PropDefaultList])
		}
		if c.defaultType == "" {
			c.defaultType = refString(l.values[annal.PropDefaultType])
		}
	}
}

// Create makes a new collection, stamping the current software version.
// Reserved ids are rejected; the reserved site-data collection is managed
// through EnsureSiteData.
func (s *Site) Create(ctx context.Context, collID string, values types.Values) (*Collection, error) {
	if !annal.ValidID(collID) {
		return nil, errors.WrapValidation(errors.ErrInvalidID, "Site", "Create",
			fmt.Sprintf("check collection id %q", collID))
	}
	if values == nil {
		values = types.Values{}
	}
	if _, ok := values[annal.KeyType]; !ok {
		values[annal.KeyType] = []any{annal.TypeCollection}
	}
	if err := s.store.CreateColl(ctx, collID, values); err != nil {
		return nil, err
	}
	return s.Load(ctx, collID)
}

// Save persists a collection's metadata values.
func (s *Site) Save(ctx context.Context, c *Collection) error {
	return s.store.SaveCollMeta(ctx, c.id, c.values)
}

// Remove deletes a collection and all its entities.
func (s *Site) Remove(ctx context.Context, collID string) error {
	if collID == annal.SiteCollectionID {
		return errors.WrapValidation(errors.ErrInvalidID, "Site", "Remove",
			"remove reserved site data collection")
	}
	return s.store.RemoveColl(ctx, collID)
}

// Rename changes a collection's id, moving its data tree.
func (s *Site) Rename(ctx context.Context, oldID, newID string) error {
	if !annal.ValidID(newID) {
		return errors.WrapValidation(errors.ErrInvalidID, "Site", "Rename",
			fmt.Sprintf("check collection id %q", newID))
	}
	return s.store.RenameColl(ctx, oldID, newID)
}

// CollectionIDs returns the sorted ids of all collections, excluding site
// data.
func (s *Site) CollectionIDs(ctx context.Context) ([]string, error) {
	return s.store.CollectionIDs(ctx)
}
