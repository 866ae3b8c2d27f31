package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/types"
)

// VocabRegistry indexes the vocabulary namespaces visible to a collection,
// by prefix (the vocabulary entity id) and by namespace URI.
type VocabRegistry struct {
	mu         sync.RWMutex
	coll       *collection.Collection
	byPrefix   map[string]types.Vocabulary
	prefixByNS map[string]string
	problems   []string
	populated  bool
}

// NewVocabRegistry creates an unpopulated vocabulary registry.
func NewVocabRegistry(coll *collection.Collection) *VocabRegistry {
	return &VocabRegistry{
		coll:       coll,
		byPrefix:   make(map[string]types.Vocabulary),
		prefixByNS: make(map[string]string),
	}
}

func (r *VocabRegistry) ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.populated {
		return nil
	}
	ids, err := r.coll.EntityIDs(ctx, annal.TypeIDVocab, collection.ScopeAll)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e, err := r.coll.Resolve(ctx, annal.TypeIDVocab, id, collection.ScopeAll)
		if err != nil {
			r.problems = append(r.problems, fmt.Sprintf("vocab %s: %v", id, err))
			continue
		}
		if e == nil {
			continue
		}
		r.loadLocked(types.NewVocabulary(e.ID(), e.Values))
	}
	r.populated = true
	return nil
}

func (r *VocabRegistry) loadLocked(v types.Vocabulary) {
	if old, ok := r.byPrefix[v.Prefix()]; ok {
		delete(r.prefixByNS, old.NamespaceURI())
	}
	r.byPrefix[v.Prefix()] = v
	if ns := v.NamespaceURI(); ns != "" {
		r.prefixByNS[ns] = v.Prefix()
	}
}

// SetVocab adds or replaces a vocabulary in the registry.
func (r *VocabRegistry) SetVocab(ctx context.Context, v types.Vocabulary) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked(v)
	return nil
}

// RemoveVocab drops a vocabulary by prefix. It reports whether the prefix
// was present.
func (r *VocabRegistry) RemoveVocab(ctx context.Context, prefix string) (bool, error) {
	if err := r.ensure(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byPrefix[prefix]
	if !ok {
		return false, nil
	}
	delete(r.byPrefix, prefix)
	delete(r.prefixByNS, v.NamespaceURI())
	return true, nil
}

// Vocab returns the vocabulary for a prefix, if defined.
func (r *VocabRegistry) Vocab(ctx context.Context, prefix string) (types.Vocabulary, bool, error) {
	if err := r.ensure(ctx); err != nil {
		return types.Vocabulary{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byPrefix[prefix]
	return v, ok, nil
}

// PrefixForNamespace returns the prefix declared for a namespace URI.
func (r *VocabRegistry) PrefixForNamespace(ctx context.Context, ns string) (string, bool, error) {
	if err := r.ensure(ctx); err != nil {
		return "", false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefix, ok := r.prefixByNS[ns]
	return prefix, ok, nil
}

// Vocabs returns all visible vocabularies in prefix order.
func (r *VocabRegistry) Vocabs(ctx context.Context) ([]types.Vocabulary, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefixes := make([]string, 0, len(r.byPrefix))
	for p := range r.byPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	result := make([]types.Vocabulary, 0, len(prefixes))
	for _, p := range prefixes {
		result = append(result, r.byPrefix[p])
	}
	return result, nil
}

// Problems returns diagnostics recorded during population.
func (r *VocabRegistry) Problems() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.problems...)
}
