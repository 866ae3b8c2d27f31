// Package contextgen generates a collection's JSON-LD context document
// and README from its vocabularies, types, views and field definitions.
package contextgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/metric"
	"github.com/gklyne/annalist-sub001/registry"
	"github.com/gklyne/annalist-sub001/types"
)

// Generator regenerates per-collection JSON-LD context documents. Output
// is deterministic: regenerating with no intervening edits produces
// byte-identical files.
type Generator struct {
	site    *collection.Site
	regs    *registry.Manager
	logger  *slog.Logger
	metrics *metric.Metrics

	// scanLimit bounds concurrent collection regenerations in
	// RegenerateAll.
	scanLimit int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the structured logger used by the generator.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder used by the generator.
func WithMetrics(m *metric.Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// WithScanLimit bounds the number of collections regenerated concurrently
// by RegenerateAll.
func WithScanLimit(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.scanLimit = n
		}
	}
}

// New creates a context generator over a site and its registry manager.
func New(site *collection.Site, regs *registry.Manager, opts ...Option) *Generator {
	g := &Generator{
		site:      site,
		regs:      regs,
		logger:    slog.Default(),
		scanLimit: 4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Regenerate rebuilds a collection's coll_context.jsonld and README.md.
// It returns the diagnostics raised while building the context; these are
// recorded, not fatal.
func (g *Generator) Regenerate(ctx context.Context, coll *collection.Collection) (diags []string, err error) {
	defer func() {
		if g.metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			} else if len(diags) > 0 {
				status = "degraded"
			}
			g.metrics.RecordContextRegeneration(coll.ID(), status)
		}
	}()

	doc, diags, err := g.BuildContext(ctx, coll)
	if err != nil {
		return diags, err
	}
	data, err := json.MarshalIndent(map[string]any{annal.KeyContext: doc}, "", "  ")
	if err != nil {
		return diags, errors.Wrap(err, "Generator", "Regenerate", "marshal context document")
	}
	data = append(data, '\n')
	if err := g.site.Store().WriteCollFile(ctx, coll.ID(), annal.CollContextFile, data); err != nil {
		return diags, err
	}
	if err := g.site.Store().WriteCollFile(ctx, coll.ID(), annal.CollReadmeFile, readme(coll)); err != nil {
		return diags, err
	}
	g.logger.Debug("context regenerated", "collection", coll.ID(), "diagnostics", len(diags))
	return diags, nil
}

// RegenerateAll rebuilds the context documents of every collection on the
// site, keyed by collection id. Collections that fail to load are
// reported as diagnostics rather than aborting the scan.
func (g *Generator) RegenerateAll(ctx context.Context) (map[string][]string, error) {
	ids, err := g.site.CollectionIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[string][]string, len(ids))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.scanLimit)
	for _, id := range ids {
		eg.Go(func() error {
			coll, err := g.site.Load(ctx, id)
			if err != nil {
				mu.Lock()
				results[id] = []string{fmt.Sprintf("collection not regenerated: %v", err)}
				mu.Unlock()
				return nil
			}
			diags, err := g.Regenerate(ctx, coll)
			if err != nil {
				return err
			}
			mu.Lock()
			results[id] = diags
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BuildContext assembles the @context mapping for a collection: fixed
// prefixes and structural terms, type-derived namespace prefixes, vocab
// prefixes (overriding on collision), and property entries derived from
// the fields used by views and legacy field groups.
func (g *Generator) BuildContext(ctx context.Context, coll *collection.Collection) (map[string]any, []string, error) {
	regs, err := g.regs.For(coll)
	if err != nil {
		return nil, nil, err
	}

	b := &contextBuilder{
		coll:       coll,
		regs:       regs,
		doc:        map[string]any{},
		firstField: map[string]string{},
	}
	for prefix, uri := range annal.FixedPrefixes {
		b.doc[prefix] = uri
	}
	b.doc[annal.PropType] = map[string]any{"@type": "@id"}

	if err := b.addTypePrefixes(ctx, g.site.Store().BaseURL()); err != nil {
		return nil, b.diags, err
	}
	if err := b.addVocabPrefixes(ctx); err != nil {
		return nil, b.diags, err
	}
	if err := b.addViewProperties(ctx); err != nil {
		return nil, b.diags, err
	}
	if err := b.addGroupProperties(ctx); err != nil {
		return nil, b.diags, err
	}

	if g.metrics != nil {
		for _, kind := range b.diagKinds {
			g.metrics.RecordContextDiagnostic(coll.ID(), kind)
		}
	}
	return b.doc, b.diags, nil
}

type contextBuilder struct {
	coll *collection.Collection
	regs *registry.Set

	doc       map[string]any
	diags     []string
	diagKinds []string

	// firstField names the field that first registered each property URI,
	// for conflict reporting.
	firstField map[string]string
}

func (b *contextBuilder) diagnostic(kind, format string, args ...any) {
	b.diags = append(b.diags, fmt.Sprintf(format, args...))
	b.diagKinds = append(b.diagKinds, kind)
}

// addTypePrefixes binds each type's declared namespace prefix to the data
// URL of the collection holding the type record.
func (b *contextBuilder) addTypePrefixes(ctx context.Context, baseURL string) error {
	ids, err := b.coll.EntityIDs(ctx, annal.TypeIDType, collection.ScopeAll)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e, err := b.coll.Resolve(ctx, annal.TypeIDType, id, collection.ScopeAll)
		if err != nil || e == nil {
			continue
		}
		rt := types.NewRecordType(e.ID(), e.Values)
		prefix := rt.NSPrefix()
		if prefix == "" {
			continue
		}
		b.doc[prefix] = baseURL + e.Ref.Coll + "/" + annal.CollDataDir + "/"
	}
	return nil
}

// addVocabPrefixes binds declared vocabulary prefixes, overriding any
// type-derived binding for the same prefix. A namespace URI that does not
// end with a CURIE-safe character is still emitted, with a diagnostic.
func (b *contextBuilder) addVocabPrefixes(ctx context.Context) error {
	vocabs, err := b.regs.Vocabs.Vocabs(ctx)
	if err != nil {
		return err
	}
	for _, v := range vocabs {
		uri := v.NamespaceURI()
		if uri == "" {
			continue
		}
		if !annal.ValidVocabURI(uri) {
			b.diagnostic("vocab_uri",
				"vocabulary %s namespace %q does not end with ':', '/', '?' or '#'", v.Prefix(), uri)
		}
		b.doc[v.Prefix()] = uri
	}
	return nil
}

func (b *contextBuilder) addViewProperties(ctx context.Context) error {
	ids, err := b.coll.EntityIDs(ctx, annal.TypeIDView, collection.ScopeAll)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e, err := b.coll.Resolve(ctx, annal.TypeIDView, id, collection.ScopeAll)
		if err != nil || e == nil {
			continue
		}
		view := types.NewRecordView(e.ID(), e.Values)
		if err := b.addFieldRefs(ctx, view.Fields()); err != nil {
			return err
		}
	}
	return nil
}

func (b *contextBuilder) addGroupProperties(ctx context.Context) error {
	ids, err := b.coll.EntityIDs(ctx, annal.TypeIDGroup, collection.ScopeAll)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e, err := b.coll.Resolve(ctx, annal.TypeIDGroup, id, collection.ScopeAll)
		if err != nil || e == nil {
			continue
		}
		group := types.NewFieldGroup(e.ID(), e.Values)
		if err := b.addFieldRefs(ctx, group.Fields()); err != nil {
			return err
		}
	}
	return nil
}

func (b *contextBuilder) addFieldRefs(ctx context.Context, refs []types.FieldRef) error {
	for _, ref := range refs {
		rf, ok, err := b.regs.Fields.Field(ctx, ref.FieldID)
		if err != nil {
			return err
		}
		if !ok {
			b.diagnostic("field_missing", "field %s not found", ref.FieldID)
			continue
		}
		uri := rf.PropertyURI()
		if ref.PropertyURI != "" {
			uri = ref.PropertyURI
		}
		entry, ok := fieldContext(rf)
		if !ok {
			b.diagnostic("render_type",
				"field %s has unrecognised render type %q", ref.FieldID, rf.RenderType())
			continue
		}
		b.setProperty(uri, ref.FieldID, entry)
	}
	return nil
}

// setProperty records a property context entry. Incompatible re-uses of
// the same property URI keep the first entry and accumulate an "err"
// annotation naming the conflicting fields.
func (b *contextBuilder) setProperty(uri, fieldID string, entry map[string]any) {
	if !strings.Contains(uri, ":") {
		return
	}
	existing, ok := b.doc[uri].(map[string]any)
	if !ok {
		b.doc[uri] = entry
		b.firstField[uri] = fieldID
		return
	}
	if existing["@type"] == entry["@type"] && existing["@container"] == entry["@container"] {
		return
	}
	msg := fmt.Sprintf("property %s declared %s by field %s and %s by field %s",
		uri, describeEntry(existing), b.firstField[uri], describeEntry(entry), fieldID)
	errs, _ := existing["err"].([]any)
	existing["err"] = append(errs, msg)
	b.diagnostic("property_conflict", "%s", msg)
}

func describeEntry(entry map[string]any) string {
	parts := make([]string, 0, 2)
	if t, ok := entry["@type"].(string); ok {
		parts = append(parts, "@type="+t)
	}
	if c, ok := entry["@container"].(string); ok {
		parts = append(parts, "@container="+c)
	}
	if len(parts) == 0 {
		return "literal"
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// fieldContext derives the JSON-LD context entry for a field from its
// render type and value mode. Entity and field references present as
// enumerations; import and upload descriptors as their resource render
// types.
func fieldContext(rf types.RecordField) (map[string]any, bool) {
	renderType := rf.RenderType()
	switch rf.ValueMode() {
	case types.ValueModeEntity, types.ValueModeField:
		renderType = types.RenderEnum
	case types.ValueModeImport:
		renderType = types.RenderURIImport
	case types.ValueModeUpload:
		renderType = types.RenderFileUpload
	}

	entry := map[string]any{}
	switch {
	case types.IsRenderTypeID(renderType):
		entry["@type"] = "@id"
	case types.IsRenderTypeLiteral(renderType), types.IsRenderTypeObject(renderType):
		// Plain entry.
	default:
		return nil, false
	}
	switch {
	case types.IsRenderTypeSet(renderType):
		entry["@container"] = "@set"
	case types.IsRenderTypeList(renderType):
		entry["@container"] = "@list"
	}
	return entry, true
}

// readme renders the collection README from its label and comment.
func readme(coll *collection.Collection) []byte {
	var sb strings.Builder
	label := coll.Label()
	if label == "" {
		label = coll.ID()
	}
	sb.WriteString("# " + label + "\n")
	if comment := coll.Comment(); comment != "" {
		sb.WriteString("\n" + comment + "\n")
	}
	return []byte(sb.String())
}
