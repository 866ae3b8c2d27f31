// Package binder mediates between stored entity values and form
// presentation: it resolves view and list field references to field
// descriptions, binds entity values to ordered bound fields for display,
// reconstructs entity values from submitted form data, applies repeat
// group editing actions, and evaluates list selectors.
package binder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/registry"
	"github.com/gklyne/annalist-sub001/types"
)

// FieldDescription is a fully resolved view-field reference: the field
// definition merged with any per-view property and placement overrides,
// with sub-field descriptions resolved for composite render types.
type FieldDescription struct {
	FieldID           string
	Label             string
	PropertyURI       string
	RenderType        string
	ValueMode         string
	ValueTypeURI      string
	Placement         string
	Placeholder       string
	Default           any
	RefTypeID         string
	RefFieldID        string
	SuperpropertyURIs []string
	RepeatLabelAdd    string
	RepeatLabelDel    string

	// Subfields is populated for repeat groups and multifield references.
	Subfields []FieldDescription
}

// IsRepeat reports whether the description is a repeating group whose
// value is a sequence of member objects.
func (d FieldDescription) IsRepeat() bool {
	return types.IsRenderTypeRepeat(d.RenderType)
}

// IsRefMultifield reports whether the description displays fields of a
// referenced entity.
func (d FieldDescription) IsRefMultifield() bool {
	return d.RenderType == types.RenderRefMulti
}

// IsEnum reports whether the description offers a choice from entities of
// a referenced type.
func (d FieldDescription) IsEnum() bool {
	switch d.RenderType {
	case types.RenderEnum, types.RenderEnumOptional, types.RenderEnumChoice,
		types.RenderEnumChoiceOpt, types.RenderViewChoice, types.RenderType,
		types.RenderView, types.RenderList, types.RenderField:
		return true
	}
	return false
}

// Binder binds entities to views and lists for one collection, consulting
// the collection's registries for field definitions, closures and
// enumeration options.
type Binder struct {
	coll   *collection.Collection
	regs   *registry.Set
	logger *slog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the structured logger used by the binder.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a binder for a collection and its registry set.
func New(coll *collection.Collection, regs *registry.Set, opts ...Option) *Binder {
	b := &Binder{
		coll:   coll,
		regs:   regs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ResolveView resolves all field references of a view to descriptions.
// Unresolvable references are reported as diagnostics and skipped; the
// remaining fields still bind.
func (b *Binder) ResolveView(ctx context.Context, view types.RecordView) ([]FieldDescription, []string, error) {
	return b.resolveRefs(ctx, view.Fields(), nil)
}

// ResolveList resolves all field references of a list description.
func (b *Binder) ResolveList(ctx context.Context, list types.RecordList) ([]FieldDescription, []string, error) {
	return b.resolveRefs(ctx, list.Fields(), nil)
}

func (b *Binder) resolveRefs(ctx context.Context, refs []types.FieldRef, path []string) ([]FieldDescription, []string, error) {
	var descs []FieldDescription
	var diags []string
	for _, ref := range refs {
		d, fieldDiags, err := b.resolveRef(ctx, ref, path)
		if err != nil {
			if errors.IsNotFound(err) {
				diags = append(diags, fmt.Sprintf("field %s not found", ref.FieldID))
				continue
			}
			return nil, diags, err
		}
		diags = append(diags, fieldDiags...)
		descs = append(descs, d)
	}
	return descs, diags, nil
}

// resolveRef resolves one field reference. path carries the field ids on
// the current resolution branch, so self-referential composite fields are
// reported instead of recursing forever.
func (b *Binder) resolveRef(ctx context.Context, ref types.FieldRef, path []string) (FieldDescription, []string, error) {
	rf, ok, err := b.regs.Fields.Field(ctx, ref.FieldID)
	if err != nil {
		return FieldDescription{}, nil, err
	}
	if !ok {
		return FieldDescription{}, nil, errors.WrapNotFound(errors.ErrNotFound, "Binder", "resolveRef",
			fmt.Sprintf("resolve field %s", ref.FieldID))
	}

	d := FieldDescription{
		FieldID:           rf.ID,
		Label:             rf.Label(),
		PropertyURI:       rf.PropertyURI(),
		RenderType:        rf.RenderType(),
		ValueMode:         rf.ValueMode(),
		ValueTypeURI:      rf.ValueTypeURI(),
		Placement:         rf.Placement(),
		Placeholder:       rf.Placeholder(),
		Default:           rf.Default(),
		RefTypeID:         rf.RefTypeID(),
		RefFieldID:        rf.RefFieldID(),
		SuperpropertyURIs: rf.SuperpropertyURIs(),
	}
	d.RepeatLabelAdd, d.RepeatLabelDel = rf.RepeatLabels()
	if ref.PropertyURI != "" {
		d.PropertyURI = ref.PropertyURI
	}
	if ref.Placement != "" {
		d.Placement = ref.Placement
	}

	var diags []string
	if d.IsRepeat() || d.IsRefMultifield() {
		for _, seen := range path {
			if seen == rf.ID {
				return d, nil, errors.WrapValidation(errors.ErrMalformedData, "Binder", "resolveRef",
					fmt.Sprintf("field %s contains itself", rf.ID))
			}
		}
		subrefs, groupDiags, err := b.subfieldRefs(ctx, rf)
		if err != nil {
			return FieldDescription{}, nil, err
		}
		diags = append(diags, groupDiags...)
		subs, subDiags, err := b.resolveRefs(ctx, subrefs, append(path, rf.ID))
		if err != nil {
			return FieldDescription{}, nil, err
		}
		diags = append(diags, subDiags...)
		d.Subfields = subs
	}
	return d, diags, nil
}

// subfieldRefs returns a composite field's sub-field references: the
// inline field_fields list when present, otherwise the fields of the
// legacy referenced group.
func (b *Binder) subfieldRefs(ctx context.Context, rf types.RecordField) ([]types.FieldRef, []string, error) {
	if inline := rf.InlineFields(); len(inline) > 0 {
		return inline, nil, nil
	}
	groupID := rf.GroupRef()
	if groupID == "" {
		return nil, []string{fmt.Sprintf("composite field %s declares no sub-fields", rf.ID)}, nil
	}
	e, err := b.coll.Resolve(ctx, annal.TypeIDGroup, groupID, collection.ScopeAll)
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, []string{fmt.Sprintf("field group %s (for field %s) not found", groupID, rf.ID)}, nil
	}
	group := types.NewFieldGroup(e.ID(), e.Values)
	return group.Fields(), nil, nil
}
