package binder

import (
	"context"
	"fmt"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/types"
)

// ChoiceOption is one selectable value for an enumerated field.
type ChoiceOption struct {
	ID    string
	Label string
}

// BoundField pairs a field description with the value extracted from an
// entity, plus the metadata the form layer needs: enumeration options and,
// for composite fields, bound sub-field rows.
type BoundField struct {
	Description FieldDescription
	Value       any

	// Options holds the selectable entity ids for enumerated fields.
	Options []ChoiceOption

	// Rows holds per-member bound sub-fields for repeat groups.
	Rows [][]BoundField

	// Target holds the sub-fields bound against the referenced entity for
	// multifield references.
	Target []BoundField
}

// BindView binds an entity's values to a resolved view, yielding one bound
// field per resolved description. typeID names the entity's type, used for
// alias fallback. Diagnostics report non-fatal binding problems.
func (b *Binder) BindView(ctx context.Context, typeID string, values types.Values, descs []FieldDescription) ([]BoundField, []string, error) {
	aliases, err := b.typeAliases(ctx, typeID)
	if err != nil {
		return nil, nil, err
	}
	var bound []BoundField
	var diags []string
	for _, d := range descs {
		bf, fieldDiags, err := b.bindField(ctx, d, values, aliases)
		if err != nil {
			return nil, diags, err
		}
		diags = append(diags, fieldDiags...)
		bound = append(bound, bf)
	}
	return bound, diags, nil
}

// typeAliases returns the field aliases declared by an entity's type.
func (b *Binder) typeAliases(ctx context.Context, typeID string) ([]types.Alias, error) {
	if typeID == "" {
		return nil, nil
	}
	rt, ok, err := b.regs.Types.Type(ctx, typeID)
	if err != nil || !ok {
		return nil, err
	}
	return rt.Aliases(), nil
}

// ExtractValue returns the entity value for a field description: the
// declared property, else a declared subproperty carried by the entity,
// else a type alias target, else the description default. The returned
// key names the property the value was found under ("" when defaulted).
func (b *Binder) ExtractValue(ctx context.Context, d FieldDescription, values types.Values, aliases []types.Alias) (any, string, error) {
	if v, ok := values[d.PropertyURI]; ok {
		return v, d.PropertyURI, nil
	}
	if d.PropertyURI != "" {
		subs, err := b.regs.Fields.SubpropertyURIs(ctx, d.PropertyURI)
		if err != nil {
			return nil, "", err
		}
		for _, sub := range subs {
			if v, ok := values[sub]; ok {
				return v, sub, nil
			}
		}
	}
	for _, alias := range aliases {
		if alias.Source == d.PropertyURI {
			if v, ok := values[alias.Target]; ok {
				return v, alias.Target, nil
			}
		}
	}
	return d.Default, "", nil
}

func (b *Binder) bindField(ctx context.Context, d FieldDescription, values types.Values, aliases []types.Alias) (BoundField, []string, error) {
	value, _, err := b.ExtractValue(ctx, d, values, aliases)
	if err != nil {
		return BoundField{}, nil, err
	}
	bf := BoundField{Description: d, Value: value}
	var diags []string

	switch {
	case d.IsRepeat():
		rows, ok := asList(value)
		if value != nil && !ok {
			diags = append(diags,
				fmt.Sprintf("field %s expects a sequence value, got %T", d.FieldID, value))
			break
		}
		for i, row := range rows {
			rowValues, ok := row.(map[string]any)
			if !ok {
				diags = append(diags,
					fmt.Sprintf("field %s row %d is not an object", d.FieldID, i))
				continue
			}
			rowBound, rowDiags, err := b.BindView(ctx, "", types.Values(rowValues), d.Subfields)
			if err != nil {
				return BoundField{}, diags, err
			}
			diags = append(diags, rowDiags...)
			bf.Rows = append(bf.Rows, rowBound)
		}

	case d.IsRefMultifield():
		refID := refString(value)
		if refID == "" {
			diags = append(diags,
				fmt.Sprintf("field %s has no entity reference to follow", d.FieldID))
			break
		}
		if d.RefTypeID == "" {
			diags = append(diags,
				fmt.Sprintf("field %s declares no reference type", d.FieldID))
			break
		}
		target, err := b.coll.Resolve(ctx, d.RefTypeID, types.ExtractEntityID(refID), collection.ScopeAll)
		if err != nil {
			return BoundField{}, diags, err
		}
		if target == nil {
			diags = append(diags,
				fmt.Sprintf("field %s references missing entity %s/%s", d.FieldID, d.RefTypeID, refID))
			break
		}
		targetBound, targetDiags, err := b.BindView(ctx, d.RefTypeID, target.Values, d.Subfields)
		if err != nil {
			return BoundField{}, diags, err
		}
		diags = append(diags, targetDiags...)
		bf.Target = targetBound

	case d.IsEnum():
		options, err := b.enumOptions(ctx, d)
		if err != nil {
			return BoundField{}, diags, err
		}
		bf.Options = options
	}
	return bf, diags, nil
}

// enumOptions lists the entities of the field's reference type as
// selectable options, labelled from their stored labels.
func (b *Binder) enumOptions(ctx context.Context, d FieldDescription) ([]ChoiceOption, error) {
	if d.RefTypeID == "" {
		return nil, nil
	}
	ids, err := b.coll.EntityIDs(ctx, d.RefTypeID, collection.ScopeAll)
	if err != nil {
		return nil, err
	}
	options := make([]ChoiceOption, 0, len(ids))
	for _, id := range ids {
		label := id
		if e, err := b.coll.Resolve(ctx, d.RefTypeID, id, collection.ScopeAll); err == nil && e != nil {
			if l := e.Values.String(annal.PropLabel); l != "" {
				label = l
			}
		}
		options = append(options, ChoiceOption{ID: id, Label: label})
	}
	return options, nil
}

// asList normalises a stored sequence value.
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case nil:
		return nil, true
	case []any:
		return list, true
	default:
		return nil, false
	}
}

// refString extracts an entity reference stored as a plain string or a
// JSON-LD {"@id": ...} object.
func refString(v any) string {
	switch ref := v.(type) {
	case string:
		return ref
	case map[string]any:
		if id, ok := ref[annal.KeyID].(string); ok {
			return id
		}
	}
	return ""
}
