package binder

import (
	"context"
	"fmt"
	"strings"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/types"
)

// FormData is submitted form content as a flat name to values mapping.
// Repeat group members carry zero-based index segments in their names,
// as in "View_fields__2__Field_id".
type FormData map[string][]string

// Get returns the first value for a name.
func (f FormData) Get(name string) (string, bool) {
	vs, ok := f[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Has reports whether a name was submitted.
func (f FormData) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Set records a single value for a name.
func (f FormData) Set(name, value string) {
	f[name] = []string{value}
}

// Decode reconstructs entity values from submitted form data by walking
// the resolved field descriptions. Prior values not covered by the view
// are preserved, as are previously stored attachment descriptors; the
// result carries the full type closure in @type.
func (b *Binder) Decode(ctx context.Context, form FormData, typeID string, prior types.Values, descs []FieldDescription) (types.Values, error) {
	result := prior.Clone()
	if result == nil {
		result = types.Values{}
	}
	for _, d := range descs {
		if err := b.decodeField(ctx, form, "", d, prior, result); err != nil {
			return nil, err
		}
	}
	if err := b.EnsureTypeClosure(ctx, typeID, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Binder) decodeField(ctx context.Context, form FormData, prefix string, d FieldDescription, prior, result types.Values) error {
	name := prefix + d.FieldID

	switch {
	case d.IsRepeat():
		rows, err := b.decodeRows(ctx, form, name, d)
		if err != nil {
			return err
		}
		// An in-view repeat group always writes its collected rows, so a
		// form submitted with every row removed empties the stored list.
		result[d.PropertyURI] = rows
		return nil

	case d.IsRefMultifield():
		// Sub-fields of a multifield reference belong to the referenced
		// entity; only the reference itself is stored here.
		if raw, ok := form.Get(name); ok {
			result[d.PropertyURI] = raw
		}
		return nil

	default:
		raw, ok := form.Get(name)
		if !ok {
			return nil
		}
		result[d.PropertyURI] = coerceValue(raw, d)
		// When the displayed value was borrowed from a subproperty, the
		// declared property is written and the borrowed key dropped.
		if _, declared := prior[d.PropertyURI]; !declared {
			subs, err := b.regs.Fields.SubpropertyURIs(ctx, d.PropertyURI)
			if err != nil {
				return err
			}
			for _, sub := range subs {
				delete(result, sub)
			}
		}
		return nil
	}
}

// decodeRows collects the indexed member rows of a repeat group. The
// result is never nil: a group with no submitted member keys decodes to
// an empty list.
func (b *Binder) decodeRows(ctx context.Context, form FormData, name string, d FieldDescription) ([]any, error) {
	rows := []any{}
	for i := 0; ; i++ {
		rowPrefix := fmt.Sprintf("%s__%d__", name, i)
		if !b.rowPresent(form, rowPrefix, d.Subfields) {
			break
		}
		row := types.Values{}
		for _, sub := range d.Subfields {
			if err := b.decodeField(ctx, form, rowPrefix, sub, row, row); err != nil {
				return nil, err
			}
		}
		rows = append(rows, map[string]any(row))
	}
	return rows, nil
}

func (b *Binder) rowPresent(form FormData, rowPrefix string, subs []FieldDescription) bool {
	for _, sub := range subs {
		if form.Has(rowPrefix + sub.FieldID) {
			return true
		}
		if sub.IsRepeat() && b.rowPresent(form, fmt.Sprintf("%s%s__0__", rowPrefix, sub.FieldID), sub.Subfields) {
			return true
		}
	}
	return false
}

// coerceValue converts a submitted string to the stored value shape for a
// field's render type.
func coerceValue(raw string, d FieldDescription) any {
	switch d.RenderType {
	case types.RenderCheckBox:
		switch strings.ToLower(raw) {
		case "on", "true", "yes", "1":
			return true
		default:
			return false
		}
	case types.RenderTokenSet:
		tokens := strings.Fields(raw)
		list := make([]any, 0, len(tokens))
		for _, tok := range tokens {
			list = append(list, tok)
		}
		return list
	default:
		return raw
	}
}

// NewEntityValues builds the seed values for a newly created entity:
// identity coordinates, the declared type URI with its supertype closure,
// the label, and rdfs:comment filled from the label.
func (b *Binder) NewEntityValues(ctx context.Context, typeID, entityID, label string) (types.Values, error) {
	if label == "" {
		label = entityID
	}
	values := types.Values{
		annal.KeyID:        typeID + "/" + entityID,
		annal.PropID:       entityID,
		annal.PropTypeID:   typeID,
		annal.PropLabel:    label,
		annal.PropRDFSNote: label,
	}
	if rt, ok, err := b.regs.Types.Type(ctx, typeID); err != nil {
		return nil, err
	} else if ok {
		values[annal.PropType] = rt.TypeURI()
	}
	if err := b.EnsureTypeClosure(ctx, typeID, values); err != nil {
		return nil, err
	}
	return values, nil
}

// EnsureTypeClosure sets the entity's @type list to carry the declared
// type URI and its full supertype closure, preserving any other recorded
// type URIs.
func (b *Binder) EnsureTypeClosure(ctx context.Context, typeID string, values types.Values) error {
	if typeID == "" {
		return nil
	}
	typeURI := "annal:" + typeID
	if rt, ok, err := b.regs.Types.Type(ctx, typeID); err != nil {
		return err
	} else if ok {
		typeURI = rt.TypeURI()
	}
	supers, err := b.regs.Types.SupertypeURIs(ctx, typeURI)
	if err != nil {
		return err
	}

	present := make(map[string]bool)
	var typeList []any
	for _, v := range values.List(annal.KeyType) {
		if uri, ok := v.(string); ok && !present[uri] {
			present[uri] = true
			typeList = append(typeList, uri)
		}
	}
	for _, uri := range append([]string{typeURI}, supers...) {
		if !present[uri] {
			present[uri] = true
			typeList = append(typeList, uri)
		}
	}
	values[annal.KeyType] = typeList
	return nil
}
