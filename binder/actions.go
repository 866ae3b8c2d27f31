package binder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

// Repeat group action control-name suffixes recognised in form data.
const (
	actionAdd    = "__add"
	actionRemove = "__remove"
	actionUp     = "__up"
	actionDown   = "__down"
	selectSuffix = "__select_fields"
)

// ApplyRepeatAction scans submitted form data for a repeat group editing
// action (add, remove, move up, move down) and applies it to a copy of the
// entity values. It returns the edited values and whether any action was
// found; the entity is expected to be re-rendered, not saved.
func (b *Binder) ApplyRepeatAction(ctx context.Context, form FormData, values types.Values, descs []FieldDescription) (types.Values, bool, error) {
	edited := values.Clone()
	if edited == nil {
		edited = types.Values{}
	}
	applied, err := b.applyActions(form, "", descs, edited)
	if err != nil {
		return nil, false, err
	}
	return edited, applied, nil
}

func (b *Binder) applyActions(form FormData, prefix string, descs []FieldDescription, values types.Values) (bool, error) {
	for _, d := range descs {
		if !d.IsRepeat() {
			continue
		}
		name := prefix + d.FieldID

		switch {
		case form.Has(name + actionAdd):
			list, ok := asList(values[d.PropertyURI])
			if !ok {
				return false, badGroupValue(d)
			}
			values[d.PropertyURI] = append(list, newRow(d))
			return true, nil

		case form.Has(name + actionRemove):
			selected, err := selectedIndices(form, name)
			if err != nil {
				return false, err
			}
			list, ok := asList(values[d.PropertyURI])
			if !ok {
				return false, badGroupValue(d)
			}
			values[d.PropertyURI] = removeIndices(list, selected)
			return true, nil

		case form.Has(name + actionUp):
			selected, err := selectedIndices(form, name)
			if err != nil {
				return false, err
			}
			list, ok := asList(values[d.PropertyURI])
			if !ok {
				return false, badGroupValue(d)
			}
			values[d.PropertyURI] = moveUp(list, selected)
			return true, nil

		case form.Has(name + actionDown):
			selected, err := selectedIndices(form, name)
			if err != nil {
				return false, err
			}
			list, ok := asList(values[d.PropertyURI])
			if !ok {
				return false, badGroupValue(d)
			}
			values[d.PropertyURI] = moveDown(list, selected)
			return true, nil
		}

		// Look for actions on nested groups within each member row.
		list, _ := asList(values[d.PropertyURI])
		for i, row := range list {
			rowValues, ok := row.(map[string]any)
			if !ok {
				continue
			}
			rowPrefix := fmt.Sprintf("%s__%d__", name, i)
			applied, err := b.applyActions(form, rowPrefix, d.Subfields, types.Values(rowValues))
			if err != nil || applied {
				return applied, err
			}
		}
	}
	return false, nil
}

// newRow builds an empty member for a repeat group, with each sub-field
// property present and blank.
func newRow(d FieldDescription) map[string]any {
	row := make(map[string]any, len(d.Subfields))
	for _, sub := range d.Subfields {
		if sub.PropertyURI != "" {
			row[sub.PropertyURI] = ""
		}
	}
	return row
}

// selectedIndices parses the selected member indices submitted with a
// remove or move action. No selection is an empty (no-op) set.
func selectedIndices(form FormData, name string) (map[int]bool, error) {
	selected := make(map[int]bool)
	for _, raw := range form[name+selectSuffix] {
		i, err := strconv.Atoi(raw)
		if err != nil || i < 0 {
			return nil, errors.WrapValidation(errors.ErrBadFormData, "Binder", "selectedIndices",
				fmt.Sprintf("parse selected index %q for %s", raw, name))
		}
		selected[i] = true
	}
	return selected, nil
}

func badGroupValue(d FieldDescription) error {
	return errors.WrapValidation(errors.ErrBadFormData, "Binder", "ApplyRepeatAction",
		fmt.Sprintf("edit group %s whose value is not a sequence", d.FieldID))
}

func removeIndices(list []any, selected map[int]bool) []any {
	result := make([]any, 0, len(list))
	for i, item := range list {
		if !selected[i] {
			result = append(result, item)
		}
	}
	return result
}

// moveUp moves each selected member one place toward the head, keeping
// the relative order of unselected members. A selected block at the head
// stays put.
func moveUp(list []any, selected map[int]bool) []any {
	result := append([]any(nil), list...)
	sel := make([]bool, len(list))
	for i := range list {
		sel[i] = selected[i]
	}
	for i := 1; i < len(result); i++ {
		if sel[i] && !sel[i-1] {
			result[i], result[i-1] = result[i-1], result[i]
			sel[i], sel[i-1] = sel[i-1], sel[i]
		}
	}
	return result
}

// moveDown is the mirror of moveUp, moving selected members toward the
// tail.
func moveDown(list []any, selected map[int]bool) []any {
	result := append([]any(nil), list...)
	sel := make([]bool, len(list))
	for i := range list {
		sel[i] = selected[i]
	}
	for i := len(result) - 2; i >= 0; i-- {
		if sel[i] && !sel[i+1] {
			result[i], result[i+1] = result[i+1], result[i]
			sel[i], sel[i+1] = sel[i+1], sel[i]
		}
	}
	return result
}
