package binder

import (
	"context"
	"fmt"

	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/store"
	"github.com/gklyne/annalist-sub001/types"
)

// ListRow is one entity bound to a list's field layout.
type ListRow struct {
	CollID   string
	TypeID   string
	EntityID string
	Fields   []BoundField
}

// SelectEntities returns the entities matched by a list description:
// entities of the requested type (or the list's default type, or every
// type when neither is given) that satisfy the list's selector.
// Unreadable entities are skipped with a diagnostic.
func (b *Binder) SelectEntities(ctx context.Context, list types.RecordList, typeID string, scope collection.Scope) ([]*store.Entity, []string, error) {
	sel, err := ParseSelector(list.Selector())
	if err != nil {
		return nil, nil, err
	}

	typeIDs, err := b.scanTypes(ctx, list, typeID, scope)
	if err != nil {
		return nil, nil, err
	}

	var selected []*store.Entity
	var diags []string
	for _, tid := range typeIDs {
		ids, err := b.coll.EntityIDs(ctx, tid, scope)
		if err != nil {
			return nil, diags, err
		}
		for _, id := range ids {
			e, err := b.coll.Resolve(ctx, tid, id, scope)
			if err != nil {
				diags = append(diags, fmt.Sprintf("entity %s/%s unreadable: %v", tid, id, err))
				continue
			}
			if e == nil {
				continue
			}
			match, err := b.MatchSelector(ctx, sel, e.Values)
			if err != nil {
				return nil, diags, err
			}
			if match {
				selected = append(selected, e)
			}
		}
	}
	return selected, diags, nil
}

// scanTypes decides which type directories a list enumeration covers.
func (b *Binder) scanTypes(ctx context.Context, list types.RecordList, typeID string, scope collection.Scope) ([]string, error) {
	if typeID == "" {
		typeID = list.DefaultTypeID()
	}
	if typeID != "" {
		return []string{typeID}, nil
	}
	return b.coll.EntityTypes(ctx, scope)
}

// BindList binds each selected entity to the list's resolved field
// descriptions, producing one row per entity.
func (b *Binder) BindList(ctx context.Context, descs []FieldDescription, entities []*store.Entity) ([]ListRow, []string, error) {
	var rows []ListRow
	var diags []string
	for _, e := range entities {
		fields, rowDiags, err := b.BindView(ctx, e.TypeID(), e.Values, descs)
		if err != nil {
			return nil, diags, err
		}
		diags = append(diags, rowDiags...)
		rows = append(rows, ListRow{
			CollID:   e.Ref.Coll,
			TypeID:   e.TypeID(),
			EntityID: e.ID(),
			Fields:   fields,
		})
	}
	return rows, diags, nil
}
