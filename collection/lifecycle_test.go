package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

func writeAttachment(t *testing.T, site *Site, ref types.EntityRef, base, ext, content string) {
	t.Helper()
	f, err := site.Store().CreateAttachment(context.Background(), ref, base, ext)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func seedTaskTypes(t *testing.T, site *Site, coll string) {
	t.Helper()
	saveEntity(t, site, coll, annal.TypeIDType, "task", types.Values{
		annal.PropID:           "task",
		annal.PropLabel:        "Task",
		annal.PropURI:          "ex:Task",
		annal.PropSupertypeURI: []any{map[string]any{"@id": "ex:Item"}},
	})
	saveEntity(t, site, coll, annal.TypeIDType, "job", types.Values{
		annal.PropID:    "job",
		annal.PropLabel: "Job",
		annal.PropURI:   "ex:Job",
	})
}

func TestRenameEntitySameType(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	c := createColl(t, site, "lcoll", nil)
	seedTaskTypes(t, site, "lcoll")

	t1 := types.EntityRef{Coll: "lcoll", TypeID: "task", ID: "t1"}
	saveEntity(t, site, "lcoll", "task", "t1", types.Values{
		annal.KeyID:     "task/t1",
		annal.KeyType:   []any{"ex:Task", "ex:Item"},
		annal.PropID:    "t1",
		annal.PropLabel: "First task",
		annal.PropURI:   "http://example.org/annalist/lcoll/d/task/t1",
	})
	writeAttachment(t, site, t1, "photo", "jpg", "image-bytes")

	require.NoError(t, c.RenameEntity(ctx, "task", "t1", "task", "t2"))

	gone, err := site.Store().Exists(ctx, t1)
	require.NoError(t, err)
	assert.False(t, gone)

	t2 := types.EntityRef{Coll: "lcoll", TypeID: "task", ID: "t2"}
	e, err := site.Store().Load(ctx, t2)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "task/t2", e.Values.String(annal.KeyID))
	assert.Equal(t, "t2", e.Values.String(annal.PropID))
	assert.Equal(t, "First task", e.Values.String(annal.PropLabel))
	assert.Equal(t, []string{"ex:Task", "ex:Item"}, e.Values.StringList(annal.KeyType))
	// The stored URI was minted from the old id, so the rename drops it.
	assert.False(t, e.Values.Has(annal.PropURI))

	names, err := site.Store().Attachments(ctx, t2)
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.jpg"}, names)

	t.Run("explicit uri survives", func(t *testing.T) {
		saveEntity(t, site, "lcoll", "task", "u1", types.Values{
			annal.KeyID:   "task/u1",
			annal.KeyType: []any{"ex:Task", "ex:Item"},
			annal.PropID:  "u1",
			annal.PropURI: "http://example.org/ids/widget-7",
		})
		require.NoError(t, c.RenameEntity(ctx, "task", "u1", "task", "u2"))
		e, err := site.Store().Load(ctx,
			types.EntityRef{Coll: "lcoll", TypeID: "task", ID: "u2"})
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, "http://example.org/ids/widget-7", e.Values.String(annal.PropURI))
	})

	t.Run("missing entity", func(t *testing.T) {
		err := c.RenameEntity(ctx, "task", "nosuch", "task", "elsewhere")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestRenameEntityAcrossTypes(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	c := createColl(t, site, "lcoll", nil)
	seedTaskTypes(t, site, "lcoll")

	saveEntity(t, site, "lcoll", "task", "t1", types.Values{
		annal.KeyID:   "task/t1",
		annal.KeyType: []any{"ex:Task", "ex:Item", "ex:Keep"},
		annal.PropID:  "t1",
	})

	require.NoError(t, c.RenameEntity(ctx, "task", "t1", "job", "t1"))

	e, err := site.Store().Load(ctx,
		types.EntityRef{Coll: "lcoll", TypeID: "job", ID: "t1"})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "job/t1", e.Values.String(annal.KeyID))
	// Old type URIs and supertypes drop out, unrelated types stay, and the
	// new type's URI comes in.
	assert.Equal(t, []string{"ex:Keep", "ex:Job"}, e.Values.StringList(annal.KeyType))

	ids, err := site.Store().ListIDs(ctx, "lcoll", "task")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCopyEntity(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	c := createColl(t, site, "lcoll", nil)
	seedTaskTypes(t, site, "lcoll")

	src := types.EntityRef{Coll: "lcoll", TypeID: "task", ID: "t1"}
	saveEntity(t, site, "lcoll", "task", "t1", types.Values{
		annal.KeyID:     "task/t1",
		annal.KeyType:   []any{"ex:Task", "ex:Item"},
		annal.PropID:    "t1",
		annal.PropLabel: "First task",
		annal.PropURI:   "http://example.org/ids/widget-7",
	})
	writeAttachment(t, site, src, "notes", "txt", "attached notes")

	require.NoError(t, c.CopyEntity(ctx, "task", "t1", "task", "t1copy"))

	e, err := site.Store().Load(ctx,
		types.EntityRef{Coll: "lcoll", TypeID: "task", ID: "t1copy"})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "task/t1copy", e.Values.String(annal.KeyID))
	assert.Equal(t, "t1copy", e.Values.String(annal.PropID))
	assert.Equal(t, "First task", e.Values.String(annal.PropLabel))
	// Copies never carry the source's declared URI.
	assert.False(t, e.Values.Has(annal.PropURI))

	names, err := site.Store().Attachments(ctx, e.Ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, names)

	// Source is untouched.
	orig, err := site.Store().Load(ctx, src)
	require.NoError(t, err)
	require.NotNil(t, orig)
	assert.Equal(t, "http://example.org/ids/widget-7", orig.Values.String(annal.PropURI))

	t.Run("existing target rejected", func(t *testing.T) {
		err := c.CopyEntity(ctx, "task", "t1", "task", "t1copy")
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("missing source", func(t *testing.T) {
		err := c.CopyEntity(ctx, "task", "nosuch", "task", "whatever")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestCopyEntityFromInheritedCollection(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	createColl(t, site, "base", nil)
	seedTaskTypes(t, site, "base")
	baseRef := types.EntityRef{Coll: "base", TypeID: "task", ID: "shared"}
	saveEntity(t, site, "base", "task", "shared", types.Values{
		annal.KeyID:     "task/shared",
		annal.PropID:    "shared",
		annal.PropLabel: "Shared task",
	})
	writeAttachment(t, site, baseRef, "doc", "pdf", "inherited bytes")

	child := createColl(t, site, "child", types.Values{annal.PropInheritFrom: "base"})
	require.NoError(t, child.CopyEntity(ctx, "task", "shared", "task", "mine"))

	e, err := site.Store().Load(ctx,
		types.EntityRef{Coll: "child", TypeID: "task", ID: "mine"})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Shared task", e.Values.String(annal.PropLabel))

	names, err := site.Store().Attachments(ctx, e.Ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.pdf"}, names)
}

func TestRenameType(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	c := createColl(t, site, "lcoll", nil)
	seedTaskTypes(t, site, "lcoll")

	saveEntity(t, site, "lcoll", "task", "a", types.Values{
		annal.KeyID: "task/a", annal.PropID: "a", annal.PropLabel: "Task A",
	})
	saveEntity(t, site, "lcoll", "task", "b", types.Values{
		annal.KeyID: "task/b", annal.PropID: "b", annal.PropLabel: "Task B",
	})
	saveEntity(t, site, "lcoll", "job", "j", types.Values{
		annal.KeyID: "job/j", annal.PropID: "j",
	})

	require.NoError(t, c.RenameType(ctx, "task", "chore"))

	// The type record moved and kept its vocabulary URI.
	rt, err := site.Store().Load(ctx,
		types.EntityRef{Coll: "lcoll", TypeID: annal.TypeIDType, ID: "chore"})
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, "chore", rt.Values.String(annal.PropID))
	assert.Equal(t, "ex:Task", rt.Values.String(annal.PropURI))

	old, err := site.Store().Exists(ctx,
		types.EntityRef{Coll: "lcoll", TypeID: annal.TypeIDType, ID: "task"})
	require.NoError(t, err)
	assert.False(t, old)

	// All instances follow the type.
	ids, err := site.Store().ListIDs(ctx, "lcoll", "chore")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	left, err := site.Store().ListIDs(ctx, "lcoll", "task")
	require.NoError(t, err)
	assert.Empty(t, left)

	e, err := site.Store().Load(ctx,
		types.EntityRef{Coll: "lcoll", TypeID: "chore", ID: "a"})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "chore/a", e.Values.String(annal.KeyID))
	assert.Equal(t, "Task A", e.Values.String(annal.PropLabel))

	// Other types are untouched.
	jobs, err := site.Store().ListIDs(ctx, "lcoll", "job")
	require.NoError(t, err)
	assert.Equal(t, []string{"j"}, jobs)

	t.Run("invalid new id", func(t *testing.T) {
		err := c.RenameType(ctx, "job", "bad id")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})
}
