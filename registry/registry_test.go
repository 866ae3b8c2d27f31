package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/store"
	"github.com/gklyne/annalist-sub001/types"
)

func newTestSite(t *testing.T) *collection.Site {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	site := collection.NewSite(st)
	require.NoError(t, site.EnsureSiteData(context.Background()))
	return site
}

func saveEntity(t *testing.T, site *collection.Site, coll, typeID, id string, values types.Values) {
	t.Helper()
	err := site.Store().Save(context.Background(),
		types.EntityRef{Coll: coll, TypeID: typeID, ID: id}, values)
	require.NoError(t, err)
}

func saveType(t *testing.T, site *collection.Site, coll, id, uri string, supertypes ...string) {
	t.Helper()
	values := types.Values{
		annal.PropID:  id,
		annal.PropURI: uri,
	}
	if len(supertypes) > 0 {
		sts := make([]any, 0, len(supertypes))
		for _, st := range supertypes {
			sts = append(sts, map[string]any{"@id": st})
		}
		values[annal.PropSupertypeURI] = sts
	}
	saveEntity(t, site, coll, annal.TypeIDType, id, values)
}

func loadColl(t *testing.T, site *collection.Site, id string, values types.Values) *collection.Collection {
	t.Helper()
	c, err := site.Create(context.Background(), id, values)
	require.NoError(t, err)
	return c
}

func TestTypeRegistryLookup(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveType(t, site, "coll1", "animal", "ex:Animal")
	saveType(t, site, "coll1", "mammal", "ex:Mammal", "ex:Animal")
	c := loadColl(t, site, "coll1", nil)
	reg := NewTypeRegistry(c)

	rt, ok, err := reg.Type(ctx, "mammal")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ex:Mammal", rt.TypeURI())
	assert.Equal(t, []string{"ex:Animal"}, rt.SupertypeURIs())

	byURI, ok, err := reg.TypeByURI(ctx, "ex:Animal")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "animal", byURI.ID)

	_, ok, err = reg.Type(ctx, "nosuch")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTypeRegistryClosures(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveType(t, site, "coll1", "animal", "ex:Animal", "ex:LivingThing")
	saveType(t, site, "coll1", "mammal", "ex:Mammal", "ex:Animal")
	saveType(t, site, "coll1", "dog", "ex:Dog", "ex:Mammal")
	c := loadColl(t, site, "coll1", nil)
	reg := NewTypeRegistry(c)

	supers, err := reg.SupertypeURIs(ctx, "ex:Dog")
	require.NoError(t, err)
	// ex:LivingThing has no type record but still appears in the closure.
	assert.Equal(t, []string{"ex:Animal", "ex:LivingThing", "ex:Mammal"}, supers)

	subs, err := reg.SubtypeURIs(ctx, "ex:Animal")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex:Dog", "ex:Mammal"}, subs)

	// Record-producing variants return only defined types.
	superTypes, err := reg.Supertypes(ctx, "ex:Dog")
	require.NoError(t, err)
	ids := make([]string, 0, len(superTypes))
	for _, rt := range superTypes {
		ids = append(ids, rt.ID)
	}
	assert.ElementsMatch(t, []string{"animal", "mammal"}, ids)
}

func TestTypeRegistryAcrossChain(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveType(t, site, "parent", "base", "ex:Base")
	saveType(t, site, "child", "derived", "ex:Derived", "ex:Base")
	loadColl(t, site, "parent", nil)
	c := loadColl(t, site, "child", types.Values{annal.PropInheritFrom: "parent"})
	reg := NewTypeRegistry(c)

	_, ok, err := reg.Type(ctx, "base")
	require.NoError(t, err)
	assert.True(t, ok, "inherited type visible")

	supers, err := reg.SupertypeURIs(ctx, "ex:Derived")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex:Base"}, supers)

	t.Run("scope filtering", func(t *testing.T) {
		own, err := reg.Types(ctx, collection.ScopeOwn)
		require.NoError(t, err)
		require.Len(t, own, 1)
		assert.Equal(t, "derived", own[0].ID)

		all, err := reg.Types(ctx, collection.ScopeAll)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestTypeRegistrySetAndRemove(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveType(t, site, "coll1", "animal", "ex:Animal")
	saveType(t, site, "coll1", "mammal", "ex:Mammal", "ex:Animal")
	c := loadColl(t, site, "coll1", nil)
	reg := NewTypeRegistry(c)

	// Update mammal to point at a different supertype.
	err := reg.SetType(ctx, types.NewRecordType("mammal", types.Values{
		annal.PropID:           "mammal",
		annal.PropURI:          "ex:Mammal",
		annal.PropSupertypeURI: []any{map[string]any{"@id": "ex:Vertebrate"}},
	}))
	require.NoError(t, err)

	supers, err := reg.SupertypeURIs(ctx, "ex:Mammal")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex:Vertebrate"}, supers)

	// Relations into the updated URI from other types survive the update.
	err = reg.SetType(ctx, types.NewRecordType("dog", types.Values{
		annal.PropID:           "dog",
		annal.PropURI:          "ex:Dog",
		annal.PropSupertypeURI: []any{map[string]any{"@id": "ex:Mammal"}},
	}))
	require.NoError(t, err)
	err = reg.SetType(ctx, types.NewRecordType("mammal", types.Values{
		annal.PropID:  "mammal",
		annal.PropURI: "ex:Mammal",
	}))
	require.NoError(t, err)

	subs, err := reg.SubtypeURIs(ctx, "ex:Mammal")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex:Dog"}, subs)

	removed, err := reg.RemoveType(ctx, "dog")
	require.NoError(t, err)
	assert.True(t, removed)
	subs, err = reg.SubtypeURIs(ctx, "ex:Mammal")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestTypeRegistryCycleDiagnostic(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveType(t, site, "coll1", "a", "ex:A", "ex:B")
	saveType(t, site, "coll1", "b", "ex:B", "ex:A")
	c := loadColl(t, site, "coll1", nil)
	reg := NewTypeRegistry(c)

	// Population proceeds; the relation closing the cycle is rejected and
	// recorded as a problem rather than looping or panicking.
	_, _, err := reg.Type(ctx, "a")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Problems())

	supers, err := reg.SupertypeURIs(ctx, "ex:A")
	require.NoError(t, err)
	assert.NotContains(t, supers, "ex:A")
}

func TestFieldRegistry(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveEntity(t, site, "coll1", annal.TypeIDField, "Title", types.Values{
		annal.PropID:          "Title",
		annal.PropPropertyURI: "ex:title",
		annal.PropSuperpropertyURI: []any{
			map[string]any{"@id": "dc:title"},
		},
	})
	saveEntity(t, site, "coll1", annal.TypeIDField, "Short_title", types.Values{
		annal.PropID:          "Short_title",
		annal.PropPropertyURI: "ex:short_title",
		annal.PropSuperpropertyURI: []any{
			map[string]any{"@id": "ex:title"},
		},
	})
	c := loadColl(t, site, "coll1", nil)
	reg := NewFieldRegistry(c)

	rf, ok, err := reg.Field(ctx, "Title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ex:title", rf.PropertyURI())

	byURI, ok, err := reg.FieldByPropertyURI(ctx, "ex:short_title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Short_title", byURI.ID)

	supers, err := reg.SuperpropertyURIs(ctx, "ex:short_title")
	require.NoError(t, err)
	// dc:title has no field record but appears in the closure.
	assert.Equal(t, []string{"dc:title", "ex:title"}, supers)

	subs, err := reg.SubpropertyURIs(ctx, "dc:title")
	require.NoError(t, err)
	assert.Equal(t, []string{"ex:short_title", "ex:title"}, subs)

	removed, err := reg.RemoveField(ctx, "Title")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok, err = reg.FieldByPropertyURI(ctx, "ex:title")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVocabRegistry(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveEntity(t, site, "coll1", annal.TypeIDVocab, "dc", types.Values{
		annal.PropID:  "dc",
		annal.PropURI: "http://purl.org/dc/terms/",
	})
	saveEntity(t, site, "coll1", annal.TypeIDVocab, "foaf", types.Values{
		annal.PropID:  "foaf",
		annal.PropURI: "http://xmlns.com/foaf/0.1/",
	})
	c := loadColl(t, site, "coll1", nil)
	reg := NewVocabRegistry(c)

	v, ok, err := reg.Vocab(ctx, "dc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "http://purl.org/dc/terms/", v.NamespaceURI())

	prefix, ok, err := reg.PrefixForNamespace(ctx, "http://xmlns.com/foaf/0.1/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "foaf", prefix)

	all, err := reg.Vocabs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "dc", all[0].Prefix())
	assert.Equal(t, "foaf", all[1].Prefix())
}

func TestManager(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	saveType(t, site, "coll1", "widget", "ex:Widget")
	c := loadColl(t, site, "coll1", nil)

	m, err := NewManager()
	require.NoError(t, err)

	set1, err := m.For(c)
	require.NoError(t, err)
	set2, err := m.For(c)
	require.NoError(t, err)
	assert.Same(t, set1, set2, "same collection shares one registry set")

	_, ok, err := set1.Types.Type(ctx, "widget")
	require.NoError(t, err)
	assert.True(t, ok)

	// New data written after population is invisible until flush.
	saveType(t, site, "coll1", "gadget", "ex:Gadget")
	_, ok, err = set1.Types.Type(ctx, "gadget")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Flush("coll1"))
	set3, err := m.For(c)
	require.NoError(t, err)
	assert.NotSame(t, set1, set3)

	_, ok, err = set3.Types.Type(ctx, "gadget")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"coll1"}, m.Collections())
	require.NoError(t, m.FlushAll())
	assert.Empty(t, m.Collections())
}
