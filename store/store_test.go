package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func testRef(typeID, id string) types.EntityRef {
	return types.EntityRef{Coll: "testcoll", TypeID: typeID, ID: id}
}

func TestNew(t *testing.T) {
	t.Run("creates root directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "deep", "store")
		s, err := New(root)
		require.NoError(t, err)
		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, root, s.Root())
	})

	t.Run("rejects empty root", func(t *testing.T) {
		_, err := New("")
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("base URL gains trailing slash", func(t *testing.T) {
		s, err := New(t.TempDir(), WithBaseURL("http://example.org/annalist"))
		require.NoError(t, err)
		assert.Equal(t, "http://example.org/annalist/", s.BaseURL())
	})
}

func TestCreateLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := testRef("testtype", "entity1")

	e, err := s.Create(ctx, ref, types.Values{
		annal.PropID:    "entity1",
		annal.PropLabel: "Entity one",
	})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "entity1", e.ID())

	loaded, err := s.Load(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Entity one", loaded.Values.String(annal.PropLabel))
	assert.Empty(t, loaded.Err)
}

func TestCreateConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := testRef("testtype", "entity1")

	_, err := s.Create(ctx, ref, types.Values{annal.PropID: "entity1"})
	require.NoError(t, err)

	_, err = s.Create(ctx, ref, types.Values{annal.PropID: "entity1"})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
}

func TestCreateInvalidID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"", "has space", "slash/id", "dot.id"} {
		_, err := s.Create(ctx, testRef("testtype", id), types.Values{})
		require.Error(t, err, "id %q", id)
		assert.True(t, errors.IsValidation(err), "id %q", id)
	}
}

func TestLoadAbsent(t *testing.T) {
	s := newTestStore(t)

	e, err := s.Load(context.Background(), testRef("testtype", "nosuch"))
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestLoadMalformed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := testRef("testtype", "broken")

	dir := s.entityDir(ref)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, annal.MetaFileName(ref.TypeID)), []byte("{not json"), 0o644))

	e, err := s.Load(ctx, ref)
	require.Error(t, err)
	assert.True(t, errors.IsLoad(err))
	require.NotNil(t, e)
	assert.NotEmpty(t, e.Err)
	assert.Contains(t, e.Values, annal.KeyError)
	assert.Contains(t, e.Values, annal.KeyMessage)
}

func TestSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := testRef("testtype", "entity1")

	require.NoError(t, s.Save(ctx, ref, types.Values{annal.PropLabel: "first"}))
	require.NoError(t, s.Save(ctx, ref, types.Values{annal.PropLabel: "second"}))

	loaded, err := s.Load(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Values.String(annal.PropLabel))
}

func TestExistsRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := testRef("testtype", "entity1")

	exists, err := s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Create(ctx, ref, types.Values{})
	require.NoError(t, err)

	exists, err = s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Remove(ctx, ref))

	exists, err = s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exists)

	err = s.Remove(ctx, ref)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRename(t *testing.T) {
	ctx := context.Background()

	t.Run("same type", func(t *testing.T) {
		s := newTestStore(t)
		oldRef := testRef("testtype", "before")
		newRef := testRef("testtype", "after")

		_, err := s.Create(ctx, oldRef, types.Values{annal.PropLabel: "moved"})
		require.NoError(t, err)
		require.NoError(t, s.Rename(ctx, oldRef, newRef))

		gone, err := s.Exists(ctx, oldRef)
		require.NoError(t, err)
		assert.False(t, gone)

		loaded, err := s.Load(ctx, newRef)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "moved", loaded.Values.String(annal.PropLabel))
	})

	t.Run("type change renames metadata document", func(t *testing.T) {
		s := newTestStore(t)
		oldRef := testRef("testtype", "thing")
		newRef := testRef(annal.TypeIDType, "thing")

		_, err := s.Create(ctx, oldRef, types.Values{})
		require.NoError(t, err)
		require.NoError(t, s.Rename(ctx, oldRef, newRef))

		_, err = os.Stat(filepath.Join(s.entityDir(newRef), annal.TypeMetaFile))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(s.entityDir(newRef), annal.EntityDataFile))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("attachments move with the entity", func(t *testing.T) {
		s := newTestStore(t)
		oldRef := testRef("testtype", "withfile")
		newRef := testRef("othertype", "withfile")

		_, err := s.Create(ctx, oldRef, types.Values{})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(
			filepath.Join(s.entityDir(oldRef), "image.jpg"), []byte("jpeg"), 0o644))

		require.NoError(t, s.Rename(ctx, oldRef, newRef))

		names, err := s.Attachments(ctx, newRef)
		require.NoError(t, err)
		assert.Equal(t, []string{"image.jpg"}, names)
	})

	t.Run("target conflict", func(t *testing.T) {
		s := newTestStore(t)
		oldRef := testRef("testtype", "a")
		newRef := testRef("testtype", "b")

		_, err := s.Create(ctx, oldRef, types.Values{})
		require.NoError(t, err)
		_, err = s.Create(ctx, newRef, types.Values{})
		require.NoError(t, err)

		err = s.Rename(ctx, oldRef, newRef)
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
	})

	t.Run("missing source", func(t *testing.T) {
		s := newTestStore(t)
		err := s.Rename(ctx, testRef("testtype", "nosuch"), testRef("testtype", "other"))
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestCopyFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	srcRef := testRef("testtype", "src")
	dstRef := testRef("testtype", "dst")

	_, err := s.Create(ctx, srcRef, types.Values{})
	require.NoError(t, err)
	_, err = s.Create(ctx, dstRef, types.Values{})
	require.NoError(t, err)

	srcDir := s.entityDir(srcRef)
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("aa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "b.png"), []byte("bb"), 0o644))

	require.NoError(t, s.CopyFiles(ctx, srcRef, dstRef))

	names, err := s.Attachments(ctx, dstRef)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.png"}, names)

	// Metadata document itself is not copied as an attachment.
	data, err := os.ReadFile(filepath.Join(s.entityDir(dstRef), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "aa", string(data))
}

func TestListIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"zebra", "alpha", "middle"} {
		_, err := s.Create(ctx, testRef("testtype", id), types.Values{})
		require.NoError(t, err)
	}

	ids, err := s.ListIDs(ctx, "testcoll", "testtype")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "middle", "zebra"}, ids)

	none, err := s.ListIDs(ctx, "testcoll", "notype")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListTypes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, typeID := range []string{"widget", "_type", "gadget"} {
		_, err := s.Create(ctx, testRef(typeID, "e1"), types.Values{})
		require.NoError(t, err)
	}

	typeIDs, err := s.ListTypes(ctx, "testcoll")
	require.NoError(t, err)
	assert.Equal(t, []string{"_type", "gadget", "widget"}, typeIDs)
}

func TestAttachmentFileObj(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := testRef("testtype", "entity1")

	_, err := s.Create(ctx, ref, types.Values{})
	require.NoError(t, err)

	t.Run("write then read", func(t *testing.T) {
		w, err := s.CreateAttachment(ctx, ref, "photo", "jpg")
		require.NoError(t, err)
		_, err = w.Write([]byte("image bytes"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		assert.Equal(t, "photo.jpg", w.Name())

		r, err := s.OpenAttachment(ctx, ref, "photo", ".jpg")
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "image bytes", string(data))
	})

	t.Run("content not visible before close", func(t *testing.T) {
		w, err := s.CreateAttachment(ctx, ref, "partial", "dat")
		require.NoError(t, err)
		_, err = w.Write([]byte("half"))
		require.NoError(t, err)

		_, openErr := s.OpenAttachment(ctx, ref, "partial", "dat")
		assert.True(t, errors.IsNotFound(openErr))

		require.NoError(t, w.Close())
		r, err := s.OpenAttachment(ctx, ref, "partial", "dat")
		require.NoError(t, err)
		require.NoError(t, r.Close())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		w, err := s.CreateAttachment(ctx, ref, "twice", "txt")
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
	})

	t.Run("missing entity", func(t *testing.T) {
		_, err := s.CreateAttachment(ctx, testRef("testtype", "nosuch"), "f", "txt")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("missing attachment", func(t *testing.T) {
		_, err := s.OpenAttachment(ctx, ref, "nosuch", "txt")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestTempFilesExcluded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ref := testRef("testtype", "entity1")

	_, err := s.Create(ctx, ref, types.Values{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(
		filepath.Join(s.entityDir(ref), ".tmp-leftover"), []byte("x"), 0o644))

	names, err := s.Attachments(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Load(ctx, testRef("testtype", "entity1"))
	assert.ErrorIs(t, err, context.Canceled)

	err = s.Save(ctx, testRef("testtype", "entity1"), types.Values{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefCoordinateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A coordinate carrying a path separator must never be joined into a
	// filesystem path.
	bad := []types.EntityRef{
		{Coll: "../outside", TypeID: "testtype", ID: "e1"},
		{Coll: "testcoll", TypeID: "../../etc", ID: "e1"},
		{Coll: "testcoll", TypeID: "testtype", ID: "e1/.."},
	}
	for _, ref := range bad {
		_, err := s.Create(ctx, ref, types.Values{annal.PropID: ref.ID})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err), "Create %s", ref)

		_, err = s.Load(ctx, ref)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err), "Load %s", ref)

		_, err = s.Exists(ctx, ref)
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err), "Exists %s", ref)

		err = s.Save(ctx, ref, types.Values{})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err), "Save %s", ref)
	}

	good := testRef("testtype", "e1")
	_, err := s.Create(ctx, good, types.Values{annal.PropID: "e1"})
	require.NoError(t, err)

	err = s.Rename(ctx, good, types.EntityRef{Coll: "testcoll", TypeID: "testtype", ID: "../e2"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	err = s.CopyFiles(ctx, good, types.EntityRef{Coll: "testcoll", TypeID: "t/../t", ID: "e2"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = s.ListIDs(ctx, "testcoll", "../../tmp")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = s.ListTypes(ctx, "..")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = s.OpenAttachment(ctx, types.EntityRef{Coll: "testcoll", TypeID: "testtype", ID: "../e1"}, "f", "txt")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
