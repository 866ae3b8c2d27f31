package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

// CollectionIDs returns the sorted ids of all collections present under
// the store root, excluding the reserved site-data collection.
func (s *Store) CollectionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrap(err, "Store", "CollectionIDs", "read store root")
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == annal.SiteCollectionID || !annal.ValidAnyID(name) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, name, annal.CollMetaFile)); err == nil {
			ids = append(ids, name)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CollExists reports whether a collection metadata document is present.
func (s *Store) CollExists(ctx context.Context, coll string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.collDir(coll), annal.CollMetaFile))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "Store", "CollExists", "stat collection metadata")
}

// CreateColl writes metadata for a new collection. The software version is
// stamped into the stored values.
func (s *Store) CreateColl(ctx context.Context, coll string, values types.Values) (err error) {
	defer func() { s.record("create_coll", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !annal.ValidAnyID(coll) {
		return errors.WrapValidation(errors.ErrInvalidID, "Store", "CreateColl",
			fmt.Sprintf("check collection id %q", coll))
	}
	exists, err := s.CollExists(ctx, coll)
	if err != nil {
		return err
	}
	if exists {
		return errors.WrapConflict(errors.ErrAlreadyExists, "Store", "CreateColl",
			fmt.Sprintf("create collection %s", coll))
	}
	return s.SaveCollMeta(ctx, coll, values)
}

// LoadCollMeta reads a collection's metadata document. Returns (nil, nil)
// when the collection is absent.
func (s *Store) LoadCollMeta(ctx context.Context, coll string) (types.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.collDir(coll), annal.CollMetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Store", "LoadCollMeta", "read collection metadata")
	}
	var values types.Values
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.WrapLoad(errors.ErrMalformedData, "Store", "LoadCollMeta",
			fmt.Sprintf("parse collection metadata for %s: %v", coll, err))
	}
	return migrateValues("", values), nil
}

// SaveCollMeta writes a collection's metadata document atomically,
// stamping the current software version.
func (s *Store) SaveCollMeta(ctx context.Context, coll string, values types.Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if values == nil {
		values = types.Values{}
	}
	values[annal.PropID] = coll
	values[annal.PropSoftwareVersion] = annal.SoftwareVersion

	dir := s.collDir(coll)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "Store", "SaveCollMeta", "create collection directory")
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.WrapSystem(err, "Store", "SaveCollMeta", "marshal collection metadata")
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "Store", "SaveCollMeta", "write temp file")
	}
	if err := os.Rename(tmp, filepath.Join(dir, annal.CollMetaFile)); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "Store", "SaveCollMeta", "rename temp file")
	}
	return nil
}

// RemoveColl deletes a collection directory tree.
func (s *Store) RemoveColl(ctx context.Context, coll string) (err error) {
	defer func() { s.record("remove_coll", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := s.CollExists(ctx, coll)
	if err != nil {
		return err
	}
	if !exists {
		return errors.WrapNotFound(errors.ErrNotFound, "Store", "RemoveColl",
			fmt.Sprintf("remove collection %s", coll))
	}
	if err := os.RemoveAll(s.collDir(coll)); err != nil {
		return errors.Wrap(err, "Store", "RemoveColl", "remove collection directory")
	}
	return nil
}

// RenameColl renames a collection directory and rewrites its metadata to
// carry the new id.
func (s *Store) RenameColl(ctx context.Context, oldID, newID string) (err error) {
	defer func() { s.record("rename_coll", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !annal.ValidAnyID(newID) {
		return errors.WrapValidation(errors.ErrInvalidID, "Store", "RenameColl",
			fmt.Sprintf("check collection id %q", newID))
	}
	exists, err := s.CollExists(ctx, oldID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.WrapNotFound(errors.ErrNotFound, "Store", "RenameColl",
			fmt.Sprintf("locate collection %s", oldID))
	}
	if taken, err := s.CollExists(ctx, newID); err != nil {
		return err
	} else if taken {
		return errors.WrapConflict(errors.ErrAlreadyExists, "Store", "RenameColl",
			fmt.Sprintf("rename to collection %s", newID))
	}
	if err := os.Rename(s.collDir(oldID), s.collDir(newID)); err != nil {
		return errors.Wrap(err, "Store", "RenameColl", "move collection directory")
	}

	values, err := s.LoadCollMeta(ctx, newID)
	if err != nil {
		return err
	}
	if values == nil {
		values = types.Values{}
	}
	return s.SaveCollMeta(ctx, newID, values)
}

// WriteCollFile writes an auxiliary collection file (context document,
// README) atomically under the collection directory.
func (s *Store) WriteCollFile(ctx context.Context, coll, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.collDir(coll)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "Store", "WriteCollFile", "create collection directory")
	}
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "Store", "WriteCollFile", "write temp file")
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "Store", "WriteCollFile", "rename temp file")
	}
	return nil
}

// ReadCollFile reads an auxiliary collection file. Returns (nil, nil)
// when the file is absent.
func (s *Store) ReadCollFile(ctx context.Context, coll, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.collDir(coll), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Store", "ReadCollFile", "read collection file")
	}
	return data, nil
}
