package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/metric"
	"github.com/gklyne/annalist-sub001/types"
)

// Store is a filesystem-backed entity store. All operations are safe for
// concurrent use from multiple goroutines; metadata writes are atomic
// within a filesystem.
type Store struct {
	root    string
	baseURL string
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBaseURL sets the base URL from which entity URLs are derived. A
// trailing slash is added if missing.
func WithBaseURL(baseURL string) Option {
	return func(s *Store) {
		if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		s.baseURL = baseURL
	}
}

// WithMetrics enables operation metrics recording.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a store rooted at the given directory, creating it if
// necessary.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, errors.WrapValidation(errors.ErrInvalidID, "Store", "New", "root directory cannot be empty")
	}
	s := &Store{
		root:    root,
		baseURL: "file://" + root + "/",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "Store", "New", "create root directory")
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// BaseURL returns the base URL from which entity URLs are derived.
func (s *Store) BaseURL() string {
	return s.baseURL
}

func (s *Store) record(operation string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordStoreOperation(operation, status)
}

// Create writes a new entity document. It fails with a conflict when the
// id is already taken in the parent type directory.
func (s *Store) Create(ctx context.Context, ref types.EntityRef, values types.Values) (e *Entity, err error) {
	defer func() { s.record("create", err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRef("Create", ref); err != nil {
		return nil, err
	}
	metaPath := s.entityMetaPath(ref)
	if _, statErr := os.Stat(metaPath); statErr == nil {
		return nil, errors.WrapConflict(errors.ErrAlreadyExists, "Store", "Create",
			fmt.Sprintf("create entity %s", ref))
	}
	if err := s.writeMeta(ref, values); err != nil {
		return nil, err
	}
	s.logger.Debug("entity created", "ref", ref.String())
	return &Entity{Ref: ref, Values: values, URL: s.entityURL(ref)}, nil
}

// Save writes an entity document, creating or replacing it.
func (s *Store) Save(ctx context.Context, ref types.EntityRef, values types.Values) (err error) {
	defer func() { s.record("save", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkRef("Save", ref); err != nil {
		return err
	}
	return s.writeMeta(ref, values)
}

// writeMeta writes an entity metadata document atomically: marshal to a
// unique temp file in the target directory, then rename into place.
func (s *Store) writeMeta(ref types.EntityRef, values types.Values) error {
	dir := s.entityDir(ref)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "Store", "writeMeta", "create entity directory")
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.WrapSystem(err, "Store", "writeMeta", "marshal entity values")
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "Store", "writeMeta", "write temp file")
	}
	if err := os.Rename(tmp, filepath.Join(dir, annal.MetaFileName(ref.TypeID))); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "Store", "writeMeta", "rename temp file")
	}
	return nil
}

// Load reads an entity document. It returns (nil, nil) when the entity is
// absent, and a load error, with diagnostics captured on the returned
// entity under @error/@message, when the document is malformed.
func (s *Store) Load(ctx context.Context, ref types.EntityRef) (e *Entity, err error) {
	defer func() {
		if err == nil && e != nil {
			s.record("load", nil)
		} else if err != nil {
			s.record("load", err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRef("Load", ref); err != nil {
		return nil, err
	}
	metaPath := s.entityMetaPath(ref)
	data, readErr := os.ReadFile(metaPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, nil
		}
		return nil, errors.Wrap(readErr, "Store", "Load", "read metadata")
	}

	var values types.Values
	if jsonErr := json.Unmarshal(data, &values); jsonErr != nil {
		msg := fmt.Sprintf("malformed entity data for %s: %v", ref, jsonErr)
		bad := &Entity{
			Ref: ref,
			Values: types.Values{
				annal.KeyError:   errors.ErrMalformedData.Error(),
				annal.KeyMessage: msg,
			},
			URL: s.entityURL(ref),
			Err: msg,
		}
		s.logger.Error("entity load failed", "ref", ref.String(), "error", jsonErr)
		return bad, errors.WrapLoad(errors.ErrMalformedData, "Store", "Load", msg)
	}

	migrated := migrateValues(ref.TypeID, values)
	if s.metrics != nil {
		s.metrics.RecordEntityLoaded(ref.TypeID)
	}
	return &Entity{Ref: ref, Values: migrated, URL: s.entityURL(ref)}, nil
}

// Exists reports whether an entity document is present.
func (s *Store) Exists(ctx context.Context, ref types.EntityRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkRef("Exists", ref); err != nil {
		return false, err
	}
	_, err := os.Stat(s.entityMetaPath(ref))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "Store", "Exists", "stat metadata")
}

// Remove deletes an entity directory tree, including attachments.
func (s *Store) Remove(ctx context.Context, ref types.EntityRef) (err error) {
	defer func() { s.record("remove", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := s.Exists(ctx, ref)
	if err != nil {
		return err
	}
	if !exists {
		return errors.WrapNotFound(errors.ErrNotFound, "Store", "Remove",
			fmt.Sprintf("remove entity %s", ref))
	}
	if err := os.RemoveAll(s.entityDir(ref)); err != nil {
		return errors.Wrap(err, "Store", "Remove", "remove entity directory")
	}
	s.logger.Debug("entity removed", "ref", ref.String())
	return nil
}

// Rename moves an entity directory to new coordinates, atomic within a
// filesystem. Attachments move with the directory. When the type id
// changes, the metadata document is renamed to the target type's file
// name.
func (s *Store) Rename(ctx context.Context, oldRef, newRef types.EntityRef) (err error) {
	defer func() { s.record("rename", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkRef("Rename", oldRef); err != nil {
		return err
	}
	if err := checkRef("Rename", newRef); err != nil {
		return err
	}
	exists, err := s.Exists(ctx, oldRef)
	if err != nil {
		return err
	}
	if !exists {
		return errors.WrapNotFound(errors.ErrNotFound, "Store", "Rename",
			fmt.Sprintf("locate entity %s", oldRef))
	}
	if taken, err := s.Exists(ctx, newRef); err != nil {
		return err
	} else if taken {
		return errors.WrapConflict(errors.ErrAlreadyExists, "Store", "Rename",
			fmt.Sprintf("rename to %s", newRef))
	}

	newDir := s.entityDir(newRef)
	if err := os.MkdirAll(filepath.Dir(newDir), 0o755); err != nil {
		return errors.Wrap(err, "Store", "Rename", "create target type directory")
	}
	if err := os.Rename(s.entityDir(oldRef), newDir); err != nil {
		return errors.Wrap(err, "Store", "Rename", "move entity directory")
	}

	oldMeta := annal.MetaFileName(oldRef.TypeID)
	newMeta := annal.MetaFileName(newRef.TypeID)
	if oldMeta != newMeta {
		if err := os.Rename(filepath.Join(newDir, oldMeta), filepath.Join(newDir, newMeta)); err != nil {
			return errors.Wrap(err, "Store", "Rename", "rename metadata document")
		}
	}
	s.logger.Debug("entity renamed", "from", oldRef.String(), "to", newRef.String())
	return nil
}

// CopyFiles copies all attachments (every file beside the metadata
// document) from one entity to another.
func (s *Store) CopyFiles(ctx context.Context, srcRef, dstRef types.EntityRef) (err error) {
	defer func() { s.record("copy_files", err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkRef("CopyFiles", srcRef); err != nil {
		return err
	}
	if err := checkRef("CopyFiles", dstRef); err != nil {
		return err
	}
	srcDir := s.entityDir(srcRef)
	dstDir := s.entityDir(dstRef)
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return errors.Wrap(err, "Store", "CopyFiles", "read source directory")
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return errors.Wrap(err, "Store", "CopyFiles", "create target directory")
	}
	srcMeta := annal.MetaFileName(srcRef.TypeID)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == srcMeta || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			return errors.Wrap(err, "Store", "CopyFiles", "read attachment")
		}
		if err := os.WriteFile(filepath.Join(dstDir, name), data, 0o644); err != nil {
			return errors.Wrap(err, "Store", "CopyFiles", "write attachment")
		}
	}
	return nil
}

// ListIDs returns the sorted ids of all entities of a type within a
// collection. A missing type directory yields an empty list.
func (s *Store) ListIDs(ctx context.Context, coll, typeID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !annal.ValidAnyID(coll) || !annal.ValidAnyID(typeID) {
		return nil, errors.WrapValidation(errors.ErrInvalidID, "Store", "ListIDs",
			fmt.Sprintf("check coordinates %s/%s", coll, typeID))
	}
	dir := filepath.Join(s.root, coll, annal.CollDataDir, typeID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Store", "ListIDs", "read type directory")
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && annal.ValidAnyID(entry.Name()) {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListTypes returns the sorted type ids present in a collection's data
// tree.
func (s *Store) ListTypes(ctx context.Context, coll string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !annal.ValidAnyID(coll) {
		return nil, errors.WrapValidation(errors.ErrInvalidID, "Store", "ListTypes",
			fmt.Sprintf("check collection id %q", coll))
	}
	dir := filepath.Join(s.root, coll, annal.CollDataDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Store", "ListTypes", "read data directory")
	}
	typeIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && annal.ValidAnyID(entry.Name()) {
			typeIDs = append(typeIDs, entry.Name())
		}
	}
	sort.Strings(typeIDs)
	return typeIDs, nil
}

// Attachments returns the sorted names of all files stored beside an
// entity's metadata document.
func (s *Store) Attachments(ctx context.Context, ref types.EntityRef) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRef("Attachments", ref); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.entityDir(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Store", "Attachments", "read entity directory")
	}
	meta := annal.MetaFileName(ref.TypeID)
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == meta || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
