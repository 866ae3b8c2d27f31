package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

// FileObj is a scoped handle on an entity attachment. Readers and writers
// both implement it; Close must be called on every handle, on every exit
// path, to release the underlying file. A writer's content only becomes
// visible at the attachment path when Close succeeds.
type FileObj interface {
	io.ReadWriteCloser

	// Name returns the attachment file name (basename with extension).
	Name() string
}

type readFileObj struct {
	f    *os.File
	name string
}

func (r *readFileObj) Read(p []byte) (int, error) { return r.f.Read(p) }

func (r *readFileObj) Write(p []byte) (int, error) {
	return 0, errors.WrapValidation(errors.ErrMalformedData, "Store", "FileObj",
		"write to read-only attachment")
}

func (r *readFileObj) Close() error { return r.f.Close() }
func (r *readFileObj) Name() string { return r.name }

type writeFileObj struct {
	f     *os.File
	final string
	name  string
	done  bool
}

func (w *writeFileObj) Read(p []byte) (int, error) {
	return 0, errors.WrapValidation(errors.ErrMalformedData, "Store", "FileObj",
		"read from write-only attachment")
}

func (w *writeFileObj) Write(p []byte) (int, error) { return w.f.Write(p) }

// Close flushes the temp file and publishes it at the attachment path.
// A failed rename removes the temp file so no partial content is left
// visible.
func (w *writeFileObj) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.f.Name())
		return errors.Wrap(err, "Store", "FileObj", "close temp attachment")
	}
	if err := os.Rename(w.f.Name(), w.final); err != nil {
		_ = os.Remove(w.f.Name())
		return errors.Wrap(err, "Store", "FileObj", "publish attachment")
	}
	return nil
}

func (w *writeFileObj) Name() string { return w.name }

// attachmentName builds the stored file name for an attachment field value.
func attachmentName(base, ext string) string {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return base + ext
}

// OpenAttachment returns a read handle on an entity attachment. The caller
// must Close the handle when finished.
func (s *Store) OpenAttachment(ctx context.Context, ref types.EntityRef, base, ext string) (FileObj, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRef("OpenAttachment", ref); err != nil {
		return nil, err
	}
	name := attachmentName(base, ext)
	f, err := os.Open(filepath.Join(s.entityDir(ref), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapNotFound(errors.ErrNotFound, "Store", "OpenAttachment",
				fmt.Sprintf("open attachment %s for %s", name, ref))
		}
		return nil, errors.Wrap(err, "Store", "OpenAttachment", "open attachment")
	}
	return &readFileObj{f: f, name: name}, nil
}

// CreateAttachment returns a write handle on an entity attachment. Content
// written to the handle is staged in a temp file and published atomically
// when the handle is closed; the entity must already exist.
func (s *Store) CreateAttachment(ctx context.Context, ref types.EntityRef, base, ext string) (FileObj, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRef("CreateAttachment", ref); err != nil {
		return nil, err
	}
	dir := s.entityDir(ref)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapNotFound(errors.ErrNotFound, "Store", "CreateAttachment",
				fmt.Sprintf("locate entity %s", ref))
		}
		return nil, errors.Wrap(err, "Store", "CreateAttachment", "stat entity directory")
	}
	name := attachmentName(base, ext)
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "Store", "CreateAttachment", "create temp attachment")
	}
	return &writeFileObj{f: f, final: filepath.Join(dir, name), name: name}, nil
}
