// internal/app/blob/tree.go
package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/fie-storage/fiestorage/internal/app/repopath"
)

// storageRoot is the key prefix holding all repository content. It is an
// adapter concern only: logical paths never carry it, and nothing outside
// this package builds keys with it.
const storageRoot = "files"

// Tree exposes folder semantics over a flat object store: folders are key
// prefixes kept enumerable by a zero-byte marker object, files are
// ordinary objects. All keys live under the storage root.
type Tree struct {
	store Store
}

// NewTree wraps a store in the repository tree adapter.
func NewTree(store Store) *Tree {
	return &Tree{store: store}
}

// Store returns the underlying object store, for infrastructure areas
// (profile photos) that live outside the repository tree proper.
func (t *Tree) Store() Store {
	return t.store
}

// key maps a logical path to its blob key.
func (t *Tree) key(path string) string {
	if path == "" {
		return storageRoot
	}
	return storageRoot + "/" + path
}

// logical maps a blob key back to its logical path.
func logical(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, storageRoot), "/")
}

// FileEntry is one file surfaced by ListChildren.
type FileEntry struct {
	Name string
	Path string // logical path
	Size int64
}

// FolderEntry is one subfolder surfaced by ListChildren.
type FolderEntry struct {
	Name string
	Path string // logical path
}

// Children is the tree view of one folder.
type Children struct {
	Files   []FileEntry
	Folders []FolderEntry
}

// ListChildren lists the immediate files and subfolders of the folder at
// path. Marker objects are filtered out, and reserved infrastructure
// segments at the repository root never surface as user-visible entries.
func (t *Tree) ListChildren(ctx context.Context, path string) (Children, error) {
	listing, err := t.store.List(ctx, t.key(path))
	if err != nil {
		return Children{}, err
	}

	var out Children
	for _, obj := range listing.Objects {
		if obj.Name == repopath.MarkerName {
			continue
		}
		lp := logical(obj.Key)
		if path == "" && repopath.Reserved(lp) {
			continue
		}
		out.Files = append(out.Files, FileEntry{Name: obj.Name, Path: lp, Size: obj.Size})
	}
	for _, p := range listing.Prefixes {
		lp := logical(p)
		if path == "" && repopath.Reserved(lp) {
			continue
		}
		out.Folders = append(out.Folders, FolderEntry{Name: repopath.Base(lp), Path: lp})
	}
	return out, nil
}

// PutFile uploads file bytes at the logical path.
func (t *Tree) PutFile(ctx context.Context, path string, r io.Reader, size int64, opts *PutOptions) error {
	return t.store.Put(ctx, t.key(path), r, size, opts)
}

// OpenFile opens the file at the logical path for reading.
func (t *Tree) OpenFile(ctx context.Context, path string) (io.ReadCloser, error) {
	return t.store.Get(ctx, t.key(path))
}

// DeleteFile removes the file blob at the logical path. Deleting an
// already-absent file is a no-op.
func (t *Tree) DeleteFile(ctx context.Context, path string) error {
	return t.store.Delete(ctx, t.key(path))
}

// StatFile returns the stored object's info for the file at the
// logical path. Returns ErrNotFound when no blob exists.
func (t *Tree) StatFile(ctx context.Context, path string) (*ObjectInfo, error) {
	return t.store.Stat(ctx, t.key(path))
}

// FileExists reports whether a blob exists at the logical path.
func (t *Tree) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := t.store.Stat(ctx, t.key(path))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DownloadURL returns a fetchable reference for the file at path.
// Fails with ErrNotFound when the blob has been deleted.
func (t *Tree) DownloadURL(ctx context.Context, path string) (string, error) {
	if _, err := t.store.Stat(ctx, t.key(path)); err != nil {
		return "", err
	}
	return t.store.URL(t.key(path)), nil
}

// CreateMarker writes the zero-byte folder marker that keeps an empty
// folder enumerable by prefix listing. The marker is never read.
func (t *Tree) CreateMarker(ctx context.Context, folderPath string) error {
	key := t.key(repopath.Join(folderPath, repopath.MarkerName))
	return t.store.Put(ctx, key, bytes.NewReader(nil), 0, &PutOptions{
		ContentType: "application/octet-stream",
	})
}

// DeleteMarker removes the folder marker. Absent markers are a no-op.
func (t *Tree) DeleteMarker(ctx context.Context, folderPath string) error {
	return t.store.Delete(ctx, t.key(repopath.Join(folderPath, repopath.MarkerName)))
}

// FolderExists reports whether the folder's marker object is present.
func (t *Tree) FolderExists(ctx context.Context, folderPath string) (bool, error) {
	_, err := t.store.Stat(ctx, t.key(repopath.Join(folderPath, repopath.MarkerName)))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
