// internal/app/blob/local.go
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// LocalConfig configures the filesystem-backed store.
type LocalConfig struct {
	BasePath string // directory holding all objects
	BaseURL  string // URL prefix for serving objects (e.g. "/files")
}

// Local stores objects as plain files under a base directory. Keys map to
// relative file paths, so one-level prefix listing is a directory read.
// Used for development and tests; production deployments use MinIO.
type Local struct {
	base    string
	baseURL string
}

// NewLocal creates a filesystem store rooted at cfg.BasePath.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("local storage: base path is required")
	}
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: create base path: %w", err)
	}
	return &Local{
		base:    cfg.BasePath,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// filePath maps a key to a path under the base directory, rejecting keys
// that would escape it.
func (l *Local) filePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("local storage: empty key")
	}
	return filepath.Join(l.base, filepath.FromSlash(clean)), nil
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader, size int64, opts *PutOptions) error {
	fp, err := l.filePath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("local storage: mkdir: %w", err)
	}
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf("local storage: create: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("local storage: write: %w", err)
	}
	return f.Close()
}

func (l *Local) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fp, err := l.filePath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fp)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local storage: open: %w", err)
	}
	return f, nil
}

func (l *Local) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	fp, err := l.filePath(key)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(fp)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local storage: stat: %w", err)
	}
	if fi.IsDir() {
		// Directories are prefixes, not objects.
		return nil, ErrNotFound
	}
	return &ObjectInfo{
		Key:  key,
		Name: path.Base(key),
		Size: fi.Size(),
		// The filesystem stores no content type; derive it from the
		// extension so copies keep a sensible type.
		ContentType: mime.TypeByExtension(path.Ext(key)),
	}, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	fp, err := l.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local storage: delete: %w", err)
	}
	// Prune now-empty parent directories so emptied prefixes disappear
	// from listings the way they do on a real object store.
	dir := filepath.Dir(fp)
	for dir != l.base && strings.HasPrefix(dir, l.base) {
		if err := os.Remove(dir); err != nil {
			break // not empty or already gone
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

func (l *Local) List(ctx context.Context, prefix string) (Listing, error) {
	dir := l.base
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		fp, err := l.filePath(prefix)
		if err != nil {
			return Listing{}, err
		}
		dir = fp
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Listing{}, nil // empty prefix, same as an object store
	}
	if err != nil {
		return Listing{}, fmt.Errorf("local storage: list: %w", err)
	}

	var out Listing
	for _, e := range entries {
		key := e.Name()
		if prefix != "" {
			key = prefix + "/" + e.Name()
		}
		if e.IsDir() {
			out.Prefixes = append(out.Prefixes, key)
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out.Objects = append(out.Objects, ObjectInfo{Key: key, Name: e.Name(), Size: info.Size()})
	}
	sort.Slice(out.Objects, func(i, j int) bool { return out.Objects[i].Key < out.Objects[j].Key })
	sort.Strings(out.Prefixes)
	return out, nil
}

func (l *Local) URL(key string) string {
	if l.baseURL == "" {
		return "/" + strings.TrimPrefix(key, "/")
	}
	return l.baseURL + "/" + strings.TrimPrefix(key, "/")
}
