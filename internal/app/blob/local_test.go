package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	store, err := NewLocal(LocalConfig{BasePath: t.TempDir(), BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return store
}

func putString(t *testing.T, s Store, key, content, contentType string) {
	t.Helper()
	err := s.Put(context.Background(), key, bytes.NewReader([]byte(content)), int64(len(content)), &PutOptions{ContentType: contentType})
	if err != nil {
		t.Fatalf("Put(%q) error = %v", key, err)
	}
}

func TestLocal_PutGetStat(t *testing.T) {
	store := newTestLocal(t)
	ctx := context.Background()

	putString(t, store, "files/CS/Algorithms/2024/report.pdf", "pdf-bytes", "application/pdf")

	rc, err := store.Get(ctx, "files/CS/Algorithms/2024/report.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "pdf-bytes" {
		t.Errorf("Get() = %q, want %q", got, "pdf-bytes")
	}

	info, err := store.Stat(ctx, "files/CS/Algorithms/2024/report.pdf")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Name != "report.pdf" || info.Size != int64(len("pdf-bytes")) {
		t.Errorf("Stat() = %+v, unexpected name or size", info)
	}
	if info.ContentType != "application/pdf" {
		t.Errorf("Stat() ContentType = %q, want application/pdf", info.ContentType)
	}

	if _, err := store.Get(ctx, "files/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := store.Stat(ctx, "files/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLocal_PutOverwrites(t *testing.T) {
	store := newTestLocal(t)
	ctx := context.Background()

	putString(t, store, "files/a.txt", "first", "text/plain")
	putString(t, store, "files/a.txt", "second", "text/plain")

	rc, err := store.Get(ctx, "files/a.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "second" {
		t.Errorf("Get() after overwrite = %q, want %q", got, "second")
	}
}

func TestLocal_DeleteIdempotent(t *testing.T) {
	store := newTestLocal(t)
	ctx := context.Background()

	putString(t, store, "files/CS/a.txt", "x", "text/plain")

	if err := store.Delete(ctx, "files/CS/a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	// Second delete of the same key must be a no-op, not an error.
	if err := store.Delete(ctx, "files/CS/a.txt"); err != nil {
		t.Fatalf("Delete() repeat error = %v", err)
	}
	if _, err := store.Stat(ctx, "files/CS/a.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat() after delete error = %v, want ErrNotFound", err)
	}
}

func TestLocal_List(t *testing.T) {
	store := newTestLocal(t)
	ctx := context.Background()

	putString(t, store, "files/CS/one.pdf", "1", "application/pdf")
	putString(t, store, "files/CS/two.pdf", "22", "application/pdf")
	putString(t, store, "files/CS/Algorithms/nested.pdf", "333", "application/pdf")
	putString(t, store, "files/Math/other.pdf", "4", "application/pdf")

	listing, err := store.List(ctx, "files/CS")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(listing.Objects) != 2 {
		t.Fatalf("List() objects = %d, want 2", len(listing.Objects))
	}
	if listing.Objects[0].Key != "files/CS/one.pdf" || listing.Objects[1].Key != "files/CS/two.pdf" {
		t.Errorf("List() objects = %+v, unexpected keys", listing.Objects)
	}
	if len(listing.Prefixes) != 1 || listing.Prefixes[0] != "files/CS/Algorithms" {
		t.Errorf("List() prefixes = %v, want [files/CS/Algorithms]", listing.Prefixes)
	}

	// Listing an absent prefix is empty, not an error.
	empty, err := store.List(ctx, "files/Nope")
	if err != nil {
		t.Fatalf("List(absent) error = %v", err)
	}
	if len(empty.Objects) != 0 || len(empty.Prefixes) != 0 {
		t.Errorf("List(absent) = %+v, want empty", empty)
	}
}

func TestLocal_URL(t *testing.T) {
	store := newTestLocal(t)
	if got := store.URL("files/CS/a.pdf"); got != "/files/files/CS/a.pdf" {
		t.Errorf("URL() = %q", got)
	}
}
