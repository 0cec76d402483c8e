package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	return NewTree(newTestLocal(t))
}

func TestTree_MarkerLifecycle(t *testing.T) {
	tree := newTestTree(t)
	ctx := context.Background()

	exists, err := tree.FolderExists(ctx, "CS/Algorithms")
	if err != nil || exists {
		t.Fatalf("FolderExists() before create = %v, %v", exists, err)
	}

	if err := tree.CreateMarker(ctx, "CS/Algorithms"); err != nil {
		t.Fatalf("CreateMarker() error = %v", err)
	}

	exists, err = tree.FolderExists(ctx, "CS/Algorithms")
	if err != nil || !exists {
		t.Fatalf("FolderExists() after create = %v, %v", exists, err)
	}

	// The marker makes the empty folder enumerable from the parent...
	children, err := tree.ListChildren(ctx, "CS")
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(children.Folders) != 1 || children.Folders[0].Path != "CS/Algorithms" {
		t.Errorf("ListChildren() folders = %+v, want CS/Algorithms", children.Folders)
	}

	// ...but never surfaces as a file itself.
	inside, err := tree.ListChildren(ctx, "CS/Algorithms")
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(inside.Files) != 0 {
		t.Errorf("ListChildren() files = %+v, marker must be filtered", inside.Files)
	}

	if err := tree.DeleteMarker(ctx, "CS/Algorithms"); err != nil {
		t.Fatalf("DeleteMarker() error = %v", err)
	}
	if err := tree.DeleteMarker(ctx, "CS/Algorithms"); err != nil {
		t.Fatalf("DeleteMarker() repeat error = %v", err)
	}
}

func TestTree_ListChildrenFiltersReservedRoots(t *testing.T) {
	tree := newTestTree(t)
	ctx := context.Background()

	if err := tree.CreateMarker(ctx, "CS"); err != nil {
		t.Fatalf("CreateMarker() error = %v", err)
	}
	// Infrastructure area living under the storage root.
	err := tree.Store().Put(ctx, "files/profile-photos/u1.png", bytes.NewReader([]byte("png")), 3, nil)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	children, err := tree.ListChildren(ctx, "")
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	for _, f := range children.Folders {
		if f.Name == "profile-photos" {
			t.Error("reserved root segment surfaced as a folder")
		}
	}
	if len(children.Folders) != 1 || children.Folders[0].Name != "CS" {
		t.Errorf("ListChildren() folders = %+v, want only CS", children.Folders)
	}
}

func TestTree_FileRoundTrip(t *testing.T) {
	tree := newTestTree(t)
	ctx := context.Background()

	content := []byte("%PDF-1.4 fake")
	err := tree.PutFile(ctx, "CS/Algorithms/2024/report.pdf", bytes.NewReader(content), int64(len(content)), &PutOptions{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("PutFile() error = %v", err)
	}

	exists, err := tree.FileExists(ctx, "CS/Algorithms/2024/report.pdf")
	if err != nil || !exists {
		t.Fatalf("FileExists() = %v, %v", exists, err)
	}

	url, err := tree.DownloadURL(ctx, "CS/Algorithms/2024/report.pdf")
	if err != nil {
		t.Fatalf("DownloadURL() error = %v", err)
	}
	if url == "" {
		t.Error("DownloadURL() returned empty URL")
	}

	children, err := tree.ListChildren(ctx, "CS/Algorithms/2024")
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(children.Files) != 1 {
		t.Fatalf("ListChildren() files = %d, want 1", len(children.Files))
	}
	f := children.Files[0]
	if f.Name != "report.pdf" || f.Path != "CS/Algorithms/2024/report.pdf" || f.Size != int64(len(content)) {
		t.Errorf("ListChildren() file = %+v, unexpected entry", f)
	}

	if err := tree.DeleteFile(ctx, "CS/Algorithms/2024/report.pdf"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if _, err := tree.DownloadURL(ctx, "CS/Algorithms/2024/report.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DownloadURL() after delete error = %v, want ErrNotFound", err)
	}
}
