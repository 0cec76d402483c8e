// Package repo implements the repository service: the consistency core
// that keeps the blob tree and the student_works metadata collection in
// step across create, list, rename, and delete operations.
//
// Neither backend offers cross-store transactions, so every multi-step
// operation is a short-lived saga ordered to keep failures recoverable:
// the store trusted for existence (the blob tree, which listing reads)
// is written first on create and last on delete. A crash mid-operation
// leaves extra, ignorable metadata or a record-less blob, both of which
// listing tolerates; it never leaves invisible-but-present data.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fie-storage/fiestorage/internal/app/blob"
	"github.com/fie-storage/fiestorage/internal/app/repopath"
	"github.com/fie-storage/fiestorage/internal/app/store/works"
	"github.com/fie-storage/fiestorage/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AllowedFileTypes is the MIME allow-list for student uploads.
var AllowedFileTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/jpeg",
	"image/png",
	"image/gif",
}

// AllowedFileType reports whether a MIME type is on the upload allow-list.
func AllowedFileType(contentType string) bool {
	for _, t := range AllowedFileTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Actor identifies the caller of a mutating operation, as supplied by the
// authentication layer. The service records it in metadata; role gating
// happens at the HTTP layer.
type Actor struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Role  string
}

// Item is one file in a listing. Metadata is nil for an orphaned blob
// (a record-less file): the item still appears, degraded, because the
// blob tree is the source of truth for existence.
type Item struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Size        int64        `json:"size"`
	DownloadURL string       `json:"download_url"`
	Metadata    *models.Work `json:"metadata"`
}

// Folder is one subfolder in a listing.
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Listing is the unified view of one folder.
type Listing struct {
	Items   []Item   `json:"items"`
	Folders []Folder `json:"folders"`
}

// Service composes the blob tree adapter and the works store.
type Service struct {
	tree   *blob.Tree
	works  *works.Store
	logger *zap.Logger
}

// New creates a repository service.
func New(tree *blob.Tree, workStore *works.Store, logger *zap.Logger) *Service {
	return &Service{
		tree:   tree,
		works:  workStore,
		logger: logger,
	}
}

// List returns the files and subfolders directly under path. The blob
// tree decides what exists; metadata decorates it. Files whose record is
// missing are surfaced with nil metadata rather than dropped.
func (s *Service) List(ctx context.Context, path string) (Listing, error) {
	path, err := repopath.Clean(path)
	if err != nil {
		return Listing{}, ErrInvalidPath
	}
	if path != "" && repopath.Reserved(rootSegment(path)) {
		return Listing{}, ErrInvalidPath
	}

	children, err := s.tree.ListChildren(ctx, path)
	if err != nil {
		return Listing{}, fmt.Errorf("list %q: %w", path, err)
	}

	paths := make([]string, 0, len(children.Files))
	for _, f := range children.Files {
		paths = append(paths, f.Path)
	}
	records, err := s.works.GetByPaths(ctx, paths)
	if err != nil {
		return Listing{}, fmt.Errorf("list %q: fetch metadata: %w", path, err)
	}

	out := Listing{Items: []Item{}, Folders: []Folder{}}
	for _, f := range children.Files {
		item := Item{Name: f.Name, Path: f.Path, Size: f.Size}
		// The recorded URL goes stale after a rename (the blob moved to a
		// new key), so resolve against the live blob and keep the stored
		// value only when the stat fails.
		url, urlErr := s.tree.DownloadURL(ctx, f.Path)
		if rec := records[f.Path]; rec != nil {
			item.ID = rec.ID.Hex()
			item.Metadata = rec
			item.DownloadURL = rec.DownloadURL
			if urlErr == nil {
				item.DownloadURL = url
				rec.DownloadURL = url
			}
		} else {
			// Orphaned blob: record-less but real. Degraded metadata,
			// fresh URL straight from the store.
			if urlErr == nil {
				item.DownloadURL = url
			}
			s.logger.Warn("file has no metadata record, listing degraded",
				zap.String("path", f.Path))
		}
		out.Items = append(out.Items, item)
	}

	seen := make(map[string]bool, len(children.Folders))
	for _, f := range children.Folders {
		if seen[f.Path] {
			continue
		}
		if path == "" && repopath.Reserved(f.Name) {
			continue
		}
		seen[f.Path] = true
		out.Folders = append(out.Folders, Folder{Name: f.Name, Path: f.Path})
	}
	return out, nil
}

// FolderTree returns every folder record at or under path, ordered by
// path, so a navigation tree builds from one query instead of a listing
// per level. Records only; a marker-only ghost folder does not appear.
func (s *Service) FolderTree(ctx context.Context, path string) ([]models.Work, error) {
	path, err := repopath.Clean(path)
	if err != nil {
		return nil, ErrInvalidPath
	}
	if path != "" && repopath.Reserved(rootSegment(path)) {
		return nil, ErrInvalidPath
	}
	return s.works.ListFolders(ctx, path)
}

// CreateFolder creates a folder under parentPath. The marker is written
// before the metadata record: a marker with no record is a listable
// "ghost" folder missing only cosmetic fields, while a record with no
// marker would be unreachable from every listing.
func (s *Service) CreateFolder(ctx context.Context, parentPath, name string, actor Actor) (*models.Work, error) {
	parentPath, err := repopath.Clean(parentPath)
	if err != nil {
		return nil, ErrInvalidPath
	}
	if !repopath.ValidName(name) {
		return nil, ErrInvalidPath
	}
	if parentPath == "" && repopath.Reserved(name) {
		return nil, ErrInvalidPath
	}

	path := repopath.Join(parentPath, name)

	// Best-effort duplicate guard (read-then-write, racy by design).
	if exists, err := s.tree.FolderExists(ctx, path); err != nil {
		return nil, fmt.Errorf("create folder %q: %w", path, err)
	} else if exists {
		return nil, ErrDuplicateFolder
	}
	if rec, err := s.works.GetByPath(ctx, path); err != nil {
		return nil, fmt.Errorf("create folder %q: %w", path, err)
	} else if rec != nil {
		return nil, ErrDuplicateFolder
	}

	if err := s.tree.CreateMarker(ctx, path); err != nil {
		return nil, fmt.Errorf("create folder %q: marker: %w", path, err)
	}

	folder, err := s.works.CreateFolder(ctx, works.FolderInput{Name: name, Path: path})
	if err != nil {
		// Marker without record: a ghost folder, still listable and
		// recoverable. Preferable to a record nothing can reach.
		s.logger.Warn("folder marker created but metadata insert failed",
			zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("create folder %q: metadata: %w", path, err)
	}

	s.logger.Info("folder created",
		zap.String("path", path),
		zap.String("created_by", actor.ID.Hex()))
	return folder, nil
}

// UploadInput describes one student upload. The classification triple is
// explicit request state, never ambient: it decides the destination path
// and is stored redundantly on the record.
type UploadInput struct {
	Career       string
	Subject      string
	AcademicYear string
	FileName     string
	Content      io.Reader
	Size         int64
	ContentType  string
	Actor        Actor
}

// UploadFile validates, uploads the blob, resolves its download URL, and
// writes the metadata record, in that order. Uploading to an occupied
// path is a re-submission: the blob is overwritten and the record
// replaced, dropping the superseded upload's comments and grade. A
// metadata failure after a successful put leaves an orphaned blob:
// listable, degraded, and self-healing on re-upload; never silently
// lost.
func (s *Service) UploadFile(ctx context.Context, in UploadInput) (*models.Work, error) {
	for _, seg := range []string{in.Career, in.Subject, in.AcademicYear, in.FileName} {
		if !repopath.ValidName(seg) {
			return nil, ErrInvalidPath
		}
	}
	if repopath.Reserved(in.Career) {
		return nil, ErrInvalidPath
	}
	if !AllowedFileType(in.ContentType) {
		return nil, ErrUnsupportedFileType
	}

	path := repopath.Join(repopath.Join(repopath.Join(in.Career, in.Subject), in.AcademicYear), in.FileName)

	// A folder at the destination path must never be clobbered by a file.
	if exists, err := s.tree.FolderExists(ctx, path); err != nil {
		return nil, fmt.Errorf("upload %q: %w", path, err)
	} else if exists {
		return nil, ErrDuplicateFolder
	}

	opts := &blob.PutOptions{
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"uploaded-by":   in.Actor.ID.Hex(),
			"uploader-name": in.Actor.Name,
			"career":        in.Career,
			"subject":       in.Subject,
			"academic-year": in.AcademicYear,
		},
	}
	if err := s.tree.PutFile(ctx, path, in.Content, in.Size, opts); err != nil {
		return nil, fmt.Errorf("upload %q: %w", path, err)
	}

	url, err := s.tree.DownloadURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("upload %q: resolve url: %w", path, err)
	}

	work, err := s.works.CreateOrReplace(ctx, works.CreateInput{
		Name:         in.FileName,
		Path:         path,
		Size:         in.Size,
		ContentType:  in.ContentType,
		DownloadURL:  url,
		UploadedBy:   in.Actor.ID,
		UploaderName: in.Actor.Name,
		Career:       in.Career,
		Subject:      in.Subject,
		AcademicYear: in.AcademicYear,
	})
	if err != nil {
		s.logger.Warn("blob uploaded but metadata insert failed, blob orphaned",
			zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("upload %q: metadata: %w", path, err)
	}

	s.logger.Info("file uploaded",
		zap.String("path", path),
		zap.Int64("size", in.Size),
		zap.String("uploaded_by", in.Actor.ID.Hex()))
	return work, nil
}

// RenameFolder moves the folder oldName under parentPath to newName.
//
// The blob store has no atomic move, so every object is copied to the new
// prefix and then deleted, one at a time, children before parents. The
// items are processed sequentially on purpose: it bounds the blast radius
// of a mid-rename failure and keeps the error attributable to a single
// item. A failure partway surfaces as *PartialRenameError listing what
// moved and what did not. Once the blobs are relocated, every metadata
// path is rewritten in one atomic batch.
func (s *Service) RenameFolder(ctx context.Context, parentPath, oldName, newName string, actor Actor) error {
	parentPath, err := repopath.Clean(parentPath)
	if err != nil {
		return ErrInvalidPath
	}
	if !repopath.ValidName(oldName) || !repopath.ValidName(newName) {
		return ErrInvalidPath
	}
	if parentPath == "" && repopath.Reserved(newName) {
		return ErrInvalidPath
	}
	if oldName == newName {
		return nil
	}

	oldPath := repopath.Join(parentPath, oldName)
	newPath := repopath.Join(parentPath, newName)

	if exists, err := s.tree.FolderExists(ctx, oldPath); err != nil {
		return fmt.Errorf("rename %q: %w", oldPath, err)
	} else if !exists {
		return ErrNotFound
	}
	if exists, err := s.tree.FolderExists(ctx, newPath); err != nil {
		return fmt.Errorf("rename %q: %w", oldPath, err)
	} else if exists {
		return ErrDuplicateFolder
	}

	var moved []string
	if err := s.moveSubtree(ctx, oldPath, newPath, &moved); err != nil {
		remaining := s.remainingUnder(ctx, oldPath)
		return &PartialRenameError{
			OldPath:   oldPath,
			NewPath:   newPath,
			Moved:     moved,
			Remaining: remaining,
			Err:       err,
		}
	}

	records, err := s.works.ListByPathPrefix(ctx, oldPath)
	if err != nil {
		return fmt.Errorf("rename %q: load metadata: %w", oldPath, err)
	}
	moves := make([]works.PathMove, 0, len(records))
	for _, rec := range records {
		m := works.PathMove{ID: rec.ID, Path: repopath.Rebase(rec.Path, oldPath, newPath)}
		if rec.Path == oldPath {
			name := newName
			m.Name = &name
		}
		moves = append(moves, m)
	}
	if err := s.works.BatchUpdatePaths(ctx, moves); err != nil {
		return fmt.Errorf("rename %q: rewrite metadata: %w", oldPath, err)
	}

	s.logger.Info("folder renamed",
		zap.String("old_path", oldPath),
		zap.String("new_path", newPath),
		zap.Int("records", len(moves)),
		zap.String("renamed_by", actor.ID.Hex()))
	return nil
}

// moveSubtree relocates every blob under oldPath to newPath, depth-first.
// New markers are written before children move (the new tree is listable
// throughout); old markers are removed only after their children are gone.
func (s *Service) moveSubtree(ctx context.Context, oldPath, newPath string, moved *[]string) error {
	if err := s.tree.CreateMarker(ctx, newPath); err != nil {
		return fmt.Errorf("marker %q: %w", newPath, err)
	}

	children, err := s.tree.ListChildren(ctx, oldPath)
	if err != nil {
		return fmt.Errorf("list %q: %w", oldPath, err)
	}

	for _, f := range children.Files {
		dst := repopath.Rebase(f.Path, oldPath, newPath)
		if err := s.copyFile(ctx, f.Path, dst); err != nil {
			return err
		}
		if err := s.tree.DeleteFile(ctx, f.Path); err != nil {
			return fmt.Errorf("delete %q: %w", f.Path, err)
		}
		*moved = append(*moved, dst)
	}

	for _, sub := range children.Folders {
		dst := repopath.Rebase(sub.Path, oldPath, newPath)
		if err := s.moveSubtree(ctx, sub.Path, dst, moved); err != nil {
			return err
		}
	}

	if err := s.tree.DeleteMarker(ctx, oldPath); err != nil {
		return fmt.Errorf("remove marker %q: %w", oldPath, err)
	}
	return nil
}

// copyFile copies one blob to a new key (fetch bytes, put under the new
// key). The blob store offers no server-side move. The source's content
// type and user metadata travel with the copy.
func (s *Service) copyFile(ctx context.Context, src, dst string) error {
	info, err := s.tree.StatFile(ctx, src)
	if err != nil {
		return fmt.Errorf("stat %q: %w", src, err)
	}
	rc, err := s.tree.OpenFile(ctx, src)
	if err != nil {
		return fmt.Errorf("open %q: %w", src, err)
	}
	defer rc.Close()

	opts := &blob.PutOptions{ContentType: info.ContentType, Metadata: info.Metadata}
	if err := s.tree.PutFile(ctx, dst, rc, info.Size, opts); err != nil {
		return fmt.Errorf("put %q: %w", dst, err)
	}
	return nil
}

// remainingUnder lists what is still under a prefix after an aborted
// rename, for the PartialRenameError report. Best effort only.
func (s *Service) remainingUnder(ctx context.Context, path string) []string {
	var remaining []string
	var walk func(p string)
	walk = func(p string) {
		children, err := s.tree.ListChildren(ctx, p)
		if err != nil {
			return
		}
		for _, f := range children.Files {
			remaining = append(remaining, f.Path)
		}
		for _, sub := range children.Folders {
			walk(sub.Path)
		}
	}
	walk(path)
	return remaining
}

// DeleteFolder removes the folder at path and everything under it:
// blobs depth-first (children before each folder's marker), then every
// metadata record at or under the prefix in one batch. Deleting an
// already-empty folder is just marker removal.
func (s *Service) DeleteFolder(ctx context.Context, path string) error {
	path, err := repopath.Clean(path)
	if err != nil || path == "" {
		return ErrInvalidPath
	}

	if err := s.deleteSubtree(ctx, path); err != nil {
		return fmt.Errorf("delete folder %q: %w", path, err)
	}

	records, err := s.works.ListByPathPrefix(ctx, path)
	if err != nil {
		return fmt.Errorf("delete folder %q: load metadata: %w", path, err)
	}
	ids := make([]primitive.ObjectID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	if err := s.works.BatchDelete(ctx, ids); err != nil {
		return fmt.Errorf("delete folder %q: metadata: %w", path, err)
	}

	s.logger.Info("folder deleted",
		zap.String("path", path),
		zap.Int("records", len(ids)))
	return nil
}

// deleteSubtree removes every blob under path, depth-first, and finally
// the folder's own marker.
func (s *Service) deleteSubtree(ctx context.Context, path string) error {
	children, err := s.tree.ListChildren(ctx, path)
	if err != nil {
		return fmt.Errorf("list %q: %w", path, err)
	}

	for _, f := range children.Files {
		if err := s.tree.DeleteFile(ctx, f.Path); err != nil {
			return fmt.Errorf("delete %q: %w", f.Path, err)
		}
	}
	for _, sub := range children.Folders {
		if err := s.deleteSubtree(ctx, sub.Path); err != nil {
			return err
		}
	}
	return s.tree.DeleteMarker(ctx, path)
}

// DeleteFile removes a file's blob and its metadata record. The record
// is deleted even when the blob delete fails: a dangling record renders
// a broken download link, while a record-less blob merely lists degraded.
func (s *Service) DeleteFile(ctx context.Context, path string, id primitive.ObjectID) error {
	path, err := repopath.Clean(path)
	if err != nil || path == "" {
		return ErrInvalidPath
	}

	blobErr := s.tree.DeleteFile(ctx, path)
	if blobErr != nil {
		s.logger.Warn("blob delete failed, removing metadata anyway",
			zap.String("path", path), zap.Error(blobErr))
	}

	if id.IsZero() {
		rec, err := s.works.GetByPath(ctx, path)
		if err != nil {
			return fmt.Errorf("delete file %q: %w", path, err)
		}
		if rec == nil {
			return blobErr // nothing recorded; report the blob outcome
		}
		id = rec.ID
	}

	if err := s.works.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete file %q: metadata: %w", path, err)
	}

	s.logger.Info("file deleted", zap.String("path", path))
	return blobErr
}

// GetWork loads a file record by ID with a freshly signed download URL.
func (s *Service) GetWork(ctx context.Context, id primitive.ObjectID) (*models.Work, error) {
	w, err := s.works.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !w.IsFolder() {
		if url, err := s.tree.DownloadURL(ctx, w.Path); err == nil {
			w.DownloadURL = url
		}
	}
	return w, nil
}

// Comment sanitization and grading live on the works store; the service
// wraps them with existence and shape checks so handlers stay thin.

// AddComment appends a comment authored by actor to the file record.
func (s *Service) AddComment(ctx context.Context, workID primitive.ObjectID, text string, actor Actor) (models.Comment, error) {
	comment := models.Comment{
		ID:          newCommentID(),
		Text:        text,
		AuthorID:    actor.ID,
		AuthorEmail: actor.Email,
		AuthorName:  actor.Name,
		CreatedAt:   nowUTC(),
	}
	if err := s.works.AddComment(ctx, workID, comment); err != nil {
		return models.Comment{}, mapStoreErr(err)
	}
	return comment, nil
}

// UpdateComment rewrites the author's own comment text.
func (s *Service) UpdateComment(ctx context.Context, workID primitive.ObjectID, commentID, text string, actor Actor) error {
	return mapStoreErr(s.works.UpdateComment(ctx, workID, commentID, actor.ID, text))
}

// DeleteComment removes the author's own comment.
func (s *Service) DeleteComment(ctx context.Context, workID primitive.ObjectID, commentID string, actor Actor) error {
	return mapStoreErr(s.works.DeleteComment(ctx, workID, commentID, actor.ID))
}

// SetGrade sets or overwrites the grade on a file record.
func (s *Service) SetGrade(ctx context.Context, workID primitive.ObjectID, score int, actor Actor) (models.Grade, error) {
	if !models.ValidGradeScore(score) {
		return models.Grade{}, fmt.Errorf("%w: score must be between %d and %d",
			ErrInvalidGrade, models.MinGradeScore, models.MaxGradeScore)
	}
	grade := models.Grade{
		Score:       score,
		TeacherID:   actor.ID,
		TeacherName: actor.Name,
		GradedAt:    nowUTC(),
	}
	if err := s.works.SetGrade(ctx, workID, grade); err != nil {
		return models.Grade{}, mapStoreErr(err)
	}
	return grade, nil
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, works.ErrCommentNotFound):
		return err
	case isNoDocuments(err):
		return ErrNotFound
	default:
		return err
	}
}
