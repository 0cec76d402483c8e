// internal/app/repo/errors.go
package repo

import (
	"errors"
	"fmt"
)

// Validation and lookup errors. All validation errors are raised before
// any backend mutation, so they never leave partial state behind.
var (
	// ErrInvalidPath is returned for empty or malformed paths and names,
	// including reserved storage segments.
	ErrInvalidPath = errors.New("invalid path or name")

	// ErrDuplicateFolder is returned when a sibling folder with the same
	// name already exists. The guard is a read-then-write check: two
	// concurrent creators can both pass it. That race is accepted; the
	// backends provide no cross-store serialization to build on.
	ErrDuplicateFolder = errors.New("a folder with that name already exists")

	// ErrUnsupportedFileType is returned before any write when the MIME
	// type is not on the allow-list.
	ErrUnsupportedFileType = errors.New("file type not allowed; upload PDF, Word, or image files only")

	// ErrNotFound is returned when operating on a path with no existing
	// blob or record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidGrade is returned when a grade score is out of range.
	ErrInvalidGrade = errors.New("invalid grade")
)

// PartialRenameError reports a folder rename that failed after some items
// had already been relocated. The subtree straddles the old and new
// prefixes; Moved and Remaining give a caller enough detail to resume or
// surface the damage, rather than masking it.
type PartialRenameError struct {
	OldPath   string
	NewPath   string
	Moved     []string // logical paths already relocated under NewPath
	Remaining []string // logical paths still under OldPath
	Err       error    // the failure that aborted the rename
}

func (e *PartialRenameError) Error() string {
	return fmt.Sprintf("rename %s -> %s aborted after %d of %d items: %v",
		e.OldPath, e.NewPath, len(e.Moved), len(e.Moved)+len(e.Remaining), e.Err)
}

func (e *PartialRenameError) Unwrap() error {
	return e.Err
}
