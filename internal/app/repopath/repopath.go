// Package repopath defines the canonical logical-path model for the
// repository tree.
//
// A logical path is a slash-delimited string like
// "CS/Algorithms/2024/report.pdf" with no leading or trailing slash and no
// storage-root prefix. The blob tree adapter owns any storage namespacing;
// logical paths never leak it. Metadata records are keyed by logical path,
// so the helpers here are also the source of the range predicate used for
// "everything at or under P" queries.
package repopath

import (
	"errors"
	"strings"
)

// MarkerName is the sentinel object written inside every folder so the
// blob store's prefix listing can enumerate otherwise-empty folders.
// It is filtered out of all listings and is not a valid entry name.
const MarkerName = ".folder"

// reservedRoots are top-level storage areas that are infrastructure, not
// repository content. They never appear in listings and cannot be used as
// folder or file names at the root.
var reservedRoots = map[string]bool{
	"profile-photos": true,
}

// ErrInvalidPath is returned for empty or malformed paths and names.
var ErrInvalidPath = errors.New("invalid path")

// Clean normalizes a logical path: forward slashes only, no leading or
// trailing slashes, no empty segments. Returns ErrInvalidPath if any
// segment is empty, ".", "..", or the folder marker sentinel.
// The empty string cleans to the root ("").
func Clean(p string) (string, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "", nil
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" || s == "." || s == ".." || s == MarkerName {
			return "", ErrInvalidPath
		}
	}
	return strings.Join(segs, "/"), nil
}

// ValidName reports whether s can be used as a folder or file name:
// non-empty after trimming, no slashes, not a relative-path segment,
// and not the marker sentinel.
func ValidName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." || s == MarkerName {
		return false
	}
	return !strings.ContainsAny(s, "/\\")
}

// Reserved reports whether name is a reserved top-level storage area.
func Reserved(name string) bool {
	return reservedRoots[name]
}

// Join appends name to parent. Join never returns a path equal to parent
// for a valid name; callers must validate name with ValidName first.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// Parent returns the parent path of p, or "" when p is a root-level entry.
func Parent(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Base returns the last segment of p.
func Base(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return p
	}
	return p[i+1:]
}

// Depth returns the number of segments in p. The root has depth 0.
func Depth(p string) int {
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}

// IsDescendant reports whether p is strictly below ancestor. A path is
// never its own descendant. The root ("") is an ancestor of every
// non-empty path.
func IsDescendant(p, ancestor string) bool {
	if p == ancestor {
		return false
	}
	if ancestor == "" {
		return p != ""
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// Rebase rewrites p from the oldPrefix subtree into the newPrefix
// subtree. p must equal oldPrefix or be a descendant of it.
func Rebase(p, oldPrefix, newPrefix string) string {
	if p == oldPrefix {
		return newPrefix
	}
	return newPrefix + strings.TrimPrefix(p, oldPrefix)
}

// PrefixSuccessor returns the smallest string strictly greater than every
// string that has p as a prefix, giving the exclusive upper bound for the
// range query "path >= p AND path < PrefixSuccessor(p)". It works by
// incrementing the last byte that is not 0xff and truncating after it.
// The bound is exact for any byte ordering, so no "practical infinity"
// sentinel character is needed. Returns "" when no bound exists (p is
// empty or all 0xff), which callers treat as unbounded.
func PrefixSuccessor(p string) string {
	b := []byte(p)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
