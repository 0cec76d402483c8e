// Package htmlsanitize strips markup from user-submitted text.
// Comment bodies are stored and rendered as plain text, so the strict
// bluemonday policy (remove everything) is the right tool.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML elements and attributes from s and trims
// surrounding whitespace. Entities introduced by the sanitizer are left
// as-is; JSON encoding handles them safely.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(getPolicy().Sanitize(s))
}
