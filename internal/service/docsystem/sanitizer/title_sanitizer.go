package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizer turns user supplied titles into plain text.
// Markup is stripped (script and style bodies included) and whitespace is collapsed.
//
// Thread-safe for concurrent use.
type TitleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer creates a sanitizer that strips all HTML
func NewTitleSanitizer() *TitleSanitizer {
	return &TitleSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean returns the plain text form of title.
// Entities escaped by the policy are decoded again, so "Q&A" stays "Q&A".
func (s *TitleSanitizer) Clean(title string) string {
	text := html.UnescapeString(s.policy.Sanitize(title))
	return strings.Join(strings.Fields(text), " ")
}
