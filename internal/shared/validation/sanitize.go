package validation

import (
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// markupPattern is the heuristic for "looks like markup": a tag opener
// followed by a tag name, closing slash, or declaration. Escaped output
// contains no raw '<' and therefore never re-matches.
var markupPattern = regexp.MustCompile(`<[a-zA-Z/!]`)

// Sanitizer turns untrusted string values into content that is safe to store
// and render. Markup-looking strings pass through an HTML allowlist; plain
// strings are escaped outright.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("b", "i", "em", "strong", "u", "code", "br", "p")
	policy.AllowAttrs("href", "target", "rel").OnElements("a")
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(true)

	return &Sanitizer{policy: policy}
}

// CleanString sanitizes a single string leaf.
func (s *Sanitizer) CleanString(value string) string {
	if markupPattern.MatchString(value) {
		return s.policy.Sanitize(value)
	}
	return html.EscapeString(value)
}

// CleanValue recursively sanitizes every string leaf of a decoded JSON value.
// Applying the rule to all leaves removes the bug class of one new field
// being forgotten. Non-string primitives pass through unchanged.
func (s *Sanitizer) CleanValue(value any) any {
	switch v := value.(type) {
	case string:
		return s.CleanString(v)
	case map[string]any:
		cleaned := make(map[string]any, len(v))
		for key, val := range v {
			cleaned[key] = s.CleanValue(val)
		}
		return cleaned
	case []any:
		cleaned := make([]any, len(v))
		for i, val := range v {
			cleaned[i] = s.CleanValue(val)
		}
		return cleaned
	default:
		return value
	}
}
