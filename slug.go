package loam

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify turns a title into a URL slug: lowercase, punctuation stripped,
// whitespace and hyphen runs collapsed to single hyphens. Applying it to an
// existing slug returns the slug unchanged.
func Slugify(title string) string {
	s := slugStrip.ReplaceAllString(title, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SuggestSlug returns base if taken reports it free, otherwise the first of
// base-2, base-3, ... that is free.
func SuggestSlug(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
