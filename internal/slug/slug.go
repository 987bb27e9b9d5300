package slug

import (
	"regexp"
	"strings"
)

var reSlug = regexp.MustCompile(`^[a-z0-9-]{2,60}$`)

// IsSlug returns true if s matches ^[a-z0-9-]{2,60}$
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify converts a display name to a URL slug: lowercase, runs of
// non [a-z0-9] become a single '-', trimmed to 60 runes and stripped of
// leading/trailing dashes.
func Slugify(s string) string {
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			out = append(out, r)
			prevDash = false
		default:
			if !prevDash && len(out) > 0 {
				out = append(out, '-')
				prevDash = true
			}
		}
		if len(out) >= 60 {
			break
		}
	}
	return strings.Trim(string(out), "-")
}
