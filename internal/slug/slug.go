// Package slug derives URL-safe identifiers from article titles.
package slug

import "strings"

const (
	maxLen = 80

	// fallback is used when a title reduces to nothing, e.g. a fully
	// non-Latin headline. Uniqueness then comes from WithSuffix.
	fallback = "article"
)

// Make lowercases the title and reduces it to hyphen-separated ASCII
// alphanumeric runs, capped at 80 characters. The result is
// deterministic for a given title.
func Make(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	s := strings.Trim(b.String(), "-")
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	if s == "" {
		return fallback
	}
	return s
}

// WithSuffix appends "-suffix" to a slug, trimming the base so the
// result stays within the length cap.
func WithSuffix(s, suffix string) string {
	if suffix == "" {
		return s
	}
	room := maxLen - len(suffix) - 1
	if room < 1 {
		return suffix
	}
	if len(s) > room {
		s = strings.Trim(s[:room], "-")
	}
	return s + "-" + suffix
}
