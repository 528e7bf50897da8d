// Package normalize turns loosely structured source text into the pieces the
// catalog is keyed on: canonical identifiers, delimited rows, artist/track
// pairs and durations.
//
// Every function here is total. Bad input degrades to an empty or zero value
// and the caller decides on a fallback.
package normalize

import (
	"regexp"
	"strings"
)

var (
	nonIdentRun = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRun   = regexp.MustCompile(`-{2,}`)
)

// Canonicalize derives a stable identifier from free text: lowercase, every
// run of characters outside [a-z0-9-] becomes one hyphen, hyphen runs collapse
// and leading/trailing hyphens are trimmed.
//
// An input made only of symbols yields "", which means "no usable identifier".
func Canonicalize(s string) string {
	s = strings.ToLower(s)
	s = nonIdentRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// CanonicalizeOr returns the first non-empty canonical form among s and the
// fallbacks, or "" when none produce one.
func CanonicalizeOr(s string, fallbacks ...string) string {
	if id := Canonicalize(s); id != "" {
		return id
	}

	for _, f := range fallbacks {
		if id := Canonicalize(f); id != "" {
			return id
		}
	}

	return ""
}
