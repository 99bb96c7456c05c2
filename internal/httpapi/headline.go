package httpapi

import "strings"

const headlineMax = 90

// normalizeHeadline collapses whitespace and caps the ticker headline,
// falling back to the record's main text when no headline was supplied.
func normalizeHeadline(input, fallback string) string {
	clean := strings.Join(strings.Fields(input), " ")
	fb := strings.Join(strings.Fields(fallback), " ")
	if fb == "" {
		fb = "Update posted"
	}

	base := clean
	if base == "" {
		base = fb
	}

	if len([]rune(base)) <= headlineMax {
		return base
	}
	runes := []rune(base)[:headlineMax-1]
	return strings.TrimRight(string(runes), " ") + "…"
}
