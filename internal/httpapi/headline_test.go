package httpapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeadline(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     string
	}{
		{"plain", "Shipped the parser", "", "Shipped the parser"},
		{"collapses whitespace", "  Shipped \n\t the   parser ", "", "Shipped the parser"},
		{"fallback used when empty", "", "Fixed the flaky retry loop", "Fixed the flaky retry loop"},
		{"fallback collapsed too", "   ", " Fixed\tit ", "Fixed it"},
		{"default when both empty", "", "", "Update posted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeHeadline(tt.input, tt.fallback))
		})
	}
}

func TestNormalizeHeadlineTruncates(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := normalizeHeadline(long, "")
	assert.LessOrEqual(t, len([]rune(got)), headlineMax)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.False(t, strings.HasSuffix(got, " …"), "no trailing space before the ellipsis")
}

func TestNormalizeHeadlineTruncatesMultibyte(t *testing.T) {
	long := strings.Repeat("héllø ", 30)
	got := normalizeHeadline(long, "")
	assert.LessOrEqual(t, len([]rune(got)), headlineMax, "cap counts runes, not bytes")
	assert.True(t, strings.HasSuffix(got, "…"))
}
