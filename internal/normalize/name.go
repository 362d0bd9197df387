package normalize

import (
	"regexp"
	"strings"
)

// Punctuation that carries no signal in venue names (apostrophes, hyphens, periods)
var rePunct = regexp.MustCompile(`['\-.]`)

// Generic venue-type words and neighbourhood qualifiers stripped before comparison
var reStopWords = regexp.MustCompile(`(?i)\b(soho|london|restaurant|bar|cafe|kitchen|grill|the|street|st|piccadilly|carnaby|cuisine)\b`)

// Parenthetical qualifiers e.g. "(Georgian Cuisine)"
var reParens = regexp.MustCompile(`\([^)]*\)`)

var reSpaces = regexp.MustCompile(`\s+`)

// Name canonicalizes a raw venue name for comparison: lowercase, punctuation
// removed, stop words removed, parenthetical content stripped, whitespace
// collapsed. Total over all inputs; empty input yields empty output.
func Name(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToLower(raw)
	s = rePunct.ReplaceAllString(s, "")
	s = reStopWords.ReplaceAllString(s, " ")
	s = reParens.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Street canonicalizes a street string for containment and similarity checks.
// Lighter touch than Name: street words like "street" are signal here.
func Street(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToLower(raw)
	s = rePunct.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
