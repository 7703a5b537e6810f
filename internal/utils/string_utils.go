package utils

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MaxLabelRunes caps category labels coming from model output.
const MaxLabelRunes = 120

var (
	reScriptStyle = regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</(script|style)>`)
	reCodeFence   = regexp.MustCompile("```[a-zA-Z]*\\n?")
	stripPolicy   = bluemonday.StripTagsPolicy()
)

// SanitizeLabel turns model-written text into a plain single-line label.
func SanitizeLabel(s string) string {
	// Decode first so escaped tags are recognized
	s = html.UnescapeString(strings.ToValidUTF8(s, ""))
	s = reScriptStyle.ReplaceAllString(s, "")
	s = stripPolicy.Sanitize(s)
	// bluemonday escapes what it keeps; labels are plain text
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")

	if r := []rune(s); len(r) > MaxLabelRunes {
		s = strings.TrimSpace(string(r[:MaxLabelRunes]))
	}
	return s
}

// StripCodeFences removes markdown code fences (```json ... ```) around model output.
func StripCodeFences(s string) string {
	return strings.TrimSpace(reCodeFence.ReplaceAllString(s, ""))
}
