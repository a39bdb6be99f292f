package wikitext

import "regexp"

var (
	reBlankRun = regexp.MustCompile(`\n\s*\n\s*\n+`)
	reSpaceRun = regexp.MustCompile(`[ \t]+`)
)

// NormalizeWhitespace keeps at most one blank line between paragraphs and
// squeezes runs of spaces and tabs into one space.
func NormalizeWhitespace(text string) string {
	text = reBlankRun.ReplaceAllString(text, "\n\n")
	text = reSpaceRun.ReplaceAllString(text, " ")
	return text
}
