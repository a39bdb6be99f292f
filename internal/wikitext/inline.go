package wikitext

import "regexp"

var (
	reBoldItalic = regexp.MustCompile(`'''''(.*?)'''''`)
	reBold       = regexp.MustCompile(`'''(.*?)'''`)
	reItalic     = regexp.MustCompile(`''(.*?)''`)
)

// FormatInline rewrites apostrophe emphasis as Markdown emphasis. The
// five-apostrophe form must go first or the shorter forms would split it.
func FormatInline(text string) string {
	text = reBoldItalic.ReplaceAllString(text, "***${1}***")
	text = reBold.ReplaceAllString(text, "**${1}**")
	text = reItalic.ReplaceAllString(text, "*${1}*")
	return text
}
