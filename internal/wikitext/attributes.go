package wikitext

import "regexp"

const attributeNames = `(?:colspan|rowspan|style|class|align|valign|bgcolor|width|height)`

var (
	reAttrDouble = regexp.MustCompile(`(?i)\s*` + attributeNames + `\s*=\s*"[^"]*"`)
	reAttrSingle = regexp.MustCompile(`(?i)\s*` + attributeNames + `\s*=\s*'[^']*'`)
)

// StripAttributes removes presentation attributes (style="...", colspan='2'
// and friends) left over from table and HTML markup.
func StripAttributes(text string) string {
	text = reAttrDouble.ReplaceAllString(text, "")
	text = reAttrSingle.ReplaceAllString(text, "")
	return text
}
