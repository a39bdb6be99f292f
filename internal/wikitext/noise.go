package wikitext

import "regexp"

var (
	reComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	reRefSelf   = regexp.MustCompile(`(?i)<ref[^>]*/>`)
	reRefPair   = regexp.MustCompile(`(?is)<ref[^>]*?>.*?</ref>`)
	reNowiki    = regexp.MustCompile(`(?is)<nowiki>.*?</nowiki>`)
	reLineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	reGallery   = regexp.MustCompile(`(?is)<gallery[^>]*?>.*?</gallery>`)
)

// StripNoise removes HTML comments, reference tags, nowiki blocks and image
// galleries, and turns <br> tags into newlines.
//
// Self-closing references go first so that <ref name="x"/> cannot pair up
// with the closing tag of a later reference.
func StripNoise(text string) string {
	text = reComment.ReplaceAllString(text, "")
	text = reRefSelf.ReplaceAllString(text, "")
	text = reRefPair.ReplaceAllString(text, "")
	text = reNowiki.ReplaceAllString(text, "")
	text = reLineBreak.ReplaceAllString(text, "\n")
	text = reGallery.ReplaceAllString(text, "")
	return text
}
