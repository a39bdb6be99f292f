package wikitext

import (
	"regexp"
	"strings"
)

// reHeading matches a heading line. The opening and closing runs must have
// equal length; RE2 has no backreferences so callers compare them.
var reHeading = regexp.MustCompile(`^(=+)\s*(.*?)\s*(=+)$`)

// parseHeading reports the level and raw text of a trimmed heading line.
func parseHeading(line string) (level int, text string, ok bool) {
	m := reHeading.FindStringSubmatch(line)
	if m == nil || len(m[1]) != len(m[3]) {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

// RemoveMetadataSections truncates text at the first heading that names a
// metadata section (references, external links and the like). Such sections
// trail the article, so everything after the heading goes with it.
func RemoveMetadataSections(text string) string {
	offset := 0
	for offset < len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += offset
		}
		if _, name, ok := parseHeading(strings.TrimSpace(text[offset:end])); ok && IsMetadataSection(name) {
			return text[:offset]
		}
		offset = end + 1
	}
	return text
}
