package wikitext

import "strings"

const (
	templateOpen  = "{{"
	templateClose = "}}"
)

// RemoveTemplates drops every {{...}} span, nested spans included.
//
// A span that never closes is malformed. Everything from its opening braces
// up to the next resynchronization line (blank, heading or bold title) is
// discarded, or up to end of input when there is none.
func RemoveTemplates(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		if !strings.HasPrefix(text[i:], templateOpen) {
			b.WriteByte(text[i])
			i++
			continue
		}
		if end, ok := matchTemplate(text, i); ok {
			i = end
			continue
		}
		i = resyncAfterTemplate(text, i)
	}
	return b.String()
}

// matchTemplate scans from the opening braces at start and returns the offset
// just past the matching close.
func matchTemplate(text string, start int) (int, bool) {
	depth := 0
	j := start
	for j < len(text) {
		switch {
		case strings.HasPrefix(text[j:], templateOpen):
			depth++
			j += len(templateOpen)
		case strings.HasPrefix(text[j:], templateClose):
			depth--
			j += len(templateClose)
			if depth == 0 {
				return j, true
			}
		default:
			j++
		}
	}
	return len(text), false
}

// resyncAfterTemplate returns the start offset of the first line after the
// one holding start that looks like top-level article content.
func resyncAfterTemplate(text string, start int) int {
	pos := start + len(templateOpen)
	for pos < len(text) {
		nl := strings.IndexByte(text[pos:], '\n')
		if nl < 0 {
			return len(text)
		}
		lineStart := pos + nl + 1
		if lineStart >= len(text) {
			return len(text)
		}
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		if isResyncLine(strings.TrimSpace(text[lineStart:lineEnd])) {
			return lineStart
		}
		pos = lineStart
	}
	return len(text)
}

func isResyncLine(line string) bool {
	return line == "" ||
		strings.HasPrefix(line, "==") ||
		strings.HasPrefix(line, "'''")
}
