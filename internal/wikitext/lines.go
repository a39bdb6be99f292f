package wikitext

import (
	"regexp"
	"strings"
)

const hardBreak = "  "

var (
	reRule     = regexp.MustCompile(`^-+$`)
	reListItem = regexp.MustCompile(`^([*#]+)\s*(.*)`)
)

// skipLines are punctuation leftovers from stripped links and embeds.
var skipLines = map[string]struct{}{
	"]]":   {},
	")":    {},
	") ]]": {},
	"|":    {},
	"||":   {},
}

// ProcessLines turns cleaned wikitext lines into Markdown lines. Each line
// is classified, in order, as skippable debris, a table opening, a heading,
// a horizontal rule, a list item or plain text.
func ProcessLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])

		if _, skip := skipLines[line]; skip {
			i++
			continue
		}

		if strings.HasPrefix(line, tableOpen) {
			next, table := collectTable(lines, i)
			out = append(out, table...)
			i = next
			continue
		}

		if md, ok := headingLine(line); ok {
			if md != "" {
				out = append(out, md)
			}
			i++
			continue
		}

		if reRule.MatchString(line) {
			out = append(out, "---")
			i++
			continue
		}

		if md, ok := listItemLine(line); ok {
			out = append(out, md)
			i++
			continue
		}

		if line == "" {
			out = append(out, "")
		} else {
			out = append(out, FormatInline(line)+hardBreak)
		}
		i++
	}
	return out
}

// headingLine renders a heading. Metadata headings, and bare runs of '='
// with no title, report ok with an empty result so that nothing is emitted
// for them.
func headingLine(line string) (string, bool) {
	if line != "" && strings.Trim(line, "=") == "" {
		return "", true
	}
	level, text, ok := parseHeading(line)
	if !ok {
		return "", false
	}
	text = strings.TrimSpace(FormatInline(text))
	if text == "" || IsMetadataSection(text) {
		return "", true
	}
	return strings.Repeat("#", min(level, 6)) + " " + text, true
}

func listItemLine(line string) (string, bool) {
	m := reListItem.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	markers := m[1]
	content := FormatInline(strings.TrimSpace(m[2]))
	indent := strings.Repeat("  ", len(markers)-1)

	if markers[0] == '*' {
		return indent + "- " + content, true
	}
	return indent + "1. " + content, true
}

// collectTable gathers the table starting at lines[start] through its
// closing marker, or to the end of input when it never closes. It returns
// the index of the first line after the table and the rendered Markdown.
func collectTable(lines []string, start int) (int, []string) {
	block := []string{strings.TrimSpace(lines[start])}
	i := start + 1
	for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), tableClose) {
		block = append(block, strings.TrimSpace(lines[i]))
		i++
	}
	if i < len(lines) {
		block = append(block, strings.TrimSpace(lines[i]))
	}
	return i + 1, ConvertTable(block)
}
