package wikitext

import (
	"regexp"
	"strings"
)

const (
	tableOpen    = "{|"
	tableClose   = "|}"
	tableCaption = "|+"
	tableRow     = "|-"
)

var (
	reHeaderCells = regexp.MustCompile(`!!|\n!`)
	reDataCells   = regexp.MustCompile(`\|\||\n\|`)
)

// Table is a wiki table decomposed into caption, header and body rows.
type Table struct {
	Caption string
	Header  []string
	Rows    [][]string
}

// ConvertTable renders the lines of one {| ... |} block as a Markdown pipe
// table. It returns nil when the block holds no cells.
func ConvertTable(block []string) []string {
	t, ok := ParseTable(block)
	if !ok {
		return nil
	}
	return t.Markdown()
}

// ParseTable decomposes a table block. The result is rectangular: every row
// has exactly len(Header) cells. ok is false when no header could be found
// or inferred.
func ParseTable(block []string) (Table, bool) {
	lines := make([]string, 0, len(block))
	for _, l := range block {
		lines = append(lines, strings.TrimSpace(l))
	}

	var t Table
	if len(lines) > 1 && strings.HasPrefix(lines[1], tableCaption) {
		t.Caption = cleanCell(strings.TrimLeft(lines[1], "|+"))
		lines = append(lines[:1:1], lines[2:]...)
	}
	if len(lines) > 0 && strings.HasPrefix(lines[0], tableOpen) {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.HasPrefix(lines[n-1], tableClose) {
		lines = lines[:n-1]
	}

	body := StripAttributes(strings.Join(lines, "\n"))
	for _, group := range splitRows(body) {
		switch {
		case group == "", strings.HasPrefix(group, tableOpen), strings.HasPrefix(group, tableClose):
		case strings.HasPrefix(group, "!"):
			cells := splitCells(group, reHeaderCells, "!")
			if t.Header == nil && len(cells) > 0 {
				t.Header = cells
			}
		case strings.HasPrefix(group, "|"):
			cells := splitCells(group, reDataCells, "|")
			switch {
			case len(cells) == 1 && t.Header == nil && len(t.Rows) == 0:
				// Some tables carry their caption as a lone leading cell.
				t.Caption = cells[0]
			case len(cells) > 0:
				t.Rows = append(t.Rows, cells)
			}
		}
	}

	if t.Header == nil && len(t.Rows) > 0 {
		t.Header, t.Rows = t.Rows[0], t.Rows[1:]
	}
	if t.Header == nil {
		return Table{}, false
	}
	t.rectangularize()
	return t, true
}

// splitRows cuts a table body into row groups at |- separator lines.
func splitRows(body string) []string {
	var (
		groups  []string
		current []string
	)
	flush := func() {
		groups = append(groups, strings.TrimSpace(strings.Join(current, "\n")))
		current = current[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), tableRow) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return groups
}

func splitCells(group string, sep *regexp.Regexp, marker string) []string {
	var cells []string
	for _, raw := range sep.Split(group, -1) {
		cell := cleanCell(strings.TrimLeft(raw, marker))
		if cell == "" {
			continue
		}
		cells = append(cells, FormatInline(cell))
	}
	return cells
}

// cleanCell drops a per-cell attribute prefix (everything up to the last
// pipe) and folds continuation lines into one.
func cleanCell(cell string) string {
	cell = strings.TrimSpace(cell)
	if i := strings.LastIndexByte(cell, '|'); i >= 0 {
		cell = strings.TrimSpace(cell[i+1:])
	}
	return strings.Join(strings.Fields(cell), " ")
}

func (t *Table) rectangularize() {
	width := len(t.Header)
	for _, row := range t.Rows {
		width = max(width, len(row))
	}
	t.Header = padCells(t.Header, width)

	for i, row := range t.Rows {
		if len(row) > width {
			t.Rows[i] = row[:width]
			continue
		}
		t.Rows[i] = padCells(row, width)
	}
}

func padCells(cells []string, width int) []string {
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells
}

// Markdown renders the table: an optional bold caption and a blank line,
// the header, the separator and the body rows.
func (t Table) Markdown() []string {
	out := make([]string, 0, len(t.Rows)+4)
	if t.Caption != "" {
		out = append(out, "**"+t.Caption+"**", "")
	}
	out = append(out, pipeRow(t.Header))

	sep := make([]string, len(t.Header))
	for i := range sep {
		sep[i] = "---"
	}
	out = append(out, pipeRow(sep))

	for _, row := range t.Rows {
		out = append(out, pipeRow(row))
	}
	return out
}

func pipeRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}
