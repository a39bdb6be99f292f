// Package chunk cuts converted Markdown into heading-scoped pieces for
// chunked dataset export. Each piece remembers the headings that enclose it.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"wikimd/internal/domain/corpus"
)

const maxLevel = 6

var reHeading = regexp.MustCompile(`^(#{1,6}) +(.+?)\s*$`)

// HeaderKey is the metadata key of the enclosing heading at level.
func HeaderKey(level int) string {
	return fmt.Sprintf("Header %d", level)
}

type Options struct {
	// MaxChars caps a chunk in runes; zero disables size splitting.
	MaxChars int
	// SplitLevel is the deepest heading level that starts a new chunk;
	// zero means every level.
	SplitLevel int
}

// Section is one piece of a document with its heading context.
type Section struct {
	Text    string
	Headers map[string]string
}

// Split chunks a record's text. Chunks are numbered from zero.
func Split(r corpus.Record, opts Options) []corpus.Chunk {
	sections := SplitText(r.Text, opts)
	out := make([]corpus.Chunk, 0, len(sections))
	for i, s := range sections {
		out = append(out, corpus.Chunk{
			Slug:     r.Slug,
			Index:    i,
			Text:     s.Text,
			Metadata: s.Headers,
		})
	}
	return out
}

// SplitText cuts md before every heading up to opts.SplitLevel. The heading
// line stays at the top of its section. Sections holding only whitespace are
// dropped.
func SplitText(md string, opts Options) []Section {
	splitLevel := opts.SplitLevel
	if splitLevel <= 0 || splitLevel > maxLevel {
		splitLevel = maxLevel
	}

	var (
		out     []Section
		current []string
		stack   [maxLevel + 1]string
		headers map[string]string
	)
	flush := func() {
		text := strings.Trim(strings.Join(current, "\n"), "\n")
		current = current[:0]
		if strings.TrimSpace(text) == "" {
			return
		}
		for _, piece := range limit(text, opts.MaxChars) {
			out = append(out, Section{Text: piece, Headers: headers})
		}
	}

	for _, line := range strings.Split(md, "\n") {
		if m := reHeading.FindStringSubmatch(line); m != nil && len(m[1]) <= splitLevel {
			flush()
			level := len(m[1])
			stack[level] = m[2]
			for l := level + 1; l <= maxLevel; l++ {
				stack[l] = ""
			}
			headers = snapshot(stack)
		}
		current = append(current, line)
	}
	flush()
	return out
}

func snapshot(stack [maxLevel + 1]string) map[string]string {
	m := make(map[string]string)
	for l := 1; l <= maxLevel; l++ {
		if stack[l] != "" {
			m[HeaderKey(l)] = stack[l]
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// limit splits text into pieces of at most maxChars runes, preferring
// paragraph breaks, then line breaks, then any rune boundary.
func limit(text string, maxChars int) []string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}
	var out []string
	for _, unit := range pack(strings.Split(text, "\n\n"), "\n\n", maxChars) {
		if utf8.RuneCountInString(unit) <= maxChars {
			out = append(out, unit)
			continue
		}
		for _, line := range pack(strings.Split(unit, "\n"), "\n", maxChars) {
			out = append(out, hardCut(line, maxChars)...)
		}
	}
	return out
}

// pack greedily joins consecutive parts with sep while the result fits.
func pack(parts []string, sep string, maxChars int) []string {
	var (
		out []string
		buf string
	)
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if buf == "" {
			buf = p
			continue
		}
		if utf8.RuneCountInString(buf)+utf8.RuneCountInString(sep)+utf8.RuneCountInString(p) <= maxChars {
			buf += sep + p
			continue
		}
		out = append(out, buf)
		buf = p
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

func hardCut(s string, maxChars int) []string {
	var out []string
	for utf8.RuneCountInString(s) > maxChars {
		n, i := 0, 0
		for i < len(s) && n < maxChars {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			n++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
