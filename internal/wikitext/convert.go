// Package wikitext converts MediaWiki markup, English and Tamil alike, into
// plain Markdown for language-model corpora.
//
// Conversion runs a fixed sequence of text passes (noise, templates,
// categories and media, links, attributes, metadata sections, whitespace)
// and then a line processor that emits headings, rules, lists, tables and
// paragraphs. Every pass is total: malformed markup degrades to a lossy but
// bounded rewrite, never to an error.
//
// Usage:
//
//	md := wikitext.Convert(raw)
//
//	conv := wikitext.NewConverter(wikitext.WithMaxInputBytes(4 << 20))
//	md = conv.Convert(raw)
package wikitext

import (
	"strings"
	"unicode/utf8"
)

// Stage is one named text-to-text pass of the conversion.
type Stage struct {
	Name string
	Run  func(string) string
}

var stages = []Stage{
	{"noise", StripNoise},
	{"templates", RemoveTemplates},
	{"categories", RemoveCategories},
	{"media", RemoveMedia},
	{"external-links", RewriteExternalLinks},
	{"internal-links", RewriteInternalLinks},
	{"attributes", StripAttributes},
	{"metadata-sections", RemoveMetadataSections},
	{"whitespace", NormalizeWhitespace},
}

// Stages returns the text passes in the order Convert applies them. The
// line processor runs after the last one.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// Converter converts wikitext documents. It holds no per-document state and
// is safe for concurrent use.
type Converter struct {
	maxInputBytes int
}

// Option configures a Converter.
type Option func(*Converter)

// WithMaxInputBytes caps the input a single conversion will look at. Longer
// input is cut at the last line break inside the budget. Zero means no cap.
func WithMaxInputBytes(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.maxInputBytes = n
		}
	}
}

// NewConverter creates a Converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultConverter = NewConverter()

// Convert converts one document with the default, uncapped converter.
func Convert(raw string) string {
	return defaultConverter.Convert(raw)
}

// Convert converts one wikitext document to Markdown.
func (c *Converter) Convert(raw string) string {
	return c.run(raw, nil)
}

// Trace runs the conversion and calls fn with the text after each stage and
// finally with the Markdown under the name "lines".
func (c *Converter) Trace(raw string, fn func(stage, text string)) string {
	return c.run(raw, fn)
}

func (c *Converter) run(raw string, trace func(stage, text string)) string {
	text := c.clip(normalizeNewlines(raw))
	for _, s := range stages {
		text = s.Run(text)
		if trace != nil {
			trace(s.Name, text)
		}
	}
	md := strings.Join(ProcessLines(splitLines(text)), "\n")
	if trace != nil {
		trace("lines", md)
	}
	return md
}

func (c *Converter) clip(text string) string {
	if c.maxInputBytes <= 0 || len(text) <= c.maxInputBytes {
		return text
	}
	n := c.maxInputBytes
	if i := strings.LastIndexByte(text[:n], '\n'); i >= 0 {
		return text[:i]
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// splitLines splits text into lines without producing an empty final line
// for a trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
