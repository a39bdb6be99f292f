package stats

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Structure is what the Markdown parser finds in one document.
type Structure struct {
	// Headings counts headings per level; index 0 is unused.
	Headings [7]int
	Lists    int
	Tables   int
	// FirstHeading is the plain text of the first heading, if any.
	FirstHeading string
}

// HasSections reports whether the document has a heading below the title
// level.
func (s Structure) HasSections() bool {
	for level := 2; level < len(s.Headings); level++ {
		if s.Headings[level] > 0 {
			return true
		}
	}
	return false
}

// Analyzer tallies the block structure of Markdown documents.
type Analyzer struct {
	md goldmark.Markdown
}

// NewAnalyzer returns an Analyzer that also recognizes pipe tables.
func NewAnalyzer() *Analyzer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
	)
	return &Analyzer{md: md}
}

// Analyze parses src and tallies its block structure.
func (a *Analyzer) Analyze(src []byte) Structure {
	ctx := parser.NewContext()
	doc := a.md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var s Structure
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level >= 1 && node.Level < len(s.Headings) {
				s.Headings[node.Level]++
			}
			if s.FirstHeading == "" {
				s.FirstHeading = string(bytes.TrimSpace(plainText(node, src)))
			}
			return ast.WalkSkipChildren, nil
		case *ast.List:
			s.Lists++
		case *east.Table:
			s.Tables++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return s
}

// plainText concatenates the text segments under n, dropping emphasis and
// other inline markup.
func plainText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.Write(plainText(c, src))
		}
	}
	return buf.Bytes()
}
