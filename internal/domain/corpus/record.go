// Package corpus defines the converted-article record that flows from ingest
// through the index to dataset export.
package corpus

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Record is one converted article. Text holds the Markdown produced by the
// converter.
type Record struct {
	Slug     string            `json:"slug"`
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`

	Source     string    `json:"source"`
	SourcePath string    `json:"source_path,omitempty"`
	SourceHash string    `json:"source_hash"`
	Chars      int       `json:"chars"`
	Converted  time.Time `json:"converted"`
}

// Normalize trims identifiers, lower-cases and trims metadata keys, drops
// empty metadata entries and recomputes Chars.
func (r *Record) Normalize() {
	r.Slug = strings.TrimSpace(r.Slug)
	r.Title = strings.TrimSpace(r.Title)
	r.Source = strings.TrimSpace(r.Source)
	r.Metadata = normalizeMetadata(r.Metadata)
	r.Chars = utf8.RuneCountInString(r.Text)
}

func normalizeMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Chunk is a piece of a Record cut at heading boundaries. Metadata carries
// the enclosing headings under the keys "Header 1" to "Header 6".
type Chunk struct {
	Slug     string            `json:"slug"`
	Index    int               `json:"index"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
