// Package stats computes corpus statistics over converted Markdown: sizes,
// length distribution, structural markers and sample titles.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Document is one converted text, either a whole article or a chunk.
type Document struct {
	Title    string
	Text     string
	Metadata map[string]string
}

// Info describes the dataset in the statistics header.
type Info struct {
	Source   string    `json:"source"`
	Language string    `json:"language"`
	Format   string    `json:"format"`
	License  string    `json:"license"`
	Created  time.Time `json:"created"`
}

// Share is a document count and its percentage of all documents.
type Share struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Extreme names the longest or shortest document by character count.
type Extreme struct {
	Title  string `json:"title"`
	Length int    `json:"length"`
}

// Stats is the corpus summary written to dataset_statistics.json. Lengths
// are counted in characters, not bytes.
type Stats struct {
	NumDocuments int `json:"num_documents"`

	TotalCharacters  int     `json:"total_characters"`
	AvgCharacters    float64 `json:"avg_characters"`
	MedianCharacters float64 `json:"median_characters"`
	MinCharacters    int     `json:"min_characters"`
	MaxCharacters    int     `json:"max_characters"`
	StdCharacters    float64 `json:"std_characters"`

	TotalWords  int     `json:"total_words"`
	AvgWords    float64 `json:"avg_words"`
	MedianWords float64 `json:"median_words"`

	AvgLines    float64 `json:"avg_lines"`
	MedianLines float64 `json:"median_lines"`

	TotalSizeBytes int64   `json:"total_size_bytes"`
	TotalSizeMB    float64 `json:"total_size_mb"`
	TotalSizeGB    float64 `json:"total_size_gb"`

	LengthPercentiles map[string]float64 `json:"length_percentiles"`
	SizeDistribution  map[string]Share   `json:"size_distribution"`

	WithSections Share `json:"articles_with_sections"`
	WithLists    Share `json:"articles_with_lists"`
	WithTables   Share `json:"articles_with_tables"`

	// MarkdownHeaders counts documents holding at least one heading per level.
	MarkdownHeaders map[string]int `json:"markdown_headers"`
	// HeaderMetadata counts documents whose metadata names an enclosing
	// heading, per level. Only chunked exports carry such metadata.
	HeaderMetadata     map[string]int `json:"header_distribution,omitempty"`
	WithHeaderMetadata Share          `json:"with_header_metadata"`

	SampleTitles []string `json:"sample_titles"`
	Longest      Extreme  `json:"longest_article"`
	Shortest     Extreme  `json:"shortest_article"`

	Metadata Info `json:"metadata"`
}

// Percentiles reported in LengthPercentiles.
var Percentiles = []int{10, 25, 50, 75, 90, 95, 99}

// SizeCategory is a half-open character range [Min, Max). Max zero means
// unbounded.
type SizeCategory struct {
	Name string
	Min  int
	Max  int
}

// SizeCategories buckets documents by length for SizeDistribution, in
// ascending order.
var SizeCategories = []SizeCategory{
	{"tiny", 0, 500},
	{"small", 500, 2000},
	{"medium", 2000, 10000},
	{"large", 10000, 50000},
	{"very_large", 50000, 0},
}

const sampleTitles = 10

const headerMetadataPrefix = "Header "

// Compute builds the statistics for docs.
func Compute(docs []Document, info Info) Stats {
	s := Stats{
		NumDocuments:      len(docs),
		LengthPercentiles: make(map[string]float64, len(Percentiles)),
		SizeDistribution:  make(map[string]Share, len(SizeCategories)),
		MarkdownHeaders:   make(map[string]int, 6),
		SampleTitles:      []string{},
		Metadata:          info,
	}
	if info.Format == "" {
		s.Metadata.Format = "Markdown"
	}

	n := len(docs)
	chars := make([]float64, n)
	words := make([]float64, n)
	lines := make([]float64, n)
	categories := make([]int, len(SizeCategories))
	headerMeta := make(map[string]int)
	var sections, lists, tables, withHeaderMeta int

	analyzer := NewAnalyzer()
	for i, d := range docs {
		c := utf8.RuneCountInString(d.Text)
		w := len(strings.Fields(d.Text))
		chars[i], words[i] = float64(c), float64(w)
		lines[i] = float64(strings.Count(d.Text, "\n") + 1)

		s.TotalCharacters += c
		s.TotalWords += w
		s.TotalSizeBytes += int64(len(d.Text))
		categories[categoryOf(c)]++

		st := analyzer.Analyze([]byte(d.Text))
		if st.HasSections() {
			sections++
		}
		if st.Lists > 0 {
			lists++
		}
		if st.Tables > 0 {
			tables++
		}
		for level := 1; level <= 6; level++ {
			if st.Headings[level] > 0 {
				s.MarkdownHeaders[fmt.Sprintf("H%d", level)]++
			}
		}

		title := d.Title
		if st.FirstHeading != "" {
			if len(s.SampleTitles) < sampleTitles {
				s.SampleTitles = append(s.SampleTitles, st.FirstHeading)
			}
			if title == "" {
				title = st.FirstHeading
			}
		}
		if title == "" {
			title = "Unknown"
		}
		if i == 0 || c > s.Longest.Length {
			s.Longest = Extreme{Title: title, Length: c}
		}
		if i == 0 || c < s.Shortest.Length {
			s.Shortest = Extreme{Title: title, Length: c}
		}

		found := false
		for k := range d.Metadata {
			if strings.HasPrefix(k, headerMetadataPrefix) {
				headerMeta[k]++
				found = true
			}
		}
		if found {
			withHeaderMeta++
		}
	}

	s.TotalSizeMB = float64(s.TotalSizeBytes) / (1 << 20)
	s.TotalSizeGB = float64(s.TotalSizeBytes) / (1 << 30)

	s.WithSections = share(sections, n)
	s.WithLists = share(lists, n)
	s.WithTables = share(tables, n)
	s.WithHeaderMetadata = share(withHeaderMeta, n)
	if len(headerMeta) > 0 {
		s.HeaderMetadata = headerMeta
	}
	for i, cat := range SizeCategories {
		s.SizeDistribution[cat.Name] = share(categories[i], n)
	}
	if n == 0 {
		return s
	}

	sort.Float64s(chars)
	sort.Float64s(words)
	sort.Float64s(lines)

	s.MinCharacters = int(chars[0])
	s.MaxCharacters = int(chars[n-1])
	s.AvgCharacters = mean(chars)
	s.MedianCharacters = Percentile(chars, 50)
	s.StdCharacters = stddev(chars)
	s.AvgWords = mean(words)
	s.MedianWords = Percentile(words, 50)
	s.AvgLines = mean(lines)
	s.MedianLines = Percentile(lines, 50)
	for _, p := range Percentiles {
		s.LengthPercentiles[fmt.Sprintf("p%d", p)] = Percentile(chars, float64(p))
	}
	return s
}

func categoryOf(chars int) int {
	for i, cat := range SizeCategories {
		if chars >= cat.Min && (cat.Max == 0 || chars < cat.Max) {
			return i
		}
	}
	return len(SizeCategories) - 1
}

func share(count, total int) Share {
	if total == 0 {
		return Share{Count: count}
	}
	return Share{Count: count, Percentage: float64(count) / float64(total) * 100}
}

// Percentile returns the p-th percentile of sorted using linear
// interpolation between closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= n {
		hi = n - 1
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation; it is zero for fewer than two
// values.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
