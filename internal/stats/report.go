package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteJSON writes s as indented JSON with non-ASCII text left unescaped.
func WriteJSON(w io.Writer, s Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(s)
}

// WriteText renders s as a set of plain tables for terminals and the
// dataset_statistics.txt report.
func WriteText(w io.Writer, s Stats) error {
	var b strings.Builder

	overview := newTable(&b, "Overview")
	overview.AppendRows([]table.Row{
		{"Documents", humanize.Comma(int64(s.NumDocuments))},
		{"Characters", humanize.Comma(int64(s.TotalCharacters))},
		{"Avg / median chars", fmt.Sprintf("%s / %s", commaf(s.AvgCharacters), commaf(s.MedianCharacters))},
		{"Min / max chars", fmt.Sprintf("%s / %s", humanize.Comma(int64(s.MinCharacters)), humanize.Comma(int64(s.MaxCharacters)))},
		{"Std deviation", commaf(s.StdCharacters)},
		{"Words", humanize.Comma(int64(s.TotalWords))},
		{"Avg / median words", fmt.Sprintf("%s / %s", commaf(s.AvgWords), commaf(s.MedianWords))},
		{"Avg / median lines", fmt.Sprintf("%.1f / %s", s.AvgLines, commaf(s.MedianLines))},
		{"Size", fmt.Sprintf("%s (%.2f MB, %.3f GB)", humanize.IBytes(uint64(s.TotalSizeBytes)), s.TotalSizeMB, s.TotalSizeGB)},
	})
	overview.Render()

	dist := newTable(&b, "Length distribution")
	dist.AppendHeader(table.Row{"Percentile", "Characters"})
	for _, p := range Percentiles {
		dist.AppendRow(table.Row{fmt.Sprintf("p%d", p), commaf(s.LengthPercentiles[fmt.Sprintf("p%d", p)])})
	}
	dist.Render()

	sizes := newTable(&b, "Size categories")
	sizes.AppendHeader(table.Row{"Category", "Range", "Count", "Share"})
	for _, cat := range SizeCategories {
		sh := s.SizeDistribution[cat.Name]
		sizes.AppendRow(table.Row{cat.Name, rangeLabel(cat), humanize.Comma(int64(sh.Count)), percent(sh)})
	}
	sizes.Render()

	content := newTable(&b, "Content")
	content.AppendHeader(table.Row{"Marker", "Count", "Share"})
	content.AppendRows([]table.Row{
		{"Sections", humanize.Comma(int64(s.WithSections.Count)), percent(s.WithSections)},
		{"Lists", humanize.Comma(int64(s.WithLists.Count)), percent(s.WithLists)},
		{"Tables", humanize.Comma(int64(s.WithTables.Count)), percent(s.WithTables)},
	})
	for level := 1; level <= 6; level++ {
		key := fmt.Sprintf("H%d", level)
		if n := s.MarkdownHeaders[key]; n > 0 {
			content.AppendRow(table.Row{key + " headings", humanize.Comma(int64(n)), percent(share(n, s.NumDocuments))})
		}
	}
	if s.WithHeaderMetadata.Count > 0 {
		content.AppendRow(table.Row{"Header metadata", humanize.Comma(int64(s.WithHeaderMetadata.Count)), percent(s.WithHeaderMetadata)})
	}
	content.Render()

	if len(s.SampleTitles) > 0 {
		titles := newTable(&b, "Sample titles")
		for i, t := range s.SampleTitles {
			titles.AppendRow(table.Row{i + 1, t})
		}
		titles.Render()
	}

	extremes := newTable(&b, "Extremes")
	extremes.AppendRows([]table.Row{
		{"Longest", s.Longest.Title, humanize.Comma(int64(s.Longest.Length))},
		{"Shortest", s.Shortest.Title, humanize.Comma(int64(s.Shortest.Length))},
	})
	extremes.Render()

	_, err := io.WriteString(w, b.String())
	return err
}

func newTable(out *strings.Builder, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.Style().Title.Align = text.AlignLeft
	return t
}

func commaf(f float64) string {
	return humanize.Commaf(float64(int64(f + 0.5)))
}

func percent(s Share) string {
	return fmt.Sprintf("%.1f%%", s.Percentage)
}

func rangeLabel(c SizeCategory) string {
	if c.Max == 0 {
		return fmt.Sprintf(">= %s", humanize.Comma(int64(c.Min)))
	}
	return fmt.Sprintf("%s - %s", humanize.Comma(int64(c.Min)), humanize.Comma(int64(c.Max-1)))
}
