package publish

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"wikimd/internal/stats"
)

// Card holds the dataset card fields.
type Card struct {
	RepoID      string
	Name        string
	PrettyName  string
	Description string
	License     string
	Language    string
	Source      string
	Chunked     bool
}

// cardHeader is the YAML block a hub reads from the top of README.md.
type cardHeader struct {
	License        string   `yaml:"license"`
	Language       []string `yaml:"language,omitempty"`
	PrettyName     string   `yaml:"pretty_name"`
	SizeCategories []string `yaml:"size_categories"`
	TaskCategories []string `yaml:"task_categories"`
	Tags           []string `yaml:"tags"`

	Configs []cardConfig `yaml:"configs"`
}

// cardConfig points the hub's dataset loader at the train shards.
type cardConfig struct {
	ConfigName string          `yaml:"config_name"`
	DataFiles  []cardDataFiles `yaml:"data_files"`
}

type cardDataFiles struct {
	Split string `yaml:"split"`
	Path  string `yaml:"path"`
}

var cardBody = template.Must(template.New("card").Parse(`# {{.Title}}

{{.Card.Description}}

## Dataset structure

The train split is stored as JSON Lines shards matching ` + "`" + `{{.TrainPattern}}` + "`" + `.
Each line is a JSON object with a ` + "`text`" + ` field holding
{{if .Card.Chunked}}one heading-scoped chunk{{else}}one article{{end}} in Markdown and a ` + "`metadata`" + ` object.

## Statistics

| Metric | Value |
| --- | --- |
| {{if .Card.Chunked}}Chunks{{else}}Articles{{end}} | {{.Stats.NumDocuments}} |
| Characters | {{.Stats.TotalCharacters}} |
| Words (approx.) | {{.Stats.TotalWords}} |
| Median length | {{printf "%.0f" .Stats.MedianCharacters}} chars |
| Size | {{printf "%.2f" .Stats.TotalSizeMB}} MB |

Full numbers are in ` + "`" + `{{.StatsFile}}` + "`" + `.

## License

Text is derived from {{.Source}} and distributed under {{.LicenseName}}.
Attribution to the original article authors is required.
{{if .Card.RepoID}}
## Usage

` + "```python" + `
from datasets import load_dataset

ds = load_dataset("{{.Card.RepoID}}")
` + "```" + `
{{end}}`))

// Write renders the card with its YAML header.
func (c Card) Write(w io.Writer, s stats.Stats) error {
	header := cardHeader{
		License:        c.License,
		PrettyName:     c.title(),
		SizeCategories: []string{SizeCategory(s.NumDocuments)},
		TaskCategories: []string{"text-generation"},
		Tags:           []string{"wikipedia", "markdown"},
		Configs: []cardConfig{{
			ConfigName: "default",
			DataFiles:  []cardDataFiles{{Split: "train", Path: TrainPattern}},
		}},
	}
	if c.Language != "" {
		header.Language = []string{c.Language}
	}
	y, err := yaml.Marshal(header)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "---\n%s---\n\n", y); err != nil {
		return err
	}
	return cardBody.Execute(w, map[string]any{
		"Title":        c.title(),
		"Card":         c,
		"Stats":        s,
		"TrainPattern": TrainPattern,
		"StatsFile":    StatsFile,
		"LicenseName":  licenseName(c.License),
		"Source":       c.source(),
	})
}

func (c Card) source() string {
	if c.Source != "" {
		return c.Source
	}
	return "Wikipedia"
}

func (c Card) title() string {
	if c.PrettyName != "" {
		return c.PrettyName
	}
	return c.Name
}

// SizeCategory buckets a row count the way hub dataset cards expect.
func SizeCategory(n int) string {
	switch {
	case n < 1_000:
		return "n<1K"
	case n < 10_000:
		return "1K<n<10K"
	case n < 100_000:
		return "10K<n<100K"
	case n < 1_000_000:
		return "100K<n<1M"
	case n < 10_000_000:
		return "1M<n<10M"
	default:
		return "n>10M"
	}
}

func licenseName(id string) string {
	switch strings.ToLower(id) {
	case "cc-by-sa-4.0":
		return "CC BY-SA 4.0"
	case "cc-by-sa-3.0":
		return "CC BY-SA 3.0"
	case "":
		return "the source license"
	}
	return id
}
