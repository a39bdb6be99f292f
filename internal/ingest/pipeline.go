package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"wikimd/internal/domain/corpus"
	"wikimd/internal/wikitext"
)

// ErrSkipped is returned by ConvertFile for sources that produce no record.
var ErrSkipped = errors.New("source skipped")

type Warning struct {
	Path string
	Msg  string
}

type Result struct {
	Record corpus.Record
	Warns  []Warning
	Skip   bool
	Err    error
}

type Options struct {
	SourceDir  string
	Extensions []string
	Workers    int // zero means GOMAXPROCS

	Converter *wikitext.Converter
	Source    string
	Language  string

	// Now stamps Record.Converted; nil means time.Now.
	Now func() time.Time
}

func (o Options) converter() *wikitext.Converter {
	if o.Converter == nil {
		return wikitext.NewConverter()
	}
	return o.Converter
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Ingest discovers every source under opts.SourceDir and converts them on a
// worker pool. Records come back ordered by source path; when two sources
// resolve to the same slug the first path wins and the other is reported.
func Ingest(ctx context.Context, opts Options) ([]corpus.Record, []Warning, error) {
	files, err := DiscoverSource(opts.SourceDir, opts.Extensions)
	if err != nil {
		return nil, nil, fmt.Errorf("discover %s: %w", opts.SourceDir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	jobs := make(chan SourceFile)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sf := range jobs {
				select {
				case results <- convertSource(opts, sf.Path):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var out []corpus.Record
	var warns []Warning
	for r := range results {
		if r.Err != nil {
			return nil, nil, r.Err
		}
		warns = append(warns, r.Warns...)
		if r.Skip {
			continue
		}
		out = append(out, r.Record)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SourcePath < out[j].SourcePath })
	sort.SliceStable(warns, func(i, j int) bool { return warns[i].Path < warns[j].Path })

	seen := make(map[string]string, len(out))
	filtered := make([]corpus.Record, 0, len(out))
	for _, rec := range out {
		if first, ok := seen[rec.Slug]; ok {
			warns = append(warns, Warning{
				Path: rec.SourcePath,
				Msg:  fmt.Sprintf("duplicate slug %q (already used by %s), skipped", rec.Slug, first),
			})
			continue
		}
		seen[rec.Slug] = rec.SourcePath
		filtered = append(filtered, rec)
	}
	return filtered, warns, nil
}

// ConvertFile converts a single source. It returns ErrSkipped, together with
// any warnings, when the source yields no record.
func ConvertFile(opts Options, path string) (corpus.Record, []Warning, error) {
	r := convertSource(opts, path)
	switch {
	case r.Err != nil:
		return corpus.Record{}, r.Warns, r.Err
	case r.Skip:
		return corpus.Record{}, r.Warns, ErrSkipped
	}
	return r.Record, r.Warns, nil
}

func convertSource(opts Options, path string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	hash := HashBytes(raw)

	fm, body, fmErr := ParseFrontMatter(raw)
	if fmErr != nil && !errors.Is(fmErr, errNoFrontMatter) {
		return Result{
			Warns: []Warning{{Path: path, Msg: "failed to parse front matter: " + fmErr.Error()}},
			Skip:  true,
		}
	}
	if fm.Skip {
		return Result{Skip: true}
	}

	slug := ResolveSlug(fm, path)
	if slug == "" {
		return Result{Warns: []Warning{{Path: path, Msg: "empty slug"}}, Skip: true}
	}

	md := opts.converter().Convert(string(body))
	if strings.TrimSpace(md) == "" {
		return Result{Warns: []Warning{{Path: path, Msg: "no content after conversion"}}, Skip: true}
	}

	title := ResolveTitle(fm, path)
	meta := make(map[string]string, len(fm.Metadata)+3)
	for k, v := range fm.Metadata {
		meta[k] = v
	}
	meta["title"] = title
	if opts.Source != "" {
		meta["source"] = opts.Source
	}
	if opts.Language != "" {
		meta["language"] = opts.Language
	}

	rec := corpus.Record{
		Slug:       slug,
		Title:      title,
		Text:       md,
		Metadata:   meta,
		Source:     opts.Source,
		SourcePath: path,
		SourceHash: hash,
		Converted:  opts.now(),
	}
	rec.Normalize()
	return Result{Record: rec}
}
