// Package build runs the dataset pipeline: ingest, index, chunk, measure and
// export.
package build

import (
	"context"
	"fmt"
	"time"

	"wikimd/internal/chunk"
	fp "wikimd/internal/domain/build"
	"wikimd/internal/domain/config"
	"wikimd/internal/domain/corpus"
	"wikimd/internal/index"
	"wikimd/internal/ingest"
	"wikimd/internal/logger"
	"wikimd/internal/publish"
	"wikimd/internal/stats"
	"wikimd/internal/wikitext"
)

type Builder struct {
	Cfg config.Config
	Log logger.Logger

	// Force rewrites the export even when the fingerprint is unchanged.
	Force bool
	Now   func() time.Time
}

type Result struct {
	Records  []corpus.Record
	Chunks   []corpus.Chunk
	Warnings []ingest.Warning
	Stats    stats.Stats

	Fingerprint string
	// Unchanged is set when the previous export was up to date and left as is.
	Unchanged bool
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	log := b.logger()
	cfg := b.Cfg
	started := b.now()

	recs, warns, err := ingest.Ingest(ctx, IngestOptions(cfg, b.Now))
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}
	for _, w := range warns {
		log.Warn("ingest warning", logger.String("path", w.Path), logger.String("msg", w.Msg))
	}
	log.Info("ingested",
		logger.String("source_dir", cfg.Corpus.SourceDir),
		logger.Int("records", len(recs)),
		logger.Int("warnings", len(warns)),
	)

	st, err := index.Open(index.OpenOptions{Path: cfg.Build.IndexPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	res := &Result{Records: recs, Warnings: warns}
	res.Fingerprint = fingerprint(cfg, recs).BuildHash

	var rows []publish.Row
	var docs []stats.Document
	if cfg.Build.ChunkSize > 0 {
		res.Chunks = chunkRecords(recs, cfg.Build.ChunkSize)
		rows, docs = chunkRows(recs, res.Chunks)
	} else {
		rows, docs = recordRows(recs)
	}
	res.Stats = stats.Compute(docs, stats.Info{
		Source:   cfg.Corpus.Source,
		Language: cfg.Corpus.Language,
		Format:   "Markdown",
		License:  cfg.Dataset.License,
		Created:  started,
	})

	if !b.Force {
		prev, err := st.GetMeta(index.MetaFingerprint)
		if err != nil {
			return nil, fmt.Errorf("read fingerprint: %w", err)
		}
		if prev == res.Fingerprint && exportExists(cfg.Build.OutputDir) {
			res.Unchanged = true
			log.Info("dataset up to date", logger.String("fingerprint", res.Fingerprint))
			return res, nil
		}
	}

	if err := st.Rebuild(recs); err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	card := publish.Card{
		RepoID:      cfg.Hub.RepoID,
		Name:        cfg.Dataset.Name,
		PrettyName:  cfg.Dataset.PrettyName,
		Description: cfg.Dataset.Description,
		License:     cfg.Dataset.License,
		Language:    cfg.Dataset.Language,
		Source:      cfg.Corpus.Source,
		Chunked:     cfg.Build.ChunkSize > 0,
	}
	shard := publish.WithShardBytes(cfg.Build.ShardBytes)
	if err := publish.ExportDataset(cfg.Build.OutputDir, rows, res.Stats, card, shard); err != nil {
		return nil, fmt.Errorf("export dataset: %w", err)
	}

	if err := st.SetMeta(index.MetaFingerprint, res.Fingerprint); err != nil {
		return nil, fmt.Errorf("store fingerprint: %w", err)
	}
	if err := st.SetMeta(index.MetaBuiltAt, started.UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("store build time: %w", err)
	}

	log.Info("dataset exported",
		logger.String("output_dir", cfg.Build.OutputDir),
		logger.Int("rows", len(rows)),
		logger.Int("chunks", len(res.Chunks)),
		logger.Duration("elapsed", b.now().Sub(started)),
	)
	return res, nil
}

// IngestOptions maps the corpus configuration onto ingest options.
func IngestOptions(cfg config.Config, now func() time.Time) ingest.Options {
	return ingest.Options{
		SourceDir:  cfg.Corpus.SourceDir,
		Extensions: cfg.Corpus.Extensions,
		Workers:    cfg.Corpus.Workers,
		Converter:  wikitext.NewConverter(wikitext.WithMaxInputBytes(cfg.Corpus.MaxInputBytes)),
		Source:     cfg.Corpus.Source,
		Language:   cfg.Corpus.Language,
		Now:        now,
	}
}

func fingerprint(cfg config.Config, recs []corpus.Record) fp.Fingerprint {
	names := make([]string, 0, len(wikitext.Stages()))
	for _, s := range wikitext.Stages() {
		names = append(names, s.Name)
	}
	settings := struct {
		Corpus  config.CorpusConfig
		Build   config.BuildConfig
		Dataset config.DatasetConfig
		RepoID  string
	}{cfg.Corpus, cfg.Build, cfg.Dataset, cfg.Hub.RepoID}
	return fp.New(recs, settings, names)
}

func chunkRecords(recs []corpus.Record, maxChars int) []corpus.Chunk {
	var out []corpus.Chunk
	for _, r := range recs {
		out = append(out, chunk.Split(r, chunk.Options{MaxChars: maxChars})...)
	}
	return out
}

func recordRows(recs []corpus.Record) ([]publish.Row, []stats.Document) {
	rows := make([]publish.Row, 0, len(recs))
	docs := make([]stats.Document, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, publish.Row{Text: r.Text, Metadata: r.Metadata})
		docs = append(docs, stats.Document{Title: r.Title, Text: r.Text, Metadata: r.Metadata})
	}
	return rows, docs
}

// chunkRows pairs every chunk with its record's metadata. Heading keys from
// the chunk win over record keys of the same name.
func chunkRows(recs []corpus.Record, chunks []corpus.Chunk) ([]publish.Row, []stats.Document) {
	bySlug := make(map[string]corpus.Record, len(recs))
	for _, r := range recs {
		bySlug[r.Slug] = r
	}
	rows := make([]publish.Row, 0, len(chunks))
	docs := make([]stats.Document, 0, len(chunks))
	for _, c := range chunks {
		r := bySlug[c.Slug]
		meta := make(map[string]string, len(r.Metadata)+len(c.Metadata)+2)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta["slug"] = c.Slug
		meta["chunk"] = fmt.Sprint(c.Index)
		rows = append(rows, publish.Row{Text: c.Text, Metadata: meta})
		docs = append(docs, stats.Document{Title: r.Title, Text: c.Text, Metadata: meta})
	}
	return rows, docs
}

func exportExists(dir string) bool {
	files, err := publish.TrainFiles(dir)
	return err == nil && len(files) > 0
}

func (b *Builder) logger() logger.Logger {
	if b.Log == nil {
		return logger.NewNop()
	}
	return b.Log
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}
