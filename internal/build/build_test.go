package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"wikimd/internal/chunk"
	"wikimd/internal/domain/config"
	"wikimd/internal/index"
	"wikimd/internal/logger"
	"wikimd/internal/publish"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

const chennai = `{{Infobox settlement
|name = Chennai
}}
'''Chennai''' is the capital of [[Tamil Nadu]].

== History ==
Founded in 1639.<ref>cite</ref>

== Geography ==
* Coastal
* Flat

== See also ==
* [[Madras]]
`

const kovai = `'''கோயம்புத்தூர்''' ஒரு நகரம்.

== வரலாறு ==
பழைய நகரம்.
`

func setup(t *testing.T, chunkSize int) (config.Config, string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "source")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Chennai.wiki"), []byte(chennai), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Kovai.wiki"), []byte(kovai), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Empty.wiki"), []byte("{{stub}}\n"), 0o644))

	cfg := config.Default()
	cfg.Corpus.SourceDir = src
	cfg.Build.IndexPath = filepath.Join(root, ".wikimd", "index.db")
	cfg.Build.OutputDir = filepath.Join(root, "dataset")
	cfg.Build.ChunkSize = chunkSize
	return cfg, root
}

func TestBuilder_Run(t *testing.T) {
	cfg, _ := setup(t, 0)
	core, logs := observer.New(zap.InfoLevel)
	b := &Builder{Cfg: cfg, Log: logger.NewFromZap(zap.New(core)), Now: fixedNow}

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.False(t, res.Unchanged)
	assert.Empty(t, res.Chunks)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "no content after conversion", res.Warnings[0].Msg)
	assert.Equal(t, 2, res.Stats.NumDocuments)
	assert.Equal(t, 1, logs.FilterMessage("ingest warning").Len())
	assert.Equal(t, 1, logs.FilterMessage("dataset exported").Len())

	rows, err := publish.ReadDataset(cfg.Build.OutputDir)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Chennai", rows[0].Metadata["title"])
	assert.Contains(t, rows[0].Text, "## History")
	assert.NotContains(t, rows[0].Text, "See also")
	assert.NotContains(t, rows[0].Text, "Infobox")

	st, err := index.Open(index.OpenOptions{Path: cfg.Build.IndexPath})
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := st.GetMeta(index.MetaFingerprint)
	require.NoError(t, err)
	assert.Equal(t, res.Fingerprint, got)
	built, err := st.GetMeta(index.MetaBuiltAt)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:00:00Z", built)
}

func TestBuilder_SkipsUnchanged(t *testing.T) {
	cfg, _ := setup(t, 0)

	first, err := (&Builder{Cfg: cfg, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)

	second, err := (&Builder{Cfg: cfg, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	forced, err := (&Builder{Cfg: cfg, Now: fixedNow, Force: true}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, forced.Unchanged)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Corpus.SourceDir, "Kovai.wiki"), []byte(kovai+"\nமேலும்.\n"), 0o644))
	changed, err := (&Builder{Cfg: cfg, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, changed.Unchanged)
	assert.NotEqual(t, first.Fingerprint, changed.Fingerprint)
}

func TestBuilder_Chunked(t *testing.T) {
	cfg, _ := setup(t, 1000)

	res, err := (&Builder{Cfg: cfg, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	assert.Equal(t, len(res.Chunks), res.Stats.NumDocuments)

	rows, err := publish.ReadDataset(cfg.Build.OutputDir)
	require.NoError(t, err)
	require.Len(t, rows, len(res.Chunks))

	var history *publish.Row
	for i := range rows {
		if rows[i].Metadata[chunk.HeaderKey(2)] == "History" {
			history = &rows[i]
		}
	}
	require.NotNil(t, history)
	assert.Equal(t, "chennai", history.Metadata["slug"])
	assert.Equal(t, "Chennai", history.Metadata["title"])
	assert.True(t, res.Stats.WithHeaderMetadata.Count > 0)

	card, err := os.ReadFile(filepath.Join(cfg.Build.OutputDir, publish.CardFile))
	require.NoError(t, err)
	assert.Contains(t, string(card), "| Chunks |")
}

func TestBuilder_ShardedExport(t *testing.T) {
	cfg, _ := setup(t, 0)
	cfg.Build.ShardBytes = 1

	_, err := (&Builder{Cfg: cfg, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)
	files, err := publish.TrainFiles(cfg.Build.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{publish.ShardName(0, 2), publish.ShardName(1, 2)}, files)

	cfg.Build.ShardBytes = 0
	res, err := (&Builder{Cfg: cfg, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Unchanged)
	files, err = publish.TrainFiles(cfg.Build.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{publish.ShardName(0, 1)}, files)

	rows, err := publish.ReadDataset(cfg.Build.OutputDir)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBuilder_MissingSource(t *testing.T) {
	cfg := config.Default()
	cfg.Corpus.SourceDir = filepath.Join(t.TempDir(), "nope")
	cfg.Build.IndexPath = filepath.Join(t.TempDir(), "index.db")
	_, err := (&Builder{Cfg: cfg}).Run(context.Background())
	assert.Error(t, err)
}
