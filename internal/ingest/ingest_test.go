package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikimd/internal/wikitext"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantFM  FrontMatter
		wantErr error
		body    string
	}{
		{
			name:    "no front matter",
			raw:     "'''Chennai''' is a city.",
			wantErr: errNoFrontMatter,
			body:    "'''Chennai''' is a city.",
		},
		{
			name:    "wikitext rule is body",
			raw:     "----\ntext",
			wantErr: errNoFrontMatter,
			body:    "----\ntext",
		},
		{
			name: "full block",
			raw:  "---\ntitle: சென்னை\nslug: chennai\nmetadata:\n  revision: \"42\"\n---\n== H ==\nbody",
			wantFM: FrontMatter{
				Title:    "சென்னை",
				Slug:     "chennai",
				Metadata: map[string]string{"revision": "42"},
			},
			body: "== H ==\nbody",
		},
		{
			name:   "skip flag",
			raw:    "---\nskip: true\n---\nx",
			wantFM: FrontMatter{Skip: true},
			body:   "x",
		},
		{
			name: "empty block",
			raw:  "---\n---\nbody",
			body: "body",
		},
		{
			name:    "unterminated block",
			raw:     "---\ntitle: x\nbody",
			wantErr: errInvalidFrontMatter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, err := ParseFrontMatter([]byte(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.body != "" {
					assert.Equal(t, tt.body, string(body))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFM, fm)
			assert.Equal(t, tt.body, string(body))
		})
	}
}

func TestResolveSlugAndTitle(t *testing.T) {
	assert.Equal(t, "chennai-central", ResolveSlug(FrontMatter{}, "/x/Chennai_Central.wiki"))
	assert.Equal(t, "Chennai Central", ResolveTitle(FrontMatter{}, "/x/Chennai_Central.wiki"))
	assert.Equal(t, "my-slug", ResolveSlug(FrontMatter{Slug: "My Slug!"}, "/x/a.wiki"))
	assert.Equal(t, "தமிழ்-நாடு", ResolveSlug(FrontMatter{Title: "தமிழ் நாடு"}, "/x/a.wiki"))
	assert.Equal(t, "", ResolveSlug(FrontMatter{Title: "!!!"}, "/x/a.wiki"))
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil))
	assert.Len(t, HashBytes([]byte("x")), 64)
}

func TestDiscoverSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.wiki", "b")
	writeFile(t, dir, "a.WIKITEXT", "a")
	writeFile(t, dir, "nested/c.mediawiki", "c")
	writeFile(t, dir, "notes.md", "skip")
	writeFile(t, dir, ".cache/d.wiki", "hidden")

	files, err := DiscoverSource(dir, nil)
	require.NoError(t, err)

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(dir, f.Path)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.WIKITEXT", "b.wiki", "nested/c.mediawiki"}, got)

	assert.True(t, HasSourceExt("x/Y.Wiki", nil))
	assert.False(t, HasSourceExt("x/y.md", nil))
	assert.True(t, HasSourceExt("x/y.md", []string{".md"}))
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Chennai.wiki", "{{Infobox}}\n'''Chennai''' is a city.\n== References ==\n* x")
	writeFile(t, dir, "Madurai.wiki", "---\ntitle: மதுரை\nslug: madurai\nmetadata:\n  Revision: \"7\"\n---\n''Madurai'' text")
	writeFile(t, dir, "Skipped.wiki", "---\nskip: true\n---\nbody")
	writeFile(t, dir, "Empty.wiki", "{{only template}}\n[[Category:X]]")
	writeFile(t, dir, "dup/madurai.wiki", "duplicate body")

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	recs, warns, err := Ingest(context.Background(), Options{
		SourceDir: dir,
		Workers:   2,
		Converter: wikitext.NewConverter(),
		Source:    "wikipedia",
		Language:  "ta",
		Now:       func() time.Time { return stamp },
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	chennai, madurai := recs[0], recs[1]
	assert.Equal(t, "chennai", chennai.Slug)
	assert.Equal(t, "\n**Chennai** is a city.  ", chennai.Text)
	assert.Equal(t, map[string]string{"title": "Chennai", "source": "wikipedia", "language": "ta"}, chennai.Metadata)
	assert.Equal(t, stamp, chennai.Converted)
	assert.Len(t, chennai.SourceHash, 64)
	assert.Equal(t, len([]rune(chennai.Text)), chennai.Chars)

	assert.Equal(t, "madurai", madurai.Slug)
	assert.Equal(t, "மதுரை", madurai.Title)
	assert.Equal(t, "*Madurai* text  ", madurai.Text)
	assert.Equal(t, "7", madurai.Metadata["revision"])

	var msgs []string
	for _, w := range warns {
		rel, _ := filepath.Rel(dir, w.Path)
		msgs = append(msgs, filepath.ToSlash(rel)+": "+w.Msg)
	}
	assert.Contains(t, msgs, "Empty.wiki: no content after conversion")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1], "dup/madurai.wiki: duplicate slug \"madurai\"")
}

func TestIngest_Cancelled(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.wiki", "b.wiki", "c.wiki"} {
		writeFile(t, dir, n, "text")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Ingest(ctx, Options{SourceDir: dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_MissingDir(t *testing.T) {
	_, _, err := Ingest(context.Background(), Options{SourceDir: filepath.Join(t.TempDir(), "absent")})
	assert.Error(t, err)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Kovai.wiki", "[[Coimbatore|Kovai]] city")

	rec, warns, err := ConvertFile(Options{Language: "ta"}, path)
	require.NoError(t, err)
	assert.Empty(t, warns)
	assert.Equal(t, "kovai", rec.Slug)
	assert.Equal(t, "Kovai city  ", rec.Text)

	skipped := writeFile(t, dir, "Skip.wiki", "---\nskip: true\n---\nx")
	_, _, err = ConvertFile(Options{}, skipped)
	assert.True(t, errors.Is(err, ErrSkipped))

	_, _, err = ConvertFile(Options{}, filepath.Join(dir, "absent.wiki"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrSkipped))
}

func TestStripFrontMatter(t *testing.T) {
	body, err := StripFrontMatter([]byte("---\ntitle: X\n---\n'''x'''\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "'''x'''\n", string(body))

	body, err = StripFrontMatter([]byte("plain\r\ntext"))
	require.NoError(t, err)
	assert.Equal(t, "plain\ntext", string(body))

	_, err = StripFrontMatter([]byte("---\ntitle: X\nbody without close"))
	assert.ErrorIs(t, err, errInvalidFrontMatter)
}
