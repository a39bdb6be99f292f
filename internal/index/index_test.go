package index

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikimd/internal/domain/corpus"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(OpenOptions{Path: filepath.Join(t.TempDir(), "nested", "index.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func rec(slug string, chars int, path string) corpus.Record {
	return corpus.Record{Slug: slug, Title: slug, Text: "text of " + slug, Chars: chars, SourcePath: path}
}

func slugs(recs []corpus.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Slug)
	}
	return out
}

func TestSizeSlugKey(t *testing.T) {
	small := makeSizeSlugKey(10, "b")
	large := makeSizeSlugKey(5000, "a")
	assert.Equal(t, -1, bytes.Compare(large, small))

	sameA := makeSizeSlugKey(10, "a")
	assert.Equal(t, -1, bytes.Compare(sameA, small))

	assert.Equal(t, "b", slugFromSizeSlugKey(small))
	assert.Equal(t, "", slugFromSizeSlugKey([]byte{1, 2}))
}

func TestStore_RebuildAndQuery(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Rebuild([]corpus.Record{
		rec("chennai", 300, "src/Chennai.wiki"),
		rec("adyar", 40, "src/Adyar.wiki"),
		rec("madurai", 900, "src/Madurai.wiki"),
	}))

	n, err := st.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := st.Get(" chennai ")
	require.NoError(t, err)
	assert.Equal(t, "text of chennai", got.Text)

	_, err = st.Get("absent")
	assert.True(t, errors.Is(err, ErrNotFound))

	bySlug, err := st.List(ListOptions{Sort: SortSlug})
	require.NoError(t, err)
	assert.Equal(t, []string{"adyar", "chennai", "madurai"}, slugs(bySlug))

	bySize, err := st.List(ListOptions{Sort: SortSize})
	require.NoError(t, err)
	assert.Equal(t, []string{"madurai", "chennai", "adyar"}, slugs(bySize))

	page2, err := st.List(ListOptions{Sort: SortSize, Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"adyar"}, slugs(page2))

	var visited []string
	require.NoError(t, st.Each(func(r corpus.Record) error {
		visited = append(visited, r.Slug)
		return nil
	}))
	assert.Equal(t, []string{"adyar", "chennai", "madurai"}, visited)
}

func TestStore_RebuildReplaces(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Rebuild([]corpus.Record{rec("old", 1, "old.wiki")}))
	require.NoError(t, st.Rebuild([]corpus.Record{rec("new", 2, "new.wiki")}))

	all, err := st.List(ListOptions{Sort: SortSize})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, slugs(all))
	assert.True(t, errors.Is(st.DeleteSource("old.wiki"), ErrNotFound))
}

func TestStore_RebuildRejectsEmptySlug(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Rebuild([]corpus.Record{rec("kept", 1, "")}))

	err := st.Rebuild([]corpus.Record{rec("a", 1, ""), rec(" ", 1, "x.wiki")})
	require.Error(t, err)

	// the failed transaction leaves the previous contents in place
	all, err := st.List(ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, slugs(all))
}

func TestStore_PutReplacesSizeKey(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Put(rec("a", 10, "a.wiki")))
	require.NoError(t, st.Put(rec("b", 20, "b.wiki")))
	require.NoError(t, st.Put(rec("a", 30, "a.wiki")))

	bySize, err := st.List(ListOptions{Sort: SortSize})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, slugs(bySize))
	assert.Equal(t, 30, bySize[0].Chars)
}

func TestStore_Delete(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Put(rec("a", 10, "a.wiki")))
	require.NoError(t, st.Put(rec("b", 20, "b.wiki")))

	require.NoError(t, st.Delete("a"))
	require.NoError(t, st.DeleteSource("b.wiki"))
	assert.True(t, errors.Is(st.Delete("a"), ErrNotFound))

	n, err := st.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	bySize, err := st.List(ListOptions{Sort: SortSize})
	require.NoError(t, err)
	assert.Empty(t, bySize)
}

func TestStore_SlugForSource(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.Put(rec("a", 10, "a.wiki")))

	slug, err := st.SlugForSource("a.wiki")
	require.NoError(t, err)
	assert.Equal(t, "a", slug)

	_, err = st.SlugForSource("missing.wiki")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.Delete("a"))
	_, err = st.SlugForSource("a.wiki")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseSortMode(t *testing.T) {
	m, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, SortSlug, m)

	m, err = ParseSortMode("SIZE")
	require.NoError(t, err)
	assert.Equal(t, SortSize, m)

	_, err = ParseSortMode("date")
	assert.Error(t, err)
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := Open(OpenOptions{})
	assert.Error(t, err)
}

func TestStore_MetaSurvivesRebuild(t *testing.T) {
	st := openStore(t)

	v, err := st.GetMeta(MetaFingerprint)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, st.SetMeta(MetaFingerprint, "abc"))
	require.NoError(t, st.Rebuild([]corpus.Record{rec("a", 1, "a.wiki")}))

	v, err = st.GetMeta(MetaFingerprint)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}
