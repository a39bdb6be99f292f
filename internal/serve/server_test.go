package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikimd/internal/domain/config"
	"wikimd/internal/domain/corpus"
	"wikimd/internal/index"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "source")
	require.NoError(t, os.MkdirAll(src, 0o755))
	write(t, src, "Chennai.wiki", "'''Chennai''' is a city.\n\n== History ==\nOld.\n")
	write(t, src, "Madurai.wiki", "'''Madurai''' is an older city with a long history of its own.\n")

	cfg := config.Default()
	cfg.Corpus.SourceDir = src
	cfg.Corpus.MaxInputBytes = 1 << 10
	cfg.Build.IndexPath = filepath.Join(root, "index.db")
	cfg.Serve.Watch = false

	s, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Reload(context.Background()))
	return s, src
}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandleConvert(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/convert", "== Title ==\n'''bold''' [[Link|text]]")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "## Title")
	assert.Contains(t, rec.Body.String(), "**bold** text")

	rec = do(t, h, http.MethodPost, "/convert?format=json&trace=1", "''x''")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp convertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Markdown, "*x*")
	assert.NotEmpty(t, resp.Stages)
	assert.Equal(t, "noise", resp.Stages[0].Stage)

	rec = do(t, h, http.MethodPost, "/convert", strings.Repeat("a", 2<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = do(t, h, http.MethodGet, "/convert", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	m := scrape(t, h)
	assert.Contains(t, m, "wikimd_conversions_total 2\n")
	assert.Contains(t, m, `wikimd_http_requests_total{code="413",route="/convert"} 1`)
	assert.Contains(t, m, `wikimd_http_requests_total{code="405",route="unmatched"} 1`)
}

func TestHandleRecords(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/records?sort=size", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page recordPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "madurai", page.Records[0].Slug)

	rec = do(t, h, http.MethodGet, "/records?sort=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/records/chennai", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var r corpus.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, "Chennai", r.Title)

	rec = do(t, h, http.MethodGet, "/records/chennai?format=markdown", "")
	assert.Contains(t, rec.Body.String(), "## History")

	rec = do(t, h, http.MethodGet, "/records/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatsAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.EqualValues(t, 2, st["num_documents"])

	rec = do(t, h, http.MethodGet, "/stats?format=text", "")
	assert.Contains(t, rec.Body.String(), "Overview")

	body := scrape(t, h)
	assert.Contains(t, body, "wikimd_index_records 2")
	assert.Contains(t, body, `wikimd_reloads_total{mode="full",result="ok"} 1`)
}

func TestApplyChanges(t *testing.T) {
	s, src := newTestServer(t)
	ctx := context.Background()

	chennai := write(t, src, "Chennai.wiki", "'''Chennai''' was Madras.\n")
	kovai := write(t, src, "Kovai.wiki", "'''Kovai''' text.\n")

	require.NoError(t, s.ApplyChanges(ctx, []string{chennai, kovai}))

	n, err := s.idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	got, err := s.idx.Get("chennai")
	require.NoError(t, err)
	assert.Contains(t, got.Text, "was Madras")
	assert.Equal(t, 3, s.currentStats().NumDocuments)

	metrics := scrape(t, s.Handler())
	assert.Contains(t, metrics, `wikimd_reloads_total{mode="incremental",result="ok"} 1`)
	assert.Contains(t, metrics, `wikimd_reloads_total{mode="full",result="ok"} 1`)
}

func TestApplyChanges_RemovalReloads(t *testing.T) {
	s, src := newTestServer(t)
	madurai := filepath.Join(src, "Madurai.wiki")
	require.NoError(t, os.Remove(madurai))

	require.NoError(t, s.ApplyChanges(context.Background(), []string{madurai}))

	n, err := s.idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.idx.Get("madurai")
	assert.ErrorIs(t, err, index.ErrNotFound)
	assert.Equal(t, 1, s.currentStats().NumDocuments)

	metrics := scrape(t, s.Handler())
	assert.Contains(t, metrics, `wikimd_reloads_total{mode="full",result="ok"} 2`)
	assert.NotContains(t, metrics, `mode="incremental"`)
}

func TestApplyChanges_UnindexedRemovalIsIncremental(t *testing.T) {
	s, src := newTestServer(t)

	require.NoError(t, s.ApplyChanges(context.Background(), []string{filepath.Join(src, "Never.wiki")}))

	n, err := s.idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, scrape(t, s.Handler()), `wikimd_reloads_total{mode="incremental",result="ok"} 1`)
}

func TestApplyChanges_FreedSlugGoesToDuplicate(t *testing.T) {
	tests := []struct {
		name   string
		change func(t *testing.T, src string) string
		moved  string
	}{
		{
			name: "owner deleted",
			change: func(t *testing.T, src string) string {
				p := filepath.Join(src, "Chennai.wiki")
				require.NoError(t, os.Remove(p))
				return p
			},
		},
		{
			name: "owner changed its slug",
			change: func(t *testing.T, src string) string {
				return write(t, src, "Chennai.wiki", "---\nslug: madras\n---\n'''Chennai''' was Madras.\n")
			},
			moved: "madras",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, src := newTestServer(t)
			other := write(t, src, "Other.wiki", "---\nslug: chennai\n---\n'''Other''' text.\n")
			require.NoError(t, s.Reload(context.Background()))
			got, err := s.idx.Get("chennai")
			require.NoError(t, err)
			require.Equal(t, filepath.Join(src, "Chennai.wiki"), got.SourcePath)

			changed := tt.change(t, src)
			require.NoError(t, s.ApplyChanges(context.Background(), []string{changed}))

			got, err = s.idx.Get("chennai")
			require.NoError(t, err)
			assert.Equal(t, other, got.SourcePath)
			if tt.moved != "" {
				got, err = s.idx.Get(tt.moved)
				require.NoError(t, err)
				assert.Equal(t, changed, got.SourcePath)
			}
		})
	}
}

func TestClassifyEvent(t *testing.T) {
	exts := []string{".wiki"}
	tests := []struct {
		name   string
		ev     fsnotify.Event
		path   string
		reload bool
	}{
		{name: "source written", ev: fsnotify.Event{Name: "/s/A.wiki", Op: fsnotify.Write}, path: "/s/A.wiki"},
		{name: "source created", ev: fsnotify.Event{Name: "/s/A.wiki", Op: fsnotify.Create}, path: "/s/A.wiki"},
		{name: "source removed", ev: fsnotify.Event{Name: "/s/A.wiki", Op: fsnotify.Remove}, reload: true},
		{name: "source renamed", ev: fsnotify.Event{Name: "/s/A.wiki", Op: fsnotify.Rename}, reload: true},
		{name: "directory removed", ev: fsnotify.Event{Name: "/s/sub", Op: fsnotify.Remove}, reload: true},
		{name: "other file written", ev: fsnotify.Event{Name: "/s/notes.txt", Op: fsnotify.Write}},
		{name: "chmod ignored", ev: fsnotify.Event{Name: "/s/A.wiki", Op: fsnotify.Chmod}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, reload := classifyEvent(tt.ev, exts)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.reload, reload)
		})
	}
}

func TestApplyChanges_SlugConflictReloads(t *testing.T) {
	s, src := newTestServer(t)

	dup := write(t, src, "Other.wiki", "---\nslug: chennai\n---\n'''Other''' text.\n")
	require.NoError(t, s.ApplyChanges(context.Background(), []string{dup}))

	got, err := s.idx.Get("chennai")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(src, "Chennai.wiki"), got.SourcePath)
	assert.Contains(t, scrape(t, s.Handler()), `wikimd_reloads_total{mode="full",result="ok"} 2`)
}

func TestHandleSSE(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: hello\n", line)
	_, _ = br.ReadString('\n')

	require.NoError(t, s.Reload(context.Background()))
	line, err = br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: reload\n", line)

	cancel()
	_, _ = io.Copy(io.Discard, resp.Body)
}
