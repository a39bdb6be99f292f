package ingest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file suffixes treated as wikitext sources.
var DefaultExtensions = []string{".wiki", ".wikitext", ".mediawiki", ".txt"}

type SourceFile struct {
	Path string
}

// DiscoverSource walks root for files whose extension is in exts (compared
// case-insensitively) and returns them in lexical path order. Hidden
// directories are skipped.
func DiscoverSource(root string, exts []string) ([]SourceFile, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	want := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = struct{}{}
	}

	var out []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := want[strings.ToLower(filepath.Ext(d.Name()))]; ok {
			out = append(out, SourceFile{Path: path})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, err
}

// HasSourceExt reports whether path carries one of exts.
func HasSourceExt(path string, exts []string) bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
