package serve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"wikimd/internal/build"
	"wikimd/internal/index"
	"wikimd/internal/ingest"
	"wikimd/internal/logger"
)

const (
	debounceDelay = 200 * time.Millisecond
	// maxIncremental is the largest batch of changed files applied one by
	// one; bigger batches trigger a full reload.
	maxIncremental = 32
)

func (s *Server) startWatch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = w

	return filepath.WalkDir(s.cfg.Corpus.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.cfg.Corpus.SourceDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}

func (s *Server) watchLoop(ctx context.Context) {
	s.log.Info("watching for source changes", logger.String("dir", s.cfg.Corpus.SourceDir))
	debounce := time.NewTicker(time.Hour)
	debounce.Stop()

	pending := make(map[string]struct{})
	full := false

	trigger := func() {
		select {
		case <-debounce.C:
		default:
		}
		debounce.Reset(debounceDelay)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = s.watcher.Add(ev.Name)
					full = true
					trigger()
					continue
				}
			}
			path, reload := classifyEvent(ev, s.cfg.Corpus.Extensions)
			switch {
			case reload:
				full = true
			case path != "":
				pending[path] = struct{}{}
			default:
				continue
			}
			trigger()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", logger.Error(err))
		case <-debounce.C:
			debounce.Stop()
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})

			ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
			var err error
			if full || len(paths) > maxIncremental {
				err = s.Reload(ctx2)
			} else if len(paths) > 0 {
				err = s.ApplyChanges(ctx2, paths)
			}
			cancel()
			full = false
			if err != nil {
				s.log.Error("reload failed", logger.Error(err))
			}
		}
	}
}

// classifyEvent returns the source path a watcher event changes in place,
// or reload set when the event needs a full re-ingest. Any remove or rename
// can free a slug that another source must then claim.
func classifyEvent(ev fsnotify.Event, exts []string) (path string, reload bool) {
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return "", true
	case ev.Op&(fsnotify.Write|fsnotify.Create) == 0:
		return "", false
	case ingest.HasSourceExt(ev.Name, exts):
		return ev.Name, false
	}
	return "", false
}

var (
	// errSlugConflict means a changed source claims a slug owned by another one.
	errSlugConflict = errors.New("slug owned by another source")
	// errSlugFreed means a source lost its record or changed its slug, so a
	// dropped duplicate may now own the slug.
	errSlugFreed = errors.New("slug released by its source")
)

// ApplyChanges re-converts the given source paths and updates their records
// in place. A source that loses or changes its slug, or claims one owned by
// another source, falls back to a full reload.
func (s *Server) ApplyChanges(ctx context.Context, paths []string) error {
	err := s.applyChanges(ctx, paths)
	if errors.Is(err, errSlugConflict) || errors.Is(err, errSlugFreed) {
		s.log.Info("slug ownership changed, reloading everything", logger.Error(err))
		return s.Reload(ctx)
	}
	return err
}

func (s *Server) applyChanges(ctx context.Context, paths []string) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	opts := build.IngestOptions(s.cfg, nil)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, warns, err := ingest.ConvertFile(opts, path)
		for _, w := range warns {
			s.log.Warn("ingest warning", logger.String("path", w.Path), logger.String("msg", w.Msg))
		}
		removed := errors.Is(err, ingest.ErrSkipped) || errors.Is(err, fs.ErrNotExist)
		if err != nil && !removed {
			return s.failIncremental(err)
		}

		prev, err := s.idx.SlugForSource(path)
		switch {
		case errors.Is(err, index.ErrNotFound):
			if removed {
				continue
			}
		case err != nil:
			return s.failIncremental(err)
		case removed || prev != rec.Slug:
			return fmt.Errorf("%s: %w", path, errSlugFreed)
		}

		owner, err := s.idx.Get(rec.Slug)
		switch {
		case err == nil && owner.SourcePath != path:
			return errSlugConflict
		case err != nil && !errors.Is(err, index.ErrNotFound):
			return s.failIncremental(err)
		}
		if err := s.idx.DeleteSource(path); err != nil && !errors.Is(err, index.ErrNotFound) {
			return s.failIncremental(err)
		}
		if err := s.idx.Put(rec); err != nil {
			return s.failIncremental(err)
		}
		s.log.Info("record updated", logger.String("path", path), logger.String("slug", rec.Slug))
	}

	if err := s.refreshStats(); err != nil {
		return s.failIncremental(err)
	}
	s.metrics.reloads.WithLabelValues("incremental", "ok").Inc()
	s.broadcastSSE("reload")
	return nil
}

func (s *Server) failIncremental(err error) error {
	s.metrics.reloads.WithLabelValues("incremental", "error").Inc()
	return err
}
