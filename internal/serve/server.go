// Package serve exposes the converter and the record index over HTTP and
// keeps the index current while sources change.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"wikimd/internal/build"
	"wikimd/internal/domain/config"
	"wikimd/internal/domain/corpus"
	"wikimd/internal/index"
	"wikimd/internal/ingest"
	"wikimd/internal/logger"
	"wikimd/internal/stats"
	"wikimd/internal/wikitext"
)

type Server struct {
	cfg     config.Config
	log     logger.Logger
	conv    *wikitext.Converter
	idx     *index.Store
	reg     *prometheus.Registry
	metrics *metrics

	// rebuildMu serializes reloads.
	rebuildMu sync.Mutex

	mu    sync.RWMutex
	stats stats.Stats

	sseMu    sync.Mutex
	sseConns map[chan string]struct{}
	watcher  *fsnotify.Watcher
}

func New(cfg config.Config, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNop()
	}
	st, err := index.Open(index.OpenOptions{Path: cfg.Build.IndexPath})
	if err != nil {
		return nil, fmt.Errorf("serve: failed to open index: %w", err)
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		log:      log.With(logger.String("component", "serve")),
		conv:     wikitext.NewConverter(wikitext.WithMaxInputBytes(cfg.Corpus.MaxInputBytes)),
		idx:      st,
		reg:      reg,
		metrics:  newMetrics(reg),
		sseConns: make(map[chan string]struct{}),
	}
	return s, nil
}

func (s *Server) Close() error {
	var err error
	if s.watcher != nil {
		err = multierr.Append(err, s.watcher.Close())
	}
	if s.idx != nil {
		err = multierr.Append(err, s.idx.Close())
	}
	return err
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", s.handleConvert)
	mux.HandleFunc("GET /records", s.handleRecords)
	mux.HandleFunc("GET /records/{slug}", s.handleRecord)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /events", s.handleSSE)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return s.instrument(mux)
}

// ListenAndServe loads the index, optionally watches the source directory
// and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Serve.Watch {
		if err := s.startWatch(); err != nil {
			return err
		}
		g.Go(func() error {
			s.watchLoop(gctx)
			return nil
		})
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		s.log.Info("listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Reload re-ingests the whole source directory and rebuilds the index.
func (s *Server) Reload(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	recs, warns, err := ingest.Ingest(ctx, build.IngestOptions(s.cfg, nil))
	if err != nil {
		s.metrics.reloads.WithLabelValues("full", "error").Inc()
		return fmt.Errorf("ingest: %w", err)
	}
	for _, w := range warns {
		s.log.Warn("ingest warning", logger.String("path", w.Path), logger.String("msg", w.Msg))
	}
	if err := s.idx.Rebuild(recs); err != nil {
		s.metrics.reloads.WithLabelValues("full", "error").Inc()
		return fmt.Errorf("index rebuild: %w", err)
	}
	if err := s.refreshStats(); err != nil {
		return err
	}
	s.metrics.reloads.WithLabelValues("full", "ok").Inc()
	s.log.Info("index rebuilt",
		logger.Int("records", len(recs)),
		logger.Int("warnings", len(warns)),
		logger.Duration("elapsed", time.Since(start)),
	)
	s.broadcastSSE("reload")
	return nil
}

func (s *Server) refreshStats() error {
	var docs []stats.Document
	err := s.idx.Each(func(r corpus.Record) error {
		docs = append(docs, stats.Document{Title: r.Title, Text: r.Text, Metadata: r.Metadata})
		return nil
	})
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	st := stats.Compute(docs, stats.Info{
		Source:   s.cfg.Corpus.Source,
		Language: s.cfg.Corpus.Language,
		License:  s.cfg.Dataset.License,
		Created:  time.Now().UTC(),
	})
	s.mu.Lock()
	s.stats = st
	s.mu.Unlock()
	s.metrics.records.Set(float64(len(docs)))
	return nil
}

func (s *Server) currentStats() stats.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
