package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wikimd/internal/index"
	"wikimd/internal/logger"
	"wikimd/internal/stats"
)

type convertResponse struct {
	Markdown string       `json:"markdown"`
	Chars    int          `json:"chars"`
	Stages   []stageTrace `json:"stages,omitempty"`
}

type stageTrace struct {
	Stage string `json:"stage"`
	Text  string `json:"text"`
}

type recordSummary struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Chars      int    `json:"chars"`
	SourcePath string `json:"source_path"`
}

type recordPage struct {
	Page    int             `json:"page"`
	Size    int             `json:"size"`
	Total   int             `json:"total"`
	Records []recordSummary `json:"records"`
}

// POST /convert converts the request body. ?format=json returns a JSON
// envelope; adding trace=1 includes the text after every stage.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	body := io.Reader(r.Body)
	if limit := s.cfg.Corpus.MaxInputBytes; limit > 0 {
		body = http.MaxBytesReader(w, r.Body, int64(limit))
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			http.Error(w, fmt.Sprintf("input exceeds %d bytes", mbe.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	asJSON := q.Get("format") == "json"
	var traces []stageTrace
	start := time.Now()
	var md string
	if asJSON && q.Get("trace") == "1" {
		md = s.conv.Trace(string(raw), func(stage, text string) {
			traces = append(traces, stageTrace{Stage: stage, Text: text})
		})
	} else {
		md = s.conv.Convert(string(raw))
	}
	s.metrics.convertSeconds.Observe(time.Since(start).Seconds())
	s.metrics.conversions.Inc()

	if !asJSON {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, md)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Markdown: md,
		Chars:    len([]rune(md)),
		Stages:   traces,
	})
}

// GET /records?sort=slug|size&page=&size=
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := index.ParseSortMode(q.Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))

	opt := index.ListOptions{Sort: mode, Page: page, Size: size}
	recs, err := s.idx.List(opt)
	if err != nil {
		s.log.Error("list records", logger.Error(err))
		http.Error(w, "index query error", http.StatusInternalServerError)
		return
	}
	total, err := s.idx.Count()
	if err != nil {
		s.log.Error("count records", logger.Error(err))
		http.Error(w, "index query error", http.StatusInternalServerError)
		return
	}

	out := recordPage{Page: max(page, 1), Size: len(recs), Total: total, Records: make([]recordSummary, 0, len(recs))}
	for _, rec := range recs {
		out.Records = append(out.Records, recordSummary{
			Slug:       rec.Slug,
			Title:      rec.Title,
			Chars:      rec.Chars,
			SourcePath: rec.SourcePath,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /records/{slug}; ?format=markdown returns the text alone.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.idx.Get(r.PathValue("slug"))
	if errors.Is(err, index.ErrNotFound) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get record", logger.String("slug", r.PathValue("slug")), logger.Error(err))
		http.Error(w, "index query error", http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, rec.Text)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /stats; ?format=text returns the terminal tables.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.currentStats()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := stats.WriteText(w, st); err != nil {
			s.log.Error("write stats", logger.Error(err))
		}
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := stats.WriteJSON(w, st); err != nil {
		s.log.Error("write stats", logger.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

// GET /events streams "reload" after every index update.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan string, 8)

	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseConns, ch)
		s.sseMu.Unlock()
	}()
	fmt.Fprintf(w, "data: %s\n\n", "hello")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcastSSE(msg string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument counts requests by matched route and logs them at debug level.
func (s *Server) instrument(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if i := strings.IndexByte(route, ' '); i >= 0 {
			route = route[i+1:]
		}
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.log.Debug("request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("elapsed", time.Since(start)),
		)
	})
}
