// Package server exposes the pipelines over HTTP. Analysis endpoints
// stream their events as server-sent events; each run's events fan out
// through an event bus so the SSE writer and the log tap both observe
// them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/config"
	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/logging"
	"github.com/lumeng-dev/clipinsight/internal/pipeline"
	"github.com/lumeng-dev/clipinsight/internal/store"
)

// Server serves the analysis API.
type Server struct {
	runner *pipeline.Runner
	store  *store.Store
	cfg    *config.Config
	logger *logging.Logger
}

// New wires a Server.
func New(runner *pipeline.Runner, st *store.Store, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("server: runner is required")
	}
	if st == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Server{runner: runner, store: st, cfg: cfg, logger: logger.WithComponent("server")}, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/audience", s.handleAudience)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/analysis", s.handleReadAnalysis)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("url")
	if link == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url query parameter is required"})
		return
	}
	s.stream(w, r, "comments", func(ctx context.Context, emit pipeline.Emitter) error {
		_, err := s.runner.AnalyzeComments(ctx, link, runOptions(r), emit)
		return err
	})
}

func (s *Server) handleAudience(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("url")
	if link == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url query parameter is required"})
		return
	}
	s.stream(w, r, "audience", func(ctx context.Context, emit pipeline.Emitter) error {
		_, err := s.runner.AnalyzeAudience(ctx, link, runOptions(r), emit)
		return err
	})
}

type chatRequest struct {
	ContentID string `json:"contentId"`
	Message   string `json:"message"`
	Fast      bool   `json:"fast"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ContentID == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contentId and message are required"})
		return
	}
	s.stream(w, r, "chat", func(ctx context.Context, emit pipeline.Emitter) error {
		_, err := s.runner.ChatReply(ctx, req.ContentID, req.Message, pipeline.RunOptions{Fast: req.Fast}, emit)
		return err
	})
}

func (s *Server) handleReadAnalysis(w http.ResponseWriter, r *http.Request) {
	contentID := r.URL.Query().Get("contentId")
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = store.KindComments
	}
	if contentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contentId query parameter is required"})
		return
	}

	entry, err := s.store.ReadCache(r.Context(), contentID, kind)
	if err != nil {
		s.logger.Error("failed to read analysis", "content_id", contentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read analysis"})
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no analysis stored"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resultId":     entry.Payload.ID,
		"contentId":    entry.Payload.ContentID,
		"kind":         entry.Payload.Kind,
		"markdown":     entry.Payload.Markdown,
		"commentCount": entry.Payload.CommentCount,
		"modelUsed":    entry.Payload.Model,
		"tokensUsed":   entry.Payload.TokensUsed,
		"analyzedAt":   entry.Payload.AnalyzedAt,
		"fresh":        entry.Fresh(time.Now(), s.cfg.CacheWindow()),
	})
}

// stream runs op with the request context, bridging its events onto the
// response as SSE frames via a per-run bus. Client disconnects cancel
// the run; the [DONE] sentinel always trails, after the terminal event.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, prefix string, op func(ctx context.Context, emit pipeline.Emitter) error) {
	sw, err := newSSEWriter(w, prefix, s.logger)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	bus := event.NewBus()
	bus.SubscribeAll(sw.writeEvent)
	defer bus.Clear()

	if err := op(r.Context(), bus.Publish); err != nil {
		// The terminal error event already went out on the stream.
		s.logger.Warn("streamed run failed", "prefix", prefix, "error", err)
	}
	sw.writeDone()
}

func runOptions(r *http.Request) pipeline.RunOptions {
	return pipeline.RunOptions{
		Fast:    boolParam(r, "fast"),
		Refresh: boolParam(r, "refresh"),
	}
}

func boolParam(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
