package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/logging"
)

// sseWriter frames pipeline events as server-sent events. Each event is
// written as "event: <prefix>-<type>" plus a JSON data line; the stream
// ends with a bare "data: [DONE]" frame.
type sseWriter struct {
	w      http.ResponseWriter
	fl     http.Flusher
	prefix string
	logger *logging.Logger

	mu     sync.Mutex
	failed bool
}

func newSSEWriter(w http.ResponseWriter, prefix string, logger *logging.Logger) (*sseWriter, error) {
	fl, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	return &sseWriter{w: w, fl: fl, prefix: prefix, logger: logger}, nil
}

// writeEvent frames one event. Write failures mark the writer dead and
// are not retried; the client is gone.
func (s *sseWriter) writeEvent(ev event.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal event", "type", ev.EventType(), "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return
	}
	if _, err := s.w.Write([]byte("event: " + s.prefix + "-" + ev.EventType() + "\ndata: ")); err != nil {
		s.failed = true
		return
	}
	if _, err := s.w.Write(append(payload, '\n', '\n')); err != nil {
		s.failed = true
		return
	}
	s.fl.Flush()
}

// writeDone emits the end-of-stream sentinel.
func (s *sseWriter) writeDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return
	}
	if _, err := s.w.Write([]byte("data: [DONE]\n\n")); err != nil {
		s.failed = true
		return
	}
	s.fl.Flush()
}
