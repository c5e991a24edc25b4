package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// requestSeq is the process-wide request sequence counter.
var requestSeq atomic.Uint64

// NewRequestID returns an identifier unique even under rapid concurrent
// dispatch: a monotonic sequence number plus a random component.
func NewRequestID() string {
	return fmt.Sprintf("req_%d_%s", requestSeq.Add(1), uuid.NewString()[:8])
}

// SingleFlight enforces at most one in-flight request per logical
// session. Beginning a new request installs its cancel function first
// and only then cancels the previous one, so there is no window where
// the old request is live but unowned.
type SingleFlight struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	id     string
}

// Begin starts a new logical request: it derives a cancellable context
// from parent, makes it the current flight, and cancels the previous
// flight. Returns the request context and its id.
func (s *SingleFlight) Begin(parent context.Context) (context.Context, string) {
	ctx, cancel := context.WithCancel(parent)
	id := NewRequestID()

	s.mu.Lock()
	prev := s.cancel
	s.cancel = cancel
	s.id = id
	s.mu.Unlock()

	// Swap first, cancel second: the old request's completion callback
	// can no longer observe itself as current.
	if prev != nil {
		prev()
	}
	return ctx, id
}

// Finish clears the flight if id is still current. Returns false when a
// newer request has already replaced it, letting stale completions
// detect themselves.
func (s *SingleFlight) Finish(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != id {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.id = ""
	return true
}

// Cancel aborts the current flight, if any.
func (s *SingleFlight) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.id = ""
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Active returns the id of the current flight, or "".
func (s *SingleFlight) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}
