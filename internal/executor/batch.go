package executor

import (
	"strings"
	"sync"
	"time"
)

// DefaultBatchInterval is the throttle window for merging stream deltas
// into downstream state updates.
const DefaultBatchInterval = 16 * time.Millisecond

// Batcher coalesces stream deltas over a time window so downstream
// consumers see at most one update per interval. Flush delivers
// whatever is pending immediately; completion paths call it so the last
// fragment is never held back.
type Batcher struct {
	interval time.Duration
	deliver  func(string)

	// deliverMu serializes deliveries in snapshot order. The timer
	// callback and Flush run on different goroutines; without this a
	// flush taken after a timer snapshot could reach the consumer
	// first, reordering the text.
	deliverMu sync.Mutex

	mu        sync.Mutex
	buf       strings.Builder
	timer     *time.Timer
	delivered int
	suppress  int
}

// NewBatcher creates a Batcher delivering merged text through deliver.
// A non-positive interval falls back to DefaultBatchInterval.
func NewBatcher(interval time.Duration, deliver func(string)) *Batcher {
	if interval <= 0 {
		interval = DefaultBatchInterval
	}
	if deliver == nil {
		deliver = func(string) {}
	}
	return &Batcher{interval: interval, deliver: deliver}
}

// Add appends a delta to the pending batch, scheduling a delivery if
// none is pending. After a Restart, the bytes the previous attempt
// already delivered are swallowed before buffering resumes.
func (b *Batcher) Add(delta string) {
	if delta == "" {
		return
	}
	b.mu.Lock()
	if b.suppress > 0 {
		if len(delta) <= b.suppress {
			b.suppress -= len(delta)
			b.mu.Unlock()
			return
		}
		delta = delta[b.suppress:]
		b.suppress = 0
	}
	b.buf.WriteString(delta)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.interval, b.fire)
	}
	b.mu.Unlock()
}

func (b *Batcher) fire() {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	pending := b.buf.String()
	b.buf.Reset()
	b.timer = nil
	b.delivered += len(pending)
	b.mu.Unlock()

	if pending != "" {
		b.deliver(pending)
	}
}

// Flush delivers any pending text immediately and cancels the scheduled
// delivery.
func (b *Batcher) Flush() {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	pending := b.buf.String()
	b.buf.Reset()
	b.delivered += len(pending)
	b.mu.Unlock()

	if pending != "" {
		b.deliver(pending)
	}
}

// Restart prepares the batcher for a re-streamed attempt: pending text
// from the failed attempt is dropped, and the bytes the consumer has
// already received are suppressed when the new attempt replays them.
// Delivered text is never retracted, so consumers that only append
// (a terminal, an SSE client) see no duplicated output.
func (b *Batcher) Restart() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.buf.Reset()
	b.suppress = b.delivered
	b.mu.Unlock()
}
