// Package executor is the consumer-side companion to the pipelines. It
// enforces the single-flight discipline (a new request cancels the
// previous one), batches stream deltas through a time-windowed throttle,
// and retries transient failures with capped doubling backoff.
package executor

import (
	"context"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/config"
	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/logging"
	"github.com/lumeng-dev/clipinsight/internal/pipeline"
)

// Executor runs pipeline requests on behalf of one logical session.
type Executor struct {
	flight   SingleFlight
	policy   *Policy
	interval time.Duration
	logger   *logging.Logger
}

// New builds an Executor with the given retry configuration.
func New(cfg config.RetryConfig, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Executor{
		policy:   NewPolicy(cfg, logger),
		interval: DefaultBatchInterval,
		logger:   logger.WithComponent("executor"),
	}
}

// Execute runs op as the session's single in-flight request, cancelling
// any previous one first. Partial events are merged through the throttle
// and delivered via onText; progress, info and done events pass through
// to sink. Terminal errors are not forwarded — the classified error is
// returned instead, for the caller to render (see FriendlyMessage).
// Transient failures are retried per the policy; each retry restarts op
// from the beginning, and text already delivered to onText is not
// delivered again when the new attempt replays it.
func (e *Executor) Execute(parent context.Context, op func(ctx context.Context, emit pipeline.Emitter) error, sink pipeline.Emitter, onText func(string)) (string, error) {
	ctx, id := e.flight.Begin(parent)
	logger := e.logger.With("request_id", id)

	batcher := NewBatcher(e.interval, onText)
	emit := func(ev event.Event) {
		switch ev := ev.(type) {
		case event.Partial:
			batcher.Add(ev.Data)
		case event.Error:
			// The final outcome travels on the error return value.
		default:
			if event.IsTerminal(ev) {
				batcher.Flush()
			}
			if sink != nil {
				sink(ev)
			}
		}
	}

	logger.Debug("request started")
	attempt := 0
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			// The retry re-streams from the beginning; drop the failed
			// attempt's pending text and swallow the replayed prefix.
			batcher.Restart()
		}
		return op(ctx, emit)
	})
	batcher.Flush()

	if !e.flight.Finish(id) {
		logger.Debug("request superseded before completion")
	}
	if err != nil {
		logger.Warn("request failed", "class", Classify(err).String(), "error", err)
		return id, err
	}
	logger.Debug("request completed")
	return id, nil
}

// Cancel aborts the session's in-flight request, if any.
func (e *Executor) Cancel() {
	e.flight.Cancel()
}

// Active returns the id of the in-flight request, or "".
func (e *Executor) Active() string {
	return e.flight.Active()
}
