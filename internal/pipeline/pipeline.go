// Package pipeline sequences the multi-step analysis workflows: comment
// analysis, audience analysis and chat reply generation. Each run walks
// a step registry, calls the external collaborators, streams partial
// output through a caller-supplied emitter and persists an idempotent
// result. Exactly one terminal event (done or error) ends every run.
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lumeng-dev/clipinsight/internal/config"
	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/logging"
	"github.com/lumeng-dev/clipinsight/internal/provider"
	"github.com/lumeng-dev/clipinsight/internal/store"
)

// Emitter receives every event a run produces, in emission order.
type Emitter func(event.Event)

// RunOptions tunes one pipeline run.
type RunOptions struct {
	// Fast switches generation to the configured fast model.
	Fast bool
	// Refresh bypasses the result cache and always re-runs.
	Refresh bool
}

// Runner executes pipeline runs against the configured collaborators.
type Runner struct {
	video  provider.VideoProvider
	llm    provider.CompletionClient
	store  *store.Store
	cfg    *config.Config
	logger *logging.Logger
}

// NewRunner wires a Runner. All collaborators are required.
func NewRunner(video provider.VideoProvider, llm provider.CompletionClient, st *store.Store, cfg *config.Config, logger *logging.Logger) (*Runner, error) {
	if video == nil {
		return nil, errors.New("pipeline: video provider is required")
	}
	if llm == nil {
		return nil, errors.New("pipeline: completion client is required")
	}
	if st == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Runner{video: video, llm: llm, store: st, cfg: cfg, logger: logger.WithComponent("pipeline")}, nil
}

// model returns the completion model for the run's options.
func (r *Runner) model(opts RunOptions) string {
	if opts.Fast && r.cfg.LLM.FastModel != "" {
		return r.cfg.LLM.FastModel
	}
	return r.cfg.LLM.Model
}

// run is the per-run state shared by the step helpers.
type run struct {
	ctx    context.Context
	steps  Steps
	emit   Emitter
	logger *logging.Logger

	// maxPct enforces monotonically non-decreasing percentages.
	maxPct int
}

// execute wraps one run: applies the run timeout, executes body, and
// guarantees the terminal error event on failure. The body emits its
// own done event on success.
func (r *Runner) execute(ctx context.Context, steps Steps, emit Emitter, body func(p *run) error) error {
	if emit == nil {
		emit = func(event.Event) {}
	}

	if timeout := r.cfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logger := r.logger.WithRun(runID)
	p := &run{ctx: ctx, steps: steps, emit: emit, logger: logger}

	logger.Info("run started", "steps", len(steps))

	err := body(p)
	if err != nil {
		ev := classify(err, steps)
		logger.Error("run failed", "kind", string(ev.Kind), "step", ev.Step, "error", err)
		emit(ev)
		return err
	}

	logger.Info("run completed")
	return nil
}

// step runs one registry step: checks cancellation, emits the active
// progress event, runs fn, and on success emits the completed event
// with fn's detail string. Failures come back wrapped with the step key.
func (p *run) step(key string, fn func() (string, error)) error {
	if abort := abortFor(p.ctx); abort != nil {
		return abort
	}

	index := p.steps.Index(key)
	p.progress(key, event.StatusActive, index, "")

	logger := p.logger.WithStep(key)
	logger.Debug("step started")

	detail, err := fn()
	if err != nil {
		if abort := abortFor(p.ctx); abort != nil {
			return abort
		}
		logger.Error("step failed", "error", err)
		return &StepError{Step: key, Err: err}
	}

	logger.Debug("step completed", "detail", detail)
	p.progress(key, event.StatusCompleted, index, detail)
	return nil
}

// progress emits one progress event, clamping the percentage so it
// never decreases within the run.
func (p *run) progress(key string, status event.StepStatus, index int, detail string) {
	pct := p.steps.Percentage(index, status)
	if pct < p.maxPct {
		pct = p.maxPct
	}
	p.maxPct = pct

	def := p.steps.Get(key)
	p.emit(event.NewProgress(key, status, index, len(p.steps), pct, detail, def.Label, def.Description))
}
