package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/aggregate"
	"github.com/lumeng-dev/clipinsight/internal/content"
	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/provider"
	"github.com/lumeng-dev/clipinsight/internal/store"
)

// AnalyzeComments runs the comment-analysis pipeline for a share link.
// Events flow to emit in order; exactly one terminal event ends the run.
func (r *Runner) AnalyzeComments(ctx context.Context, shareLink string, opts RunOptions, emit Emitter) (*store.StoredAnalysis, error) {
	var result *store.StoredAnalysis

	err := r.execute(ctx, CommentSteps, emit, func(p *run) error {
		var (
			videoID string
			info    content.VideoInfo
			det     *content.VideoDetail
			stats   *content.Statistics
			col     *collection
			cleaned []aggregate.CleanedComment
			text    string
		)
		model := r.model(opts)
		if opts.Fast {
			p.logger.Info("fast mode enabled", "model", model)
		}

		if err := p.step(StepResolve, func() (string, error) {
			id, err := r.video.ResolveShareLink(p.ctx, shareLink)
			if err != nil {
				return "", err
			}
			videoID = id
			return "video " + id, nil
		}); err != nil {
			return err
		}

		if !opts.Refresh {
			if cached := r.freshResult(p, videoID, store.KindComments); cached != nil {
				result = cached
				return nil
			}
		}

		if err := p.step(StepDetail, func() (string, error) {
			d, err := r.video.FetchDetail(p.ctx, videoID)
			if err != nil {
				return "", err
			}
			det = d
			info = d.Info
			info.ContentID = videoID
			return info.Title, nil
		}); err != nil {
			return err
		}

		if err := p.step(StepStatistics, func() (string, error) {
			s, err := r.video.FetchStatistics(p.ctx, videoID)
			if err == nil && s != nil && !s.IsZero() {
				stats = s
				return "statistics loaded", nil
			}
			if err != nil {
				p.logger.WithStep(StepStatistics).Warn("statistics endpoint failed, trying detail counters", "error", err)
			}
			if det.Statistics != nil && !det.Statistics.IsZero() {
				stats = det.Statistics
				return "using counters embedded in video detail", nil
			}
			if err != nil {
				return "", fmt.Errorf("no statistics available: %w", err)
			}
			return "", errors.New("no statistics available")
		}); err != nil {
			return err
		}

		p.emit(event.NewInfo(info, stats))

		if err := p.step(StepCollect, func() (string, error) {
			c, err := p.collectComments(r, videoID, p.logger.WithStep(StepCollect))
			if err != nil {
				return "", err
			}
			if len(c.Comments) == 0 {
				return "", errors.New("no comments collected")
			}
			col = c
			// Stored comments feed the audience pipeline's DB-first
			// load; failing to store them is not fatal here.
			if err := r.store.ReplaceComments(p.ctx, videoID, c.Comments); err != nil {
				p.logger.WithStep(StepCollect).Warn("failed to store collected comments", "error", err)
			}
			return c.detail(), nil
		}); err != nil {
			return err
		}

		if err := p.step(StepAnalyze, func() (string, error) {
			cleaned = aggregate.Clean(toAggregate(col.Comments), r.cfg.Pipeline.MaxComments)
			if len(cleaned) == 0 {
				return "", errors.New("no usable comments after cleaning")
			}
			locations := aggregate.AggregateLocations(cleaned, r.cfg.Pipeline.TopLocations)

			header := reportHeader(info, stats, len(cleaned))
			p.emit(event.NewPartial("analysis", header))

			out, err := provider.CompleteStream(p.ctx, r.llm, provider.CompletionRequest{
				Prompt:      commentAnalysisPrompt(info, cleaned, locations),
				Model:       model,
				MaxTokens:   r.cfg.LLM.MaxTokens,
				Temperature: r.cfg.LLM.Temperature,
			}, r.cfg.StreamTimeout(), p.logger.WithStep(StepAnalyze), func(delta string) error {
				p.emit(event.NewPartial("analysis", delta))
				return nil
			})
			if err != nil {
				return "", err
			}

			footer := reportFooter()
			p.emit(event.NewPartial("analysis", footer))
			text = header + out + footer
			return fmt.Sprintf("generated %d characters", len(out)), nil
		}); err != nil {
			return err
		}

		if err := p.step(StepSave, func() (string, error) {
			stored, err := r.store.UpsertAnalysis(p.ctx, videoID, store.Analysis{
				Kind:         store.KindComments,
				Markdown:     text,
				CommentCount: len(cleaned),
				Source:       "api",
				Model:        model,
			})
			if err != nil {
				return "", err
			}
			result = stored
			return "result " + stored.ID, nil
		}); err != nil {
			return err
		}

		// done follows the final completed progress event; nothing may
		// come after it.
		p.emit(event.NewDone(event.Done{
			ResultID:     result.ID,
			Markdown:     result.Markdown,
			Video:        info,
			Statistics:   stats,
			CommentCount: result.CommentCount,
			Source:       result.Source,
			ModelUsed:    result.Model,
			TokensUsed:   result.TokensUsed,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// freshResult returns the stored analysis for (contentID, kind) when it
// is still inside the cache window, emitting the terminal done event
// for it. Cache read failures are logged and treated as a miss.
func (r *Runner) freshResult(p *run, contentID, kind string) *store.StoredAnalysis {
	entry, err := r.store.ReadCache(p.ctx, contentID, kind)
	if err != nil {
		p.logger.Warn("cache read failed, running pipeline", "error", err)
		return nil
	}
	if !entry.Fresh(time.Now(), r.cfg.CacheWindow()) {
		return nil
	}

	stored := entry.Payload
	p.logger.Info("serving cached result", "kind", kind, "cached_at", entry.CachedAt)
	p.emit(event.NewDone(event.Done{
		ResultID:     stored.ID,
		Markdown:     stored.Markdown,
		CommentCount: stored.CommentCount,
		Source:       stored.Source,
		ModelUsed:    stored.Model,
		TokensUsed:   stored.TokensUsed,
		FromCache:    true,
	}))
	return stored
}
