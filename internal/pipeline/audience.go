package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lumeng-dev/clipinsight/internal/aggregate"
	"github.com/lumeng-dev/clipinsight/internal/content"
	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/provider"
	"github.com/lumeng-dev/clipinsight/internal/store"
)

// AnalyzeAudience runs the audience-analysis pipeline. Comments come
// from the database when a prior comment run stored them; otherwise
// they are collected from the provider first.
func (r *Runner) AnalyzeAudience(ctx context.Context, shareLink string, opts RunOptions, emit Emitter) (*store.StoredAnalysis, error) {
	var result *store.StoredAnalysis

	err := r.execute(ctx, AudienceSteps, emit, func(p *run) error {
		var (
			videoID  string
			comments []content.RawComment
			source   string
			cleaned  []aggregate.CleanedComment
			text     string
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
			if cached := r.freshResult(p, videoID, store.KindAudience); cached != nil {
				result = cached
				return nil
			}
		}

		if err := p.step(StepLoad, func() (string, error) {
			logger := p.logger.WithStep(StepLoad)

			stored, err := r.store.ListComments(p.ctx, videoID)
			if err != nil {
				logger.Warn("failed to read stored comments, collecting instead", "error", err)
			}
			if len(stored) > 0 {
				comments = stored
				source = "db"
				return fmt.Sprintf("loaded %d stored comments", len(stored)), nil
			}

			col, err := p.collectComments(r, videoID, logger)
			if err != nil {
				return "", err
			}
			if len(col.Comments) == 0 {
				return "", errors.New("no comments available for audience analysis")
			}
			comments = col.Comments
			source = "api"
			if err := r.store.ReplaceComments(p.ctx, videoID, col.Comments); err != nil {
				logger.Warn("failed to store collected comments", "error", err)
			}
			return col.detail(), nil
		}); err != nil {
			return err
		}

		if err := p.step(StepAnalyze, func() (string, error) {
			cleaned = aggregate.Clean(toAggregate(comments), r.cfg.Pipeline.MaxComments)
			if len(cleaned) == 0 {
				return "", errors.New("no usable comments after cleaning")
			}
			locations := aggregate.AggregateLocations(cleaned, r.cfg.Pipeline.TopLocations)

			header := audienceHeader(len(cleaned), source)
			p.emit(event.NewPartial("audience", header))

			out, err := provider.CompleteStream(p.ctx, r.llm, provider.CompletionRequest{
				Prompt:      audienceAnalysisPrompt(cleaned, locations),
				Model:       model,
				MaxTokens:   r.cfg.LLM.MaxTokens,
				Temperature: r.cfg.LLM.Temperature,
			}, r.cfg.StreamTimeout(), p.logger.WithStep(StepAnalyze), func(delta string) error {
				p.emit(event.NewPartial("audience", delta))
				return nil
			})
			if err != nil {
				return "", err
			}

			footer := reportFooter()
			p.emit(event.NewPartial("audience", footer))
			text = header + out + footer
			return fmt.Sprintf("generated %d characters", len(out)), nil
		}); err != nil {
			return err
		}

		if err := p.step(StepSave, func() (string, error) {
			stored, err := r.store.UpsertAnalysis(p.ctx, videoID, store.Analysis{
				Kind:         store.KindAudience,
				Markdown:     text,
				CommentCount: len(cleaned),
				Source:       source,
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

		p.emit(event.NewDone(event.Done{
			ResultID:     result.ID,
			Markdown:     result.Markdown,
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

// audienceHeader renders the metadata header of the audience report.
// Emitted as the first partial of the analyze step.
func audienceHeader(commentCount int, source string) string {
	var sb strings.Builder
	sb.WriteString("# Audience profile\n\n")
	sb.WriteString(fmt.Sprintf("**Comments analyzed:** %d (source: %s)\n\n", commentCount, source))
	sb.WriteString("---\n\n")
	return sb.String()
}
