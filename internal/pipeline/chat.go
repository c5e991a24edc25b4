package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/provider"
	"github.com/lumeng-dev/clipinsight/internal/store"
)

// ChatReply runs the chat-reply pipeline: answer a question about a
// previously analyzed video, grounding the reply in the stored analysis
// when one exists. The latest reply is persisted per content id.
func (r *Runner) ChatReply(ctx context.Context, contentID, message string, opts RunOptions, emit Emitter) (*store.StoredAnalysis, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("pipeline: chat message is required")
	}

	var result *store.StoredAnalysis

	err := r.execute(ctx, ChatSteps, emit, func(p *run) error {
		var (
			prompt string
			text   string
		)
		model := r.model(opts)
		if opts.Fast {
			p.logger.Info("fast mode enabled", "model", model)
		}

		if err := p.step(StepPrepare, func() (string, error) {
			analysisContext := ""
			prior, err := r.store.ReadAnalysis(p.ctx, contentID, store.KindComments)
			switch {
			case err == nil:
				analysisContext = prior.Markdown
			case errors.Is(err, sql.ErrNoRows):
				// No prior analysis; the reply is ungrounded.
			default:
				p.logger.WithStep(StepPrepare).Warn("failed to read prior analysis", "error", err)
			}

			prompt = chatPrompt(analysisContext, message)
			if analysisContext == "" {
				return "no prior analysis found", nil
			}
			return "grounded in stored analysis", nil
		}); err != nil {
			return err
		}

		if err := p.step(StepAnalyze, func() (string, error) {
			out, err := provider.CompleteStream(p.ctx, r.llm, provider.CompletionRequest{
				Prompt:      prompt,
				Model:       model,
				MaxTokens:   r.cfg.LLM.MaxTokens,
				Temperature: r.cfg.LLM.Temperature,
			}, r.cfg.StreamTimeout(), p.logger.WithStep(StepAnalyze), func(delta string) error {
				p.emit(event.NewPartial("reply", delta))
				return nil
			})
			if err != nil {
				return "", err
			}
			text = out
			return fmt.Sprintf("generated %d characters", len(out)), nil
		}); err != nil {
			return err
		}

		if err := p.step(StepSave, func() (string, error) {
			stored, err := r.store.UpsertAnalysis(p.ctx, contentID, store.Analysis{
				Kind:     store.KindChat,
				Markdown: text,
				Model:    model,
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
			ResultID:   result.ID,
			Markdown:   result.Markdown,
			ModelUsed:  result.Model,
			TokensUsed: result.TokensUsed,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
