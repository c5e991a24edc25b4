package pipeline

import (
	"fmt"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/content"
	"github.com/lumeng-dev/clipinsight/internal/logging"
)

// collection is the outcome of the comment-collection loop.
type collection struct {
	Comments []content.RawComment
	Pages    int
	// Partial is set when a page fetch failed and pagination stopped
	// early with the records gathered so far.
	Partial bool
}

// detail renders the completion detail line for the collect step.
func (c *collection) detail() string {
	if c.Partial {
		return fmt.Sprintf("collected %d comments across %d pages (stopped early: page fetch failed)", len(c.Comments), c.Pages)
	}
	return fmt.Sprintf("collected %d comments across %d pages", len(c.Comments), c.Pages)
}

// collectComments pages through the provider's comment list until the
// record or page ceiling is reached. A single page failure ends
// pagination with the records gathered so far rather than failing the
// run; only cancellation propagates as an error.
func (p *run) collectComments(r *Runner, videoID string, logger *logging.Logger) (*collection, error) {
	var (
		col    collection
		cursor int64
	)

	for col.Pages < r.cfg.Pipeline.MaxPages && len(col.Comments) < r.cfg.Pipeline.MaxComments {
		if abort := abortFor(p.ctx); abort != nil {
			return nil, abort
		}

		if col.Pages > 0 {
			if delay := r.cfg.PageDelay(); delay > 0 {
				select {
				case <-time.After(delay):
				case <-p.ctx.Done():
					return nil, abortFor(p.ctx)
				}
			}
		}

		page, err := r.video.FetchCommentsPage(p.ctx, videoID, cursor, r.cfg.Pipeline.PageSize)
		if err != nil {
			if abort := abortFor(p.ctx); abort != nil {
				return nil, abort
			}
			logger.Warn("comment page fetch failed, stopping pagination",
				"page", col.Pages+1, "cursor", cursor, "error", err)
			col.Partial = true
			break
		}

		col.Pages++
		col.Comments = append(col.Comments, page.Comments...)
		cursor = page.Cursor

		if !page.HasMore {
			break
		}
	}

	if len(col.Comments) > r.cfg.Pipeline.MaxComments {
		col.Comments = col.Comments[:r.cfg.Pipeline.MaxComments]
	}

	logger.Info("comment collection finished",
		"comments", len(col.Comments), "pages", col.Pages, "partial", col.Partial)
	return &col, nil
}
