// Package provider contains the narrow interfaces for the two external
// collaborators the pipelines call — the video/comment data provider and
// the LLM completion endpoint — plus their HTTP implementations.
package provider

import (
	"context"
	"fmt"
	"io"

	"github.com/lumeng-dev/clipinsight/internal/content"
)

// VideoProvider exposes the upstream video data service.
type VideoProvider interface {
	// ResolveShareLink extracts the video id from a share link,
	// following the short-link redirect when necessary.
	ResolveShareLink(ctx context.Context, link string) (string, error)

	// FetchDetail returns the video's metadata. The embedded statistics
	// are best-effort and may be nil.
	FetchDetail(ctx context.Context, videoID string) (*content.VideoDetail, error)

	// FetchStatistics returns the video's engagement counters from the
	// dedicated statistics endpoint.
	FetchStatistics(ctx context.Context, videoID string) (*content.Statistics, error)

	// FetchCommentsPage returns one page of comments starting at cursor.
	FetchCommentsPage(ctx context.Context, videoID string, cursor int64, count int) (*content.CommentsPage, error)
}

// CompletionRequest describes one streaming completion call.
type CompletionRequest struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// CompletionClient opens a streaming completion against the LLM endpoint.
// The returned body carries newline-delimited SSE frames; cancelling the
// request context aborts the underlying transport.
type CompletionClient interface {
	StreamComplete(ctx context.Context, req CompletionRequest) (io.ReadCloser, error)
}

// HTTPError is a non-2xx response from a collaborator. The retry policy
// classifies transient statuses from it.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("provider API error: %d - %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("provider API error: HTTP %d", e.Status)
}
