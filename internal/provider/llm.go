package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/logging"
	"github.com/lumeng-dev/clipinsight/internal/sse"
)

// ErrNoContent is returned when a completion stream finished without
// producing any text. An empty generation is a failure, not a success.
var ErrNoContent = errors.New("completion stream produced no content")

// LLMClient is the HTTP implementation of CompletionClient against an
// OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logging.Logger
}

// NewLLMClient creates an LLMClient. No client-level timeout is set:
// streams are long-lived, so deadlines come from the request context.
func NewLLMClient(baseURL, apiKey string, logger *logging.Logger) *LLMClient {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &LLMClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
		logger:  logger.WithComponent("llm"),
	}
}

// StreamComplete opens a streaming completion. The caller owns the
// returned body and must close it; cancelling ctx aborts the transport.
func (c *LLMClient) StreamComplete(ctx context.Context, req CompletionRequest) (io.ReadCloser, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	body, err := json.Marshal(map[string]any{
		"model":       req.Model,
		"messages":    []map[string]string{{"role": "user", "content": req.Prompt}},
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
		"stream":      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorDetail(resp.Body)
		_ = resp.Body.Close()
		return nil, &HTTPError{Status: resp.StatusCode, Detail: detail}
	}

	c.logger.Debug("completion stream opened", "model", req.Model)
	return resp.Body, nil
}

// CompleteStream opens a stream, decodes it, forwards every text delta to
// onDelta in order, and returns the full accumulated text. The timeout is
// independent of caller cancellation; both abort the transport, and the
// caller can tell them apart via context.Cause on its own context versus
// context.DeadlineExceeded here.
func CompleteStream(ctx context.Context, client CompletionClient, req CompletionRequest, timeout time.Duration, logger *logging.Logger, onDelta func(string) error) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := client.StreamComplete(ctx, req)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	full, err := sse.DecodeStream(ctx, body, logger, onDelta)
	if err != nil {
		// The transport surfaces cancellation as a read error wrapping
		// the context error; report the context cause instead.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return full, ctxErr
		}
		return full, err
	}

	if full == "" {
		return "", ErrNoContent
	}
	return full, nil
}
