package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/content"
	"github.com/lumeng-dev/clipinsight/internal/logging"
)

// videoIDPattern matches the numeric video id embedded in a canonical
// video URL after short-link expansion.
var videoIDPattern = regexp.MustCompile(`/(?:video|note)/(\d+)`)

// shareURLPattern finds the URL embedded in pasted share text, which
// typically surrounds the link with promotional copy.
var shareURLPattern = regexp.MustCompile(`https?://[^\s]+`)

// VideoClient is the HTTP implementation of VideoProvider.
type VideoClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logging.Logger
}

// NewVideoClient creates a VideoClient. The timeout bounds each request;
// per-run cancellation flows in through the request context.
func NewVideoClient(baseURL, apiKey string, timeout time.Duration, logger *logging.Logger) *VideoClient {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &VideoClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithComponent("provider"),
	}
}

// ResolveShareLink extracts the video id from share text. Canonical URLs
// are parsed directly; short links are expanded by following redirects.
func (c *VideoClient) ResolveShareLink(ctx context.Context, link string) (string, error) {
	raw := shareURLPattern.FindString(link)
	if raw == "" {
		return "", fmt.Errorf("no URL found in share text")
	}

	if m := videoIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}

	// Short link: the id appears in a redirect target. Stop at the
	// first hop that carries it so the destination page is never
	// downloaded.
	var found string
	client := &http.Client{
		Timeout: c.client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if m := videoIDPattern.FindStringSubmatch(req.URL.Path); m != nil {
				found = m[1]
				return http.ErrUseLastResponse
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build redirect request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to expand share link: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if found != "" {
		return found, nil
	}
	final := resp.Request.URL.String()
	if m := videoIDPattern.FindStringSubmatch(final); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("could not extract a video id from %s", final)
}

// FetchDetail returns the video's metadata and, when the payload carries
// counters, its embedded statistics.
func (c *VideoClient) FetchDetail(ctx context.Context, videoID string) (*content.VideoDetail, error) {
	var payload struct {
		AwemeDetail *struct {
			Desc   string `json:"desc"`
			Author struct {
				Nickname string `json:"nickname"`
			} `json:"author"`
			Video struct {
				DurationMs float64 `json:"duration"`
				Cover      struct {
					URLList []string `json:"url_list"`
				} `json:"cover"`
			} `json:"video"`
			Statistics *content.Statistics `json:"statistics"`
		} `json:"aweme_detail"`
	}

	query := url.Values{"aweme_id": {videoID}}
	if err := c.get(ctx, "/api/v1/douyin/video/detail", query, &payload); err != nil {
		return nil, err
	}
	if payload.AwemeDetail == nil {
		return nil, fmt.Errorf("provider returned no detail for video %s", videoID)
	}

	d := payload.AwemeDetail
	info := content.VideoInfo{
		VideoID:     videoID,
		Title:       d.Desc,
		Author:      d.Author.Nickname,
		DurationSec: d.Video.DurationMs / 1000,
	}
	if info.Title == "" {
		info.Title = "untitled"
	}
	if info.Author == "" {
		info.Author = "unknown"
	}
	if len(d.Video.Cover.URLList) > 0 {
		info.CoverURL = d.Video.Cover.URLList[0]
	}

	detail := &content.VideoDetail{Info: info}
	if d.Statistics != nil && !d.Statistics.IsZero() {
		detail.Statistics = d.Statistics
	}
	return detail, nil
}

// FetchStatistics returns counters from the dedicated statistics endpoint.
func (c *VideoClient) FetchStatistics(ctx context.Context, videoID string) (*content.Statistics, error) {
	var payload struct {
		StatisticsList []content.Statistics `json:"statistics_list"`
		Statistics     []content.Statistics `json:"statistics"`
	}

	query := url.Values{"aweme_ids": {videoID}}
	if err := c.get(ctx, "/api/v1/douyin/video/statistics", query, &payload); err != nil {
		return nil, err
	}

	// Some API versions name the list differently.
	list := payload.StatisticsList
	if len(list) == 0 {
		list = payload.Statistics
	}
	if len(list) == 0 || list[0].IsZero() {
		return nil, fmt.Errorf("provider returned no statistics for video %s", videoID)
	}
	return &list[0], nil
}

// FetchCommentsPage returns one page of comments starting at cursor.
func (c *VideoClient) FetchCommentsPage(ctx context.Context, videoID string, cursor int64, count int) (*content.CommentsPage, error) {
	var payload struct {
		Comments []struct {
			CID       string `json:"cid"`
			Text      string `json:"text"`
			DiggCount int64  `json:"digg_count"`
			IPLabel   string `json:"ip_label"`
			User      struct {
				Nickname string `json:"nickname"`
			} `json:"user"`
		} `json:"comments"`
		HasMore bool  `json:"has_more"`
		Cursor  int64 `json:"cursor"`
	}

	query := url.Values{
		"aweme_id": {videoID},
		"cursor":   {strconv.FormatInt(cursor, 10)},
		"count":    {strconv.Itoa(count)},
	}
	if err := c.get(ctx, "/api/v1/douyin/video/comments", query, &payload); err != nil {
		return nil, err
	}

	page := &content.CommentsPage{
		Comments: make([]content.RawComment, 0, len(payload.Comments)),
		HasMore:  payload.HasMore,
		Cursor:   payload.Cursor,
	}
	for _, raw := range payload.Comments {
		page.Comments = append(page.Comments, content.RawComment{
			ID:         raw.CID,
			Text:       raw.Text,
			AuthorName: raw.User.Nickname,
			DiggCount:  raw.DiggCount,
			IPLabel:    raw.IPLabel,
		})
	}
	return page, nil
}

// get performs an authenticated GET and decodes the JSON response.
func (c *VideoClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Detail: readErrorDetail(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

// readErrorDetail extracts a human-readable message from an error body.
// Bodies are JSON when the provider produced the error itself and plain
// text when a proxy did.
func readErrorDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return ""
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return string(body)
}
