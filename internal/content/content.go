// Package content defines the domain model shared by the pipeline,
// the external providers, and the persistence layer: video metadata,
// engagement statistics, and raw comment records as returned by the
// upstream data provider.
package content

// VideoInfo describes the video a pipeline run is analyzing.
type VideoInfo struct {
	VideoID   string `json:"videoId"`
	ContentID string `json:"contentId,omitempty"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	// DurationSec is the video length in seconds, 0 when unknown.
	DurationSec float64 `json:"duration,omitempty"`
	CoverURL    string  `json:"coverUrl,omitempty"`
}

// Statistics holds engagement counters for a video. Counters the
// provider did not report are zero.
type Statistics struct {
	PlayCount     int64 `json:"play_count"`
	DiggCount     int64 `json:"digg_count"`
	CommentCount  int64 `json:"comment_count"`
	ShareCount    int64 `json:"share_count"`
	CollectCount  int64 `json:"collect_count"`
	DownloadCount int64 `json:"download_count"`
}

// IsZero reports whether no counter carries a value. A provider response
// with all-zero statistics is treated as missing data for fallback purposes.
func (s Statistics) IsZero() bool {
	return s.PlayCount == 0 && s.DiggCount == 0 && s.CommentCount == 0 &&
		s.ShareCount == 0 && s.CollectCount == 0 && s.DownloadCount == 0
}

// RawComment is a comment record as returned by the data provider,
// before any cleaning.
type RawComment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	AuthorName string `json:"author_name"`
	DiggCount  int64  `json:"digg_count"`
	// IPLabel is the coarse location tag attached by the platform,
	// empty when the platform withheld it.
	IPLabel string `json:"ip_label,omitempty"`
}

// CommentsPage is one page of a paginated comment listing.
type CommentsPage struct {
	Comments []RawComment `json:"comments"`
	HasMore  bool         `json:"has_more"`
	// Cursor is the opaque position to pass when requesting the next page.
	// Zero is a legal cursor value and must not be treated as "no cursor".
	Cursor int64 `json:"cursor"`
}

// VideoDetail bundles the metadata returned by the detail endpoint.
// Statistics is nil when the detail payload carried no counters; callers
// use it as a fallback when the dedicated statistics endpoint fails.
type VideoDetail struct {
	Info       VideoInfo
	Statistics *Statistics
}
