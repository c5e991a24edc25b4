// Package aggregate cleans raw comment records and computes summary
// statistics over them. Everything here is a pure function: no I/O, no
// state retained between calls.
package aggregate

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// CleanedComment is a comment that survived normalization. Created and
// owned by this package; never mutated after creation.
type CleanedComment struct {
	User     string `json:"user"`
	Text     string `json:"text"`
	Likes    int64  `json:"likes"`
	Location string `json:"location"`
}

// LocationStat is the frequency of one location tag among the cleaned
// comments. Percentage is computed against the total cleaned count, so
// percentages over any top-N slice never sum past 100.
type LocationStat struct {
	Location   string  `json:"location"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// minTextRunes is the shortest normalized text accepted as a valid comment.
const minTextRunes = 2

// emotePattern matches platform emote tokens like [笑哭] embedded in
// comment text.
var emotePattern = regexp.MustCompile(`\[[^\[\]]*?\]`)

// CleanText strips emote tokens and surrounding whitespace.
func CleanText(text string) string {
	return strings.TrimSpace(emotePattern.ReplaceAllString(text, ""))
}

// RawComment is the minimal raw-record shape Clean consumes. It mirrors
// the provider's comment payload without importing it, keeping this
// package dependency-free.
type RawComment struct {
	AuthorName string
	Text       string
	DiggCount  int64
	IPLabel    string
}

// Clean normalizes raw comments and drops invalid ones. A comment is
// rejected when its normalized text is shorter than two runes. At most
// max comments are considered, in input order; pass max <= 0 for no cap.
func Clean(raw []RawComment, max int) []CleanedComment {
	if max > 0 && len(raw) > max {
		raw = raw[:max]
	}

	cleaned := make([]CleanedComment, 0, len(raw))
	for _, c := range raw {
		text := CleanText(c.Text)
		if utf8.RuneCountInString(text) < minTextRunes {
			continue
		}

		user := c.AuthorName
		if user == "" {
			user = "anonymous"
		}

		cleaned = append(cleaned, CleanedComment{
			User:     user,
			Text:     text,
			Likes:    c.DiggCount,
			Location: c.IPLabel,
		})
	}
	return cleaned
}

// AggregateLocations groups cleaned comments by location tag, sorts by
// count descending (ties broken alphabetically for determinism), keeps
// the top n entries, and computes each percentage against the total
// cleaned comment count. Comments without a location tag are counted in
// the denominator but produce no entry.
func AggregateLocations(cleaned []CleanedComment, n int) []LocationStat {
	if len(cleaned) == 0 || n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, c := range cleaned {
		if c.Location == "" {
			continue
		}
		counts[c.Location]++
	}
	if len(counts) == 0 {
		return nil
	}

	stats := make([]LocationStat, 0, len(counts))
	total := len(cleaned)
	for location, count := range counts {
		stats = append(stats, LocationStat{
			Location:   location,
			Count:      count,
			Percentage: float64(count) / float64(total) * 100,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Location < stats[j].Location
	})

	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}
