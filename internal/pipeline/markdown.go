package pipeline

import (
	"fmt"
	"strings"

	"github.com/lumeng-dev/clipinsight/internal/aggregate"
	"github.com/lumeng-dev/clipinsight/internal/content"
)

// toAggregate converts provider comment records into the aggregator's
// input shape.
func toAggregate(raw []content.RawComment) []aggregate.RawComment {
	out := make([]aggregate.RawComment, len(raw))
	for i, c := range raw {
		out[i] = aggregate.RawComment{
			AuthorName: c.AuthorName,
			Text:       c.Text,
			DiggCount:  c.DiggCount,
			IPLabel:    c.IPLabel,
		}
	}
	return out
}

// reportHeader renders the metadata header of the comment report. The
// header is emitted as the first partial of the analyze step, so the
// concatenation of all partials reproduces the stored artifact exactly.
func reportHeader(info content.VideoInfo, stats *content.Statistics, commentCount int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", info.Title))
	sb.WriteString(fmt.Sprintf("**Author:** %s\n", info.Author))
	if stats != nil && !stats.IsZero() {
		sb.WriteString(fmt.Sprintf("**Plays:** %d · **Likes:** %d · **Comments:** %d · **Shares:** %d\n",
			stats.PlayCount, stats.DiggCount, stats.CommentCount, stats.ShareCount))
	}
	sb.WriteString(fmt.Sprintf("**Comments analyzed:** %d\n\n", commentCount))
	sb.WriteString("---\n\n")

	return sb.String()
}

// reportFooter closes every report artifact.
func reportFooter() string {
	return "\n\n---\n*Generated by clipinsight*\n"
}

// commentLines renders cleaned comments as prompt input, one per line.
func commentLines(cleaned []aggregate.CleanedComment) string {
	var sb strings.Builder
	for i, c := range cleaned {
		sb.WriteString(fmt.Sprintf("%d. [%s", i+1, c.User))
		if c.Location != "" {
			sb.WriteString(" · " + c.Location)
		}
		if c.Likes > 0 {
			sb.WriteString(fmt.Sprintf(" · %d likes", c.Likes))
		}
		sb.WriteString("] " + c.Text + "\n")
	}
	return sb.String()
}

// locationLines renders the location distribution as prompt input.
func locationLines(stats []aggregate.LocationStat) string {
	if len(stats) == 0 {
		return "no location data\n"
	}
	var sb strings.Builder
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", s.Location, s.Count, s.Percentage))
	}
	return sb.String()
}

// commentAnalysisPrompt builds the prompt for the comment pipeline.
func commentAnalysisPrompt(info content.VideoInfo, cleaned []aggregate.CleanedComment, locations []aggregate.LocationStat) string {
	var sb strings.Builder
	sb.WriteString("You are a short-video content analyst. Analyze the audience comments below and write a concise markdown report covering overall sentiment, recurring themes, notable questions, and actionable suggestions for the creator.\n\n")
	sb.WriteString(fmt.Sprintf("Video: %s by %s\n\n", info.Title, info.Author))
	sb.WriteString("Location distribution:\n")
	sb.WriteString(locationLines(locations))
	sb.WriteString("\nComments:\n")
	sb.WriteString(commentLines(cleaned))
	return sb.String()
}

// audienceAnalysisPrompt builds the prompt for the audience pipeline.
func audienceAnalysisPrompt(cleaned []aggregate.CleanedComment, locations []aggregate.LocationStat) string {
	var sb strings.Builder
	sb.WriteString("You are an audience researcher. From the comments below, profile this video's audience: likely demographics, regional distribution, interests, and engagement style. Write a concise markdown report.\n\n")
	sb.WriteString("Location distribution:\n")
	sb.WriteString(locationLines(locations))
	sb.WriteString("\nComments:\n")
	sb.WriteString(commentLines(cleaned))
	return sb.String()
}

// chatPrompt builds the prompt for a chat reply, grounding it in the
// stored analysis when one exists.
func chatPrompt(analysisContext, message string) string {
	var sb strings.Builder
	sb.WriteString("You are a content-operations assistant. Answer the user's question about this video.\n\n")
	if analysisContext != "" {
		sb.WriteString("Prior analysis of the video:\n")
		sb.WriteString(analysisContext)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: " + message + "\n")
	return sb.String()
}
