package pipeline

import (
	"math"

	"github.com/lumeng-dev/clipinsight/internal/event"
)

// StepDefinition names one unit of work in a pipeline. Order within the
// registry drives percentage computation only, never control flow.
type StepDefinition struct {
	Key         string
	Label       string
	Description string
}

// Steps is an ordered step registry for one pipeline flavor.
type Steps []StepDefinition

// Index returns the position of key in the registry, or -1.
func (s Steps) Index(key string) int {
	for i, def := range s {
		if def.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the definition for key, or a zero definition.
func (s Steps) Get(key string) StepDefinition {
	if i := s.Index(key); i >= 0 {
		return s[i]
	}
	return StepDefinition{}
}

// First returns the key of the first step; unclassified failures are
// attributed to it for diagnostics.
func (s Steps) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0].Key
}

// Percentage converts a step position and status into percent complete.
// A completed step i counts as i+1 finished steps; an active one as i.
func (s Steps) Percentage(index int, status event.StepStatus) int {
	total := len(s)
	if total == 0 || index < 0 {
		return 0
	}
	finished := index
	if status == event.StatusCompleted {
		finished = index + 1
	}
	return int(math.Round(float64(finished) / float64(total) * 100))
}

// Step keys shared across flavors.
const (
	StepResolve    = "resolve"
	StepDetail     = "detail"
	StepStatistics = "statistics"
	StepCollect    = "collect"
	StepLoad       = "load"
	StepPrepare    = "prepare"
	StepAnalyze    = "analyze"
	StepSave       = "save"
)

// CommentSteps is the registry for the comment-analysis pipeline.
var CommentSteps = Steps{
	{Key: StepResolve, Label: "Resolve link", Description: "Extracting the video id from the share link"},
	{Key: StepDetail, Label: "Fetch video info", Description: "Loading title, author and cover"},
	{Key: StepStatistics, Label: "Fetch statistics", Description: "Loading engagement counters"},
	{Key: StepCollect, Label: "Collect comments", Description: "Paging through the comment list"},
	{Key: StepAnalyze, Label: "Generate analysis", Description: "Streaming the comment analysis"},
	{Key: StepSave, Label: "Save result", Description: "Persisting the analysis report"},
}

// AudienceSteps is the registry for the audience-analysis pipeline. It
// reads comments from the database first and only falls back to the
// provider when none were stored.
var AudienceSteps = Steps{
	{Key: StepResolve, Label: "Resolve link", Description: "Extracting the video id from the share link"},
	{Key: StepLoad, Label: "Load comments", Description: "Reading stored comments, collecting if absent"},
	{Key: StepAnalyze, Label: "Generate analysis", Description: "Streaming the audience profile"},
	{Key: StepSave, Label: "Save result", Description: "Persisting the audience report"},
}

// ChatSteps is the registry for the chat-reply pipeline.
var ChatSteps = Steps{
	{Key: StepPrepare, Label: "Prepare context", Description: "Assembling the conversation prompt"},
	{Key: StepAnalyze, Label: "Generate reply", Description: "Streaming the reply"},
	{Key: StepSave, Label: "Save reply", Description: "Persisting the reply"},
}
