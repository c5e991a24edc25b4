// Package event defines the typed events a pipeline run emits and a small
// synchronous bus for fanning them out to observers (SSE writers, the
// terminal progress view, log taps) without direct dependencies.
//
// A run emits any number of progress, info, and partial events followed by
// exactly one terminal event: done or error, never both.
package event

import (
	"time"

	"github.com/lumeng-dev/clipinsight/internal/content"
)

// Event type identifiers. The server prefixes these with the pipeline
// flavor when writing SSE frames (e.g. "comments-progress").
const (
	TypeProgress = "progress"
	TypeInfo     = "info"
	TypePartial  = "partial"
	TypeDone     = "done"
	TypeError    = "error"
)

// StepStatus is the lifecycle state of a pipeline step within a run.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusActive    StepStatus = "active"
	StatusCompleted StepStatus = "completed"
	StatusError     StepStatus = "error"
)

// ErrorKind classifies a terminal error event.
type ErrorKind string

const (
	// KindAborted signals user cancellation or run timeout.
	KindAborted ErrorKind = "aborted"
	// KindStep signals a named step's collaborator call failed.
	KindStep ErrorKind = "step"
	// KindInternal is the defensive fallback for unclassified failures.
	KindInternal ErrorKind = "internal"
)

// Event is the interface all pipeline events implement.
type Event interface {
	// EventType returns the type identifier for this event.
	EventType() string

	// Timestamp returns when the event was emitted.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Progress reports a step transition. Percentage is computed from the
// step's position in the registry and is monotonically non-decreasing
// within a run.
type Progress struct {
	baseEvent
	Step        string     `json:"step"`
	Status      StepStatus `json:"status"`
	Index       int        `json:"index"`
	Total       int        `json:"total"`
	Percentage  int        `json:"percentage"`
	Detail      string     `json:"detail,omitempty"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
}

// NewProgress creates a Progress event.
func NewProgress(step string, status StepStatus, index, total, percentage int, detail, label, description string) Progress {
	return Progress{
		baseEvent:   newBaseEvent(TypeProgress),
		Step:        step,
		Status:      status,
		Index:       index,
		Total:       total,
		Percentage:  percentage,
		Detail:      detail,
		Label:       label,
		Description: description,
	}
}

// Info carries video metadata discovered mid-run. Statistics is nil
// until the statistics step has produced counters.
type Info struct {
	baseEvent
	Video      content.VideoInfo   `json:"videoInfo"`
	Statistics *content.Statistics `json:"statistics,omitempty"`
}

// NewInfo creates an Info event.
func NewInfo(video content.VideoInfo, stats *content.Statistics) Info {
	return Info{
		baseEvent:  newBaseEvent(TypeInfo),
		Video:      video,
		Statistics: stats,
	}
}

// Partial carries one incremental fragment of generated text. Fragments
// concatenated in emission order reconstruct the full text exactly once.
type Partial struct {
	baseEvent
	Key    string `json:"key"`
	Data   string `json:"data"`
	Append bool   `json:"append"`
}

// NewPartial creates a Partial event for the given output key.
func NewPartial(key, data string) Partial {
	return Partial{
		baseEvent: newBaseEvent(TypePartial),
		Key:       key,
		Data:      data,
		Append:    true,
	}
}

// Done is the terminal success event. It carries the same values the
// persister stored so callers and the store observe identical data.
type Done struct {
	baseEvent
	ResultID     string              `json:"resultId"`
	Markdown     string              `json:"markdown"`
	Video        content.VideoInfo   `json:"videoInfo"`
	Statistics   *content.Statistics `json:"statistics,omitempty"`
	CommentCount int                 `json:"commentCount"`
	Source       string              `json:"commentSource,omitempty"`
	ModelUsed    string              `json:"modelUsed"`
	TokensUsed   int                 `json:"tokensUsed"`
	FromCache    bool                `json:"fromCache,omitempty"`
}

// NewDone creates a Done event.
func NewDone(d Done) Done {
	d.baseEvent = newBaseEvent(TypeDone)
	return d
}

// Error is the terminal failure event.
type Error struct {
	baseEvent
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Step    string    `json:"step,omitempty"`
}

// NewError creates an Error event.
func NewError(kind ErrorKind, message, step string) Error {
	return Error{
		baseEvent: newBaseEvent(TypeError),
		Kind:      kind,
		Message:   message,
		Step:      step,
	}
}

// IsTerminal reports whether the event ends a run.
func IsTerminal(e Event) bool {
	switch e.EventType() {
	case TypeDone, TypeError:
		return true
	default:
		return false
	}
}
