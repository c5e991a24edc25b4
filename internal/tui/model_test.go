package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumeng-dev/clipinsight/internal/content"
	"github.com/lumeng-dev/clipinsight/internal/event"
)

func testModel() Model {
	msgs := make(chan tea.Msg)
	return New("Comment analysis", msgs, nil)
}

func TestModelTracksStepTransitions(t *testing.T) {
	m := testModel()

	next, _ := m.Update(EventMsg{Event: event.NewProgress("resolve", event.StatusActive, 0, 6, 0, "", "Resolve link", "")})
	m = next.(Model)
	next, _ = m.Update(EventMsg{Event: event.NewProgress("resolve", event.StatusCompleted, 0, 6, 17, "video 7300000001", "Resolve link", "")})
	m = next.(Model)

	if len(m.steps) != 1 {
		t.Fatalf("steps = %d, want 1 (same step updated in place)", len(m.steps))
	}
	if m.steps[0].status != event.StatusCompleted {
		t.Errorf("step status = %s, want completed", m.steps[0].status)
	}
	if m.percentage != 17 {
		t.Errorf("percentage = %d, want 17", m.percentage)
	}

	view := m.View()
	if !strings.Contains(view, "Resolve link") {
		t.Error("view missing step label")
	}
	if !strings.Contains(view, "video 7300000001") {
		t.Error("view missing completion detail")
	}
}

func TestModelShowsVideoInfo(t *testing.T) {
	m := testModel()

	next, _ := m.Update(EventMsg{Event: event.NewInfo(content.VideoInfo{Title: "My Video", Author: "creator"}, nil)})
	m = next.(Model)

	if !strings.Contains(m.View(), "My Video — creator") {
		t.Errorf("view missing video line:\n%s", m.View())
	}
}

func TestModelCountsStreamedText(t *testing.T) {
	m := testModel()

	next, _ := m.Update(TextMsg{Text: "Hello "})
	m = next.(Model)
	next, _ = m.Update(TextMsg{Text: "world"})
	m = next.(Model)

	if m.textLen != 11 {
		t.Errorf("textLen = %d, want 11", m.textLen)
	}
	if !strings.Contains(m.View(), "11 characters") {
		t.Error("view missing streaming counter")
	}
}

func TestModelQuitsOnFinished(t *testing.T) {
	m := testModel()

	cause := errors.New("boom")
	next, cmd := m.Update(FinishedMsg{Err: cause})
	m = next.(Model)

	if cmd == nil {
		t.Fatal("FinishedMsg produced no command, want tea.Quit")
	}
	if !m.finished {
		t.Error("model not marked finished")
	}
	if !errors.Is(m.Err(), cause) {
		t.Errorf("Err() = %v, want the finish error", m.Err())
	}
}

func TestModelCancelOnKeypress(t *testing.T) {
	cancelled := false
	msgs := make(chan tea.Msg)
	m := New("Comment analysis", msgs, func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)

	if !cancelled {
		t.Error("ctrl+c did not invoke cancel")
	}
	if cmd != nil {
		t.Error("ctrl+c mid-run should wait for FinishedMsg, not quit")
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Error("view missing cancelling notice")
	}
}

func TestModelDoneEvent(t *testing.T) {
	m := testModel()

	next, _ := m.Update(EventMsg{Event: event.NewDone(event.Done{
		ResultID:   "r1",
		Markdown:   "# report",
		ModelUsed:  "gpt-4o",
		TokensUsed: 42,
	})})
	m = next.(Model)

	if m.Done() == nil {
		t.Fatal("Done() = nil after done event")
	}
	if m.percentage != 100 {
		t.Errorf("percentage = %d, want 100", m.percentage)
	}
	if !strings.Contains(m.View(), "42 tokens") {
		t.Error("view missing completion summary")
	}
}
