// Package tui renders a pipeline run in the terminal: a spinner while
// steps are active, a progress bar driven by the run's progress events,
// and a live character count for the streamed analysis.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumeng-dev/clipinsight/internal/event"
)

// EventMsg wraps a pipeline event for the update loop.
type EventMsg struct {
	Event event.Event
}

// TextMsg carries a batch of streamed text.
type TextMsg struct {
	Text string
}

// FinishedMsg signals that the request finished; Err is nil on success.
type FinishedMsg struct {
	Err error
}

// stepLine is one row of the step list.
type stepLine struct {
	key    string
	label  string
	status event.StepStatus
	detail string
}

// Model is the bubbletea model for one streaming run.
type Model struct {
	title   string
	msgs    <-chan tea.Msg
	cancel  func()
	spinner spinner.Model
	bar     progress.Model

	steps      []stepLine
	percentage int
	video      string
	textLen    int
	cancelling bool

	finished bool
	err      error
	done     *event.Done
}

// New builds a Model consuming msgs. cancel aborts the underlying
// request when the user quits mid-run.
func New(title string, msgs <-chan tea.Msg, cancel func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		title:   title,
		msgs:    msgs,
		cancel:  cancel,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

// Err returns the run error, if any, once the model has finished.
func (m Model) Err() error { return m.err }

// Done returns the terminal done event, or nil.
func (m Model) Done() *event.Done { return m.done }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForMsg())
}

func (m Model) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.msgs
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.finished {
				return m, tea.Quit
			}
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(msg.Event)
		return m, m.waitForMsg()

	case TextMsg:
		m.textLen += len(msg.Text)
		return m, m.waitForMsg()

	case FinishedMsg:
		m.finished = true
		if m.err == nil {
			m.err = msg.Err
		}
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one pipeline event into the view state.
func (m *Model) apply(ev event.Event) {
	switch ev := ev.(type) {
	case event.Progress:
		m.percentage = ev.Percentage
		m.setStep(ev)
	case event.Info:
		m.video = fmt.Sprintf("%s — %s", ev.Video.Title, ev.Video.Author)
	case event.Done:
		m.done = &ev
		m.percentage = 100
	}
}

func (m *Model) setStep(ev event.Progress) {
	for i := range m.steps {
		if m.steps[i].key == ev.Step {
			m.steps[i].status = ev.Status
			if ev.Detail != "" {
				m.steps[i].detail = ev.Detail
			}
			return
		}
	}
	m.steps = append(m.steps, stepLine{
		key:    ev.Step,
		label:  ev.Label,
		status: ev.Status,
		detail: ev.Detail,
	})
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title) + "\n")
	if m.video != "" {
		sb.WriteString(videoStyle.Render(m.video) + "\n")
	}
	sb.WriteString("\n")

	for _, s := range m.steps {
		sb.WriteString(m.stepView(s) + "\n")
	}

	sb.WriteString("\n" + m.bar.ViewAs(float64(m.percentage)/100) + "\n")

	if m.textLen > 0 && m.done == nil {
		sb.WriteString(detailStyle.Render(fmt.Sprintf("streaming… %d characters", m.textLen)) + "\n")
	}

	switch {
	case m.cancelling && !m.finished:
		sb.WriteString(errorStyle.Render("cancelling…") + "\n")
	case m.done != nil && m.done.FromCache:
		sb.WriteString(doneStyle.Render("served from cache") + "\n")
	case m.done != nil:
		sb.WriteString(doneStyle.Render(fmt.Sprintf("done — %d tokens, model %s", m.done.TokensUsed, m.done.ModelUsed)) + "\n")
	}

	return sb.String()
}

func (m Model) stepView(s stepLine) string {
	var marker string
	switch s.status {
	case event.StatusCompleted:
		marker = doneStyle.Render("✓")
	case event.StatusActive:
		marker = m.spinner.View()
	case event.StatusError:
		marker = errorStyle.Render("✗")
	default:
		marker = pendingStyle.Render("·")
	}

	line := fmt.Sprintf("%s %s", marker, s.label)
	if s.detail != "" && s.status == event.StatusCompleted {
		line += detailStyle.Render("  " + s.detail)
	}
	return line
}
