package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumeng-dev/clipinsight/internal/config"
	"github.com/lumeng-dev/clipinsight/internal/event"
	"github.com/lumeng-dev/clipinsight/internal/executor"
	"github.com/lumeng-dev/clipinsight/internal/logging"
	"github.com/lumeng-dev/clipinsight/internal/pipeline"
	"github.com/lumeng-dev/clipinsight/internal/provider"
	"github.com/lumeng-dev/clipinsight/internal/store"
	"github.com/lumeng-dev/clipinsight/internal/tui"
)

// runtime bundles the wired collaborators a command needs.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *store.Store
	runner *pipeline.Runner
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" && cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}

	video := provider.NewVideoClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.ProviderTimeout(), logger)
	llm := provider.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, logger)

	runner, err := pipeline.NewRunner(video, llm, st, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, logger: logger, store: st, runner: runner}, nil
}

func (rt *runtime) close() {
	_ = rt.store.Close()
	_ = rt.logger.Close()
}

// streamRun executes op behind the single-flight executor and renders
// its events in the terminal UI. On success the stored markdown goes to
// stdout; on failure a friendly message goes to stderr.
func streamRun(rt *runtime, title string, op func(ctx context.Context, emit pipeline.Emitter) error) error {
	exec := executor.New(rt.cfg.Retry, rt.logger)

	msgs := make(chan tea.Msg, 128)
	sink := func(ev event.Event) { msgs <- tui.EventMsg{Event: ev} }
	onText := func(s string) { msgs <- tui.TextMsg{Text: s} }

	go func() {
		_, err := exec.Execute(context.Background(), op, sink, onText)
		msgs <- tui.FinishedMsg{Err: err}
		close(msgs)
	}()

	program := tea.NewProgram(tui.New(title, msgs, exec.Cancel))
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	m := final.(tui.Model)
	if runErr := m.Err(); runErr != nil {
		friendly := executor.FriendlyMessage(runErr)
		fmt.Fprintf(os.Stderr, "\n%s: %s\n%s\n", friendly.Title, friendly.Message, friendly.Action)
		return runErr
	}
	if done := m.Done(); done != nil {
		fmt.Println()
		fmt.Println(done.Markdown)
	}
	return nil
}

// plainRun executes op without the TUI, printing progress to stderr and
// the streamed text to stdout as it arrives. Suited to piping.
func plainRun(rt *runtime, op func(ctx context.Context, emit pipeline.Emitter) error) error {
	exec := executor.New(rt.cfg.Retry, rt.logger)

	sink := func(ev event.Event) {
		switch ev := ev.(type) {
		case event.Progress:
			if ev.Status == event.StatusCompleted {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s", ev.Percentage, ev.Label)
				if ev.Detail != "" {
					fmt.Fprintf(os.Stderr, " — %s", ev.Detail)
				}
				fmt.Fprintln(os.Stderr)
			}
		case event.Info:
			fmt.Fprintf(os.Stderr, "video: %s — %s\n", ev.Video.Title, ev.Video.Author)
		case event.Done:
			if ev.FromCache {
				fmt.Fprintln(os.Stderr, "served from cache")
				fmt.Println(ev.Markdown)
			}
		}
	}
	onText := func(s string) { fmt.Print(s) }

	_, err := exec.Execute(context.Background(), op, sink, onText)
	if err != nil {
		friendly := executor.FriendlyMessage(err)
		fmt.Fprintf(os.Stderr, "\n%s: %s\n%s\n", friendly.Title, friendly.Message, friendly.Action)
		return err
	}
	fmt.Println()
	return nil
}
