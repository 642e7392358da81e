// Package tui provides the Bubble Tea terminal UI for zombielinks,
// displaying live check progress and a styled summary of results.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/zombielinks/linkcheck"
	"github.com/lukemcguire/zombielinks/result"
)

// RunFunc performs a link check run.
type RunFunc func(ctx context.Context) (*result.Result, error)

// Model is the Bubble Tea model for the link check TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	run        RunFunc
	spinner    spinner.Model
	progressCh <-chan linkcheck.CheckEvent

	checked  int
	total    int
	broken   int
	current  string
	quitting bool
	done     bool
	result   *result.Result
	err      error
	width    int
}

// NewModel creates a TUI model that executes run and listens on progressCh.
func NewModel(ctx context.Context, cancel context.CancelFunc, run RunFunc, progressCh <-chan linkcheck.CheckEvent) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		run:        run,
		spinner:    spin,
		progressCh: progressCh,
	}
}

// Init starts the spinner, the run and the progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), waitForProgress(m.progressCh))
}

// startRun returns a tea.Cmd that executes the run and sends RunDoneMsg.
func (m Model) startRun() tea.Cmd {
	return func() tea.Msg {
		res, err := m.run(m.ctx)
		if err != nil {
			err = fmt.Errorf("check links: %w", err)
		}
		return RunDoneMsg{Result: res, Err: err}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case ProgressMsg:
		m.checked = msg.Checked
		m.total = msg.Total
		m.broken = msg.Broken
		m.current = msg.URL
		return m, waitForProgress(m.progressCh)

	case RunDoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.result != nil {
		return RenderSummary(m.result)
	}
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	return fmt.Sprintf("%s Checking links... checked %d/%d, broken %d\n%s\n",
		m.spinner.View(), m.checked, m.total, m.broken,
		dimStyle.Render("  "+m.current))
}

// HasBrokenLinks reports whether the run found any broken links.
func (m Model) HasBrokenLinks() bool {
	return m.result != nil && len(m.result.BrokenLinks) > 0
}

// Result returns the run result, or nil if the run did not finish.
func (m Model) Result() *result.Result {
	return m.result
}

// Err returns the run error, if any.
func (m Model) Err() error {
	return m.err
}

// Quitting reports whether the user interrupted the run.
func (m Model) Quitting() bool {
	return m.quitting
}
