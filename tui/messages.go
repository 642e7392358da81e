package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/zombielinks/linkcheck"
	"github.com/lukemcguire/zombielinks/result"
)

// ProgressMsg reports progress for a single checked URL.
type ProgressMsg struct {
	Checked int
	Total   int
	Broken  int
	URL     string
}

// RunDoneMsg signals the run has completed.
type RunDoneMsg struct {
	Result *result.Result
	Err    error
}

// waitForProgress returns a tea.Cmd that reads one event from the progress
// channel. A closed channel yields no message; completion is signalled by
// RunDoneMsg from startRun.
func waitForProgress(ch <-chan linkcheck.CheckEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return nil
		}
		return ProgressMsg{
			Checked: evt.Checked,
			Total:   evt.Total,
			Broken:  evt.Broken,
			URL:     evt.URL,
		}
	}
}
