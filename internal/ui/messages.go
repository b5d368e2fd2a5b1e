package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	saveChipRefresh = 250 * time.Millisecond
	toastDuration   = 4 * time.Second
)

// tickMsg refreshes the save chip and expires toasts.
type tickMsg time.Time

// SaveStateMsg can be sent by the host program when the autosave state of
// the open project changes, so the chip redraws without waiting for a tick.
// The chip always reads the live label from the session.
type SaveStateMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(saveChipRefresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
