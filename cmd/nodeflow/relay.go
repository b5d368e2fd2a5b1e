package main

import (
	"sync"

	"nodeflow/internal/autosave"
	"nodeflow/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// saveRelay nudges the running program to redraw when the save indicator
// changes. The label itself is always read from the open session.
type saveRelay struct {
	mu   sync.Mutex
	prog programRunner
}

func (r *saveRelay) attach(prog programRunner) {
	r.mu.Lock()
	r.prog = prog
	r.mu.Unlock()
}

func (r *saveRelay) forward(string, autosave.State) {
	r.mu.Lock()
	prog := r.prog
	r.mu.Unlock()
	if prog == nil {
		return
	}
	// Changes can originate inside Update, where a blocking Send would
	// deadlock the event loop.
	go prog.Send(ui.SaveStateMsg{})
}

var _ programRunner = (*tea.Program)(nil)
