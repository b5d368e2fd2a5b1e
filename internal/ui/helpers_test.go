package ui

import (
	"context"
	"testing"
	"time"

	"nodeflow/internal/images"
	"nodeflow/internal/storage"
	"nodeflow/internal/workspace"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type testHarness struct {
	app    *App
	ws     *workspace.Workspace
	kv     *storage.MockKV
	images *images.MemoryStore
	copied []string
}

func newTestApp(t *testing.T) *testHarness {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)

	h := &testHarness{kv: storage.NewMockKV(), images: images.NewMemoryStore()}
	ws, err := workspace.New(workspace.Config{
		KV:       h.kv,
		Images:   h.images,
		Debounce: time.Hour,
	})
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	h.ws = ws
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	app, err := NewApp(Config{
		Workspace:    ws,
		OutputFormat: "plain",
		Version:      "test",
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.app = app
	return h
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "shift+right":
		return tea.KeyMsg{Type: tea.KeyShiftRight}
	case "shift+down":
		return tea.KeyMsg{Type: tea.KeyShiftDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press sends each key in order.
func (h *testHarness) press(keys ...string) {
	for _, k := range keys {
		h.app.Update(keyMsg(k))
	}
}

// typeText sends text as a single runes message, the way a paste arrives.
func (h *testHarness) typeText(text string) {
	h.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// createAndOpen creates a project through the UI and opens it.
func (h *testHarness) createAndOpen(t *testing.T, title string) {
	t.Helper()
	h.press("n")
	h.typeText(title)
	h.press("enter")
	h.press("enter")
	if h.app.screen != screenBoard || h.app.session == nil {
		t.Fatalf("expected board screen after opening %q", title)
	}
}
