package ui

import (
	"strings"
	"testing"
)

func TestProjectsViewListsProjects(t *testing.T) {
	h := newTestApp(t)
	out := h.app.View()
	if !strings.Contains(out, "No projects yet") {
		t.Fatalf("expected empty state, got:\n%s", out)
	}
	h.press("n")
	h.typeText("Roadmap")
	h.press("enter")
	out = h.app.View()
	if !strings.Contains(out, "Roadmap") || !strings.Contains(out, "New project") {
		t.Fatalf("expected project row and footer, got:\n%s", out)
	}
}

func TestBoardViewShowsSaveChipAndDetail(t *testing.T) {
	h := newTestApp(t)
	h.createAndOpen(t, "Board")
	h.press("a")
	_ = h.app.session.SetNotes(h.app.session.Nodes()[0].ID, "remember the milk")

	out := h.app.View()
	for _, want := range []string{"Board", "Saving", "Steps (1)", "New step", "Idea", "remember the milk"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in board view, got:\n%s", want, out)
		}
	}

	h.press("ctrl+s")
	if out := h.app.View(); !strings.Contains(out, "Saved") {
		t.Fatalf("expected Saved chip after ctrl+s, got:\n%s", out)
	}
}

func TestMapViewRendersCards(t *testing.T) {
	h := newTestApp(t)
	h.createAndOpen(t, "Board")
	h.press("a", "a", "m")
	out := h.app.View()
	if strings.Count(out, "New step") != 2 {
		t.Fatalf("expected two cards on the map, got:\n%s", out)
	}
}

func TestPromptOverlayIsDrawn(t *testing.T) {
	h := newTestApp(t)
	h.press("n")
	out := h.app.View()
	if !strings.Contains(out, "New project") || !strings.Contains(out, "enter save") {
		t.Fatalf("expected prompt overlay, got:\n%s", out)
	}
}
