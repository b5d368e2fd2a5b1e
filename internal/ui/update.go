package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nodeflow/internal/domain"
	"nodeflow/internal/graph"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Update implements tea.Model.
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.notes.SetWidth(clampDimension(m.width-12, 20, 100))
		m.notes.SetHeight(clampDimension(m.height-12, 3, 20))
		return m, nil
	case tickMsg:
		if !m.toastUntil.IsZero() && !m.now().Before(m.toastUntil) {
			m.toast = ""
			m.toastUntil = time.Time{}
		}
		return m, tickCmd()
	case SaveStateMsg:
		return m, nil
	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		if m.screen == screenBoard {
			return m.updateBoard(msg)
		}
		return m.updateProjects(msg)
	}
	if m.prompt != promptNone {
		return m.forwardToPrompt(msg)
	}
	return m, nil
}

func (m *App) updateProjects(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.projectCursor > 0 {
			m.projectCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.projectCursor < len(m.projects)-1 {
			m.projectCursor++
		}
	case key.Matches(msg, m.keys.NewProject):
		return m, m.openPrompt(promptNewProject, "", "")
	case key.Matches(msg, m.keys.RenameProject):
		if p, ok := m.selectedProject(); ok {
			return m, m.openPrompt(promptRenameProject, p.ID, p.Title)
		}
	case key.Matches(msg, m.keys.DeleteProject):
		if p, ok := m.selectedProject(); ok {
			m.prompt = promptDeleteProject
			m.promptTarget = p.ID
		}
	case key.Matches(msg, m.keys.Enter):
		if p, ok := m.selectedProject(); ok {
			m.openProject(p.ID)
		}
	}
	return m, nil
}

func (m *App) openProject(id string) {
	s, err := m.ws.Open(context.Background(), id)
	if err != nil {
		m.reportError("Open project", err)
		return
	}
	m.session = s
	m.screen = screenBoard
	m.nodeCursor, m.edgeCursor = 0, 0
	m.focus = focusNodes
	m.linkFrom = ""
	m.showMap = false
}

// leaveBoard closes the session, flushing unsaved work before the project
// list is shown again.
func (m *App) leaveBoard() {
	if err := m.ws.CloseSession(context.Background()); err != nil {
		m.reportError("Close project", err)
	}
	m.session = nil
	m.screen = screenProjects
	m.linkFrom = ""
	if err := m.reloadProjects(); err != nil {
		m.reportError("Load projects", err)
	}
}

func (m *App) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	if s == nil {
		m.screen = screenProjects
		return m, nil
	}
	ctx := context.Background()

	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		if m.linkFrom != "" {
			m.linkFrom = ""
			return m, nil
		}
		m.leaveBoard()
		return m, nil
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab):
		if m.focus == focusNodes {
			m.focus = focusEdges
		} else {
			m.focus = focusNodes
		}
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.AddNode):
		pos := domain.DefaultPosition
		if n, ok := m.selectedNode(); ok {
			pos = n.Position.Offset(moveStep*2, moveStep*2)
		}
		n, err := s.AddNodeAt(pos)
		if err != nil {
			m.reportError("Add step", err)
			break
		}
		m.focus = focusNodes
		m.selectNode(n.ID)
	case key.Matches(msg, m.keys.EditTitle):
		if n, ok := m.selectedNode(); ok {
			return m, m.openPrompt(promptTitle, n.ID, n.Title)
		}
	case key.Matches(msg, m.keys.EditNotes):
		if n, ok := m.selectedNode(); ok {
			return m, m.openPrompt(promptNotes, n.ID, n.Notes)
		}
	case key.Matches(msg, m.keys.EditColor):
		if n, ok := m.selectedNode(); ok {
			return m, m.openPrompt(promptColor, n.ID, n.Color)
		}
	case key.Matches(msg, m.keys.AttachImage):
		if n, ok := m.selectedNode(); ok {
			return m, m.openPrompt(promptImagePath, n.ID, "")
		}
	case key.Matches(msg, m.keys.CycleStatus):
		if n, ok := m.selectedNode(); ok {
			if err := s.SetStatus(n.ID, n.Status.Next()); err != nil {
				m.reportError("Change status", err)
			}
		}
	case key.Matches(msg, m.keys.MoveUp):
		m.nudge(0, -moveStep)
	case key.Matches(msg, m.keys.MoveDown):
		m.nudge(0, moveStep)
	case key.Matches(msg, m.keys.MoveLeft):
		m.nudge(-moveStep, 0)
	case key.Matches(msg, m.keys.MoveRight):
		m.nudge(moveStep, 0)
	case key.Matches(msg, m.keys.Link):
		m.toggleLink()
	case key.Matches(msg, m.keys.Enter):
		if m.linkFrom != "" {
			m.toggleLink()
		}
	case key.Matches(msg, m.keys.Delete):
		m.deleteSelection()
	case key.Matches(msg, m.keys.Undo):
		if !s.Undo(ctx) {
			m.showToast("Nothing to undo", false)
		}
		m.clampCursors()
	case key.Matches(msg, m.keys.Redo):
		if !s.Redo(ctx) {
			m.showToast("Nothing to redo", false)
		}
		m.clampCursors()
	case key.Matches(msg, m.keys.Copy):
		m.copyNotes()
	case key.Matches(msg, m.keys.ToggleMap):
		m.showMap = !m.showMap
	case key.Matches(msg, m.keys.SaveNow):
		if err := s.SaveNow(ctx); err != nil {
			m.reportError("Save", err)
		}
	}
	return m, nil
}

func (m *App) moveCursor(delta int) {
	if m.focus == focusEdges {
		m.edgeCursor += delta
	} else {
		m.nodeCursor += delta
	}
	m.clampCursors()
}

func (m *App) nudge(dx, dy float64) {
	n, ok := m.selectedNode()
	if !ok {
		return
	}
	if err := m.session.MoveNode(n.ID, n.Position.Offset(dx, dy)); err != nil {
		m.reportError("Move", err)
	}
}

// toggleLink starts link mode on the selected node, or completes it by
// connecting the stored source to the selected node.
func (m *App) toggleLink() {
	n, ok := m.selectedNode()
	if !ok {
		return
	}
	if m.linkFrom == "" {
		m.linkFrom = n.ID
		m.showToast("Link mode: pick a target and press l", false)
		return
	}
	source := m.linkFrom
	m.linkFrom = ""
	if source == n.ID {
		m.showToast("Link cancelled", false)
		return
	}
	_, err := m.session.Connect(graph.Connection{
		Source:       source,
		Target:       n.ID,
		SourceHandle: domain.HandleRight,
		TargetHandle: domain.HandleLeft,
	})
	if err != nil {
		m.reportError("Link", err)
	}
}

func (m *App) deleteSelection() {
	var err error
	switch m.focus {
	case focusEdges:
		if e, ok := m.selectedEdge(); ok {
			err = m.session.DeleteEdge(e.ID)
		}
	default:
		if n, ok := m.selectedNode(); ok {
			if m.linkFrom == n.ID {
				m.linkFrom = ""
			}
			err = m.session.DeleteNode(n.ID)
		}
	}
	if err != nil {
		m.reportError("Delete", err)
	}
	m.clampCursors()
}

func (m *App) copyNotes() {
	n, ok := m.selectedNode()
	if !ok {
		return
	}
	text := n.Notes
	if strings.TrimSpace(text) == "" {
		text = n.Title
	}
	if err := m.copyText(text); err != nil {
		m.reportError("Copy", err)
		return
	}
	m.showToast(fmt.Sprintf("Copied '%s' to clipboard.", truncate(firstLine(text), 30)), false)
}

// openPrompt focuses the input for kind, prefilled with value.
func (m *App) openPrompt(kind promptKind, target, value string) tea.Cmd {
	m.prompt = kind
	m.promptTarget = target
	if kind == promptNotes {
		m.notes.SetValue(value)
		return m.notes.Focus()
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	switch kind {
	case promptNewProject:
		m.input.Placeholder = "Project title"
	case promptColor:
		m.input.Placeholder = "#ffcc00 or 212 (blank clears)"
	case promptImagePath:
		m.input.Placeholder = "/path/to/image.png"
	default:
		m.input.Placeholder = ""
	}
	return m.input.Focus()
}

func (m *App) closePrompt() {
	m.prompt = promptNone
	m.promptTarget = ""
	m.input.Blur()
	m.notes.Blur()
	m.input.SetValue("")
}

func (m *App) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt == promptDeleteProject {
		if key.Matches(msg, m.keys.Confirm) {
			m.deleteProject(m.promptTarget)
		}
		m.closePrompt()
		return m, nil
	}
	if key.Matches(msg, m.keys.Back) {
		m.closePrompt()
		return m, nil
	}
	if m.prompt == promptNotes {
		if key.Matches(msg, m.keys.Submit) {
			m.submitPrompt(m.notes.Value())
			return m, nil
		}
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd
	}
	if msg.Type == tea.KeyEnter {
		m.submitPrompt(m.input.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *App) forwardToPrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.prompt == promptNotes {
		m.notes, cmd = m.notes.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *App) submitPrompt(value string) {
	ctx := context.Background()
	kind, target := m.prompt, m.promptTarget
	m.closePrompt()

	switch kind {
	case promptNewProject:
		p, err := m.ws.CreateProject(ctx, value)
		if err != nil {
			m.reportError("New project", err)
			return
		}
		if err := m.reloadProjects(); err != nil {
			m.reportError("Load projects", err)
		}
		for i, existing := range m.projects {
			if existing.ID == p.ID {
				m.projectCursor = i
			}
		}
	case promptRenameProject:
		if _, err := m.ws.RenameProject(ctx, target, value); err != nil {
			m.reportError("Rename", err)
			return
		}
		if err := m.reloadProjects(); err != nil {
			m.reportError("Load projects", err)
		}
	case promptTitle:
		title := strings.TrimSpace(value)
		if title == "" {
			title = domain.DefaultTitle
		}
		if err := m.session.SetTitle(target, title); err != nil {
			m.reportError("Title", err)
		}
	case promptNotes:
		if err := m.session.SetNotes(target, value); err != nil {
			m.reportError("Notes", err)
		}
	case promptColor:
		if err := m.session.SetColor(target, strings.TrimSpace(value)); err != nil {
			m.reportError("Color", err)
		}
	case promptImagePath:
		path := strings.TrimSpace(value)
		if path == "" {
			return
		}
		id, err := m.session.AttachImageFile(ctx, target, path)
		if err != nil {
			m.reportError("Attach image", err)
			return
		}
		m.logger.Debug("image attached", zap.String("node", target), zap.String("image", id))
		m.showToast("Image attached", false)
	}
}

func (m *App) deleteProject(id string) {
	if err := m.ws.DeleteProject(context.Background(), id); err != nil {
		m.reportError("Delete project", err)
		return
	}
	if m.session != nil && m.session.Project().ID == id {
		m.session = nil
		m.screen = screenProjects
	}
	if err := m.reloadProjects(); err != nil {
		m.reportError("Load projects", err)
	}
}
