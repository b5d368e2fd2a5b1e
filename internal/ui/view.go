package ui

import (
	"fmt"
	"strings"
	"time"

	"nodeflow/internal/domain"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *App) View() string {
	var base string
	if m.screen == screenBoard && m.session != nil {
		base = m.boardView()
	} else {
		base = m.projectsView()
	}
	if m.toast != "" {
		style := styleInfoToast
		if m.toastError {
			style = styleErrorToast
		}
		base = lipgloss.JoinVertical(lipgloss.Left, base, style.Render(m.toast))
	}
	if m.prompt == promptNone {
		return base
	}
	return m.overlay(base, m.promptView())
}

// overlay centers box over base on a canvas the size of the window.
func (m *App) overlay(base, box string) string {
	width := max(m.width, lipgloss.Width(base), lipgloss.Width(box))
	height := max(m.height, lipgloss.Height(base), lipgloss.Height(box))
	canvas := NewCanvas(width, height)
	canvas.DrawStringAt(0, 0, base)
	x := (width - lipgloss.Width(box)) / 2
	y := (height - lipgloss.Height(box)) / 2
	canvas.DrawStringAt(x, y, box)
	return canvas.Render()
}

func (m *App) header(title string) string {
	left := styleAppHeader.Render("Nodeflow")
	if m.version != "" {
		left += styleDim.Render(" " + m.version)
	}
	if title != "" {
		left += " " + styleSectionHeader.Render(truncate(title, max(m.width-40, 10)))
	}
	return left
}

func (m *App) projectsView() string {
	var b strings.Builder
	b.WriteString(m.header("Projects"))
	b.WriteString("\n\n")
	if len(m.projects) == 0 {
		b.WriteString(styleDim.Render("  No projects yet. Press n to create one."))
		b.WriteString("\n")
	}
	for i, p := range m.projects {
		created := time.UnixMilli(p.CreatedAt).Format("2006-01-02 15:04")
		line := fmt.Sprintf("%s  %s", padRight(truncate(p.Title, 40), 40), styleDim.Render(created))
		if i == m.projectCursor {
			line = styleSelected.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.footer(m.keys.Up, m.keys.Enter, m.keys.NewProject, m.keys.RenameProject, m.keys.DeleteProject, m.keys.Quit))
	return b.String()
}

func (m *App) saveChip() string {
	switch label := m.session.SaveLabel(); label {
	case "Saving":
		return styleChipSaving.Render(label)
	case "Unsaved":
		return styleChipUnsaved.Render(label)
	default:
		return styleChipSaved.Render(label)
	}
}

func (m *App) boardView() string {
	s := m.session
	p := s.Project()
	head := m.header(p.Title) + "  " + m.saveChip()
	if m.linkFrom != "" {
		if n, ok := s.Node(m.linkFrom); ok {
			head += "  " + styleLinkSource.Render("linking from "+truncate(n.Title, 20))
		}
	}
	past, future := s.HistoryDepth()
	head += styleDim.Render(fmt.Sprintf("  undo %d · redo %d", past, future))

	bodyHeight := clampDimension(m.height-5, minListHeight, m.height)
	var body string
	if m.showMap {
		body = renderMap(s.Nodes(), s.Edges(), m.selectedNodeID(), m.linkFrom, max(m.width, minPaneWidth), bodyHeight)
	} else {
		leftWidth := clampDimension(m.width/2-2, minPaneWidth, 60)
		rightWidth := max(m.width-leftWidth-4, minPaneWidth)
		left := m.listPane(leftWidth, bodyHeight)
		right := m.detailPane(rightWidth, bodyHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	footer := m.footer(m.keys.AddNode, m.keys.EditTitle, m.keys.EditNotes, m.keys.CycleStatus,
		m.keys.Link, m.keys.Delete, m.keys.Undo, m.keys.Redo, m.keys.ToggleMap, m.keys.Back)
	return lipgloss.JoinVertical(lipgloss.Left, head, body, footer)
}

func (m *App) selectedNodeID() string {
	if n, ok := m.selectedNode(); ok {
		return n.ID
	}
	return ""
}

func (m *App) listPane(width, height int) string {
	s := m.session
	nodes, edges := s.Nodes(), s.Edges()
	titles := make(map[string]string, len(nodes))
	for _, n := range nodes {
		titles[n.ID] = n.Title
	}

	var b strings.Builder
	b.WriteString(styleSectionHeader.Render(fmt.Sprintf("Steps (%d)", len(nodes))))
	b.WriteString("\n")
	if len(nodes) == 0 {
		b.WriteString(styleDim.Render("Press a to add a step."))
		b.WriteString("\n")
	}
	for i, n := range nodes {
		icon, iconStyle := statusPresentation(n.Status)
		line := iconStyle.Render(icon) + " " + truncate(n.Title, width-6)
		if n.Color != "" {
			line = colorStyle(n.Color).Render("▌") + line
		} else {
			line = " " + line
		}
		if n.ID == m.linkFrom {
			line = styleLinkSource.Render(line)
		}
		if m.focus == focusNodes && i == m.nodeCursor {
			line = styleSelected.Render(padRight(line, width-2))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleSectionHeader.Render(fmt.Sprintf("Links (%d)", len(edges))))
	b.WriteString("\n")
	for i, e := range edges {
		line := truncate(fmt.Sprintf(" %s → %s", titles[e.Source], titles[e.Target]), width-2)
		if m.focus == focusEdges && i == m.edgeCursor {
			line = styleSelected.Render(padRight(line, width-2))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := stylePane
	if m.focus == focusEdges {
		style = stylePaneFocused
	}
	return style.Width(width).Height(height).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *App) detailPane(width, height int) string {
	n, ok := m.selectedNode()
	if !ok {
		return stylePane.Width(width).Height(height).Render(styleDim.Render("No step selected."))
	}
	s := m.session
	icon, iconStyle := statusPresentation(n.Status)

	var in, out []string
	for _, e := range s.Edges() {
		if e.Source == n.ID {
			if t, ok := s.Node(e.Target); ok {
				out = append(out, t.Title)
			}
		}
		if e.Target == n.ID {
			if src, ok := s.Node(e.Source); ok {
				in = append(in, src.Title)
			}
		}
	}

	field := func(label, value string) string {
		return styleField.Render(label) + styleVal.Render(value)
	}
	color := n.Color
	if color == "" {
		color = "default"
	} else {
		color = colorStyle(n.Color).Render("■") + " " + n.Color
	}
	rows := []string{
		styleSectionHeader.Render(truncate(n.Title, width-4)),
		"",
		field("Status", iconStyle.Render(icon+" "+statusLabel(n.Status))),
		field("Color", color),
		field("Position", fmt.Sprintf("%.0f, %.0f", n.Position.X, n.Position.Y)),
		field("Images", itoa(len(n.ImageIDs))),
		field("From", joinOrDash(in)),
		field("To", joinOrDash(out)),
		"",
		styleSectionHeader.Render("Notes"),
	}
	notes := strings.TrimSpace(n.Notes)
	if notes == "" {
		rows = append(rows, styleDim.Render("No notes. Press e to write some."))
	} else {
		rows = append(rows, m.markdown(width-4)(notes))
	}

	style := stylePane
	if m.focus == focusNodes {
		style = stylePaneFocused
	}
	return style.Width(width).Height(height).Render(strings.Join(rows, "\n"))
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "—"
	}
	return truncate(strings.Join(items, ", "), 40)
}

func (m *App) footer(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if seen[h.Key] {
			continue
		}
		seen[h.Key] = true
		parts = append(parts, styleKeyPill.Render(h.Key)+" "+styleKeyDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

func (m *App) promptView() string {
	width := clampDimension(m.width-20, 30, 80)
	switch m.prompt {
	case promptDeleteProject:
		title := m.promptTarget
		for _, p := range m.projects {
			if p.ID == m.promptTarget {
				title = p.Title
			}
		}
		body := fmt.Sprintf("Delete %q and all of its steps?\n\n%s confirm   %s cancel",
			truncate(title, width-20), styleKeyPill.Render("y"), styleKeyPill.Render("any key"))
		return styleDeletePrompt.Width(width).Render(body)
	case promptNotes:
		m.notes.SetWidth(width - 6)
		hint := styleDim.Render("ctrl+s save · esc cancel")
		return stylePrompt.Width(width).Render(styleSectionHeader.Render("Notes (markdown)") + "\n" + m.notes.View() + "\n" + hint)
	}
	label := map[promptKind]string{
		promptNewProject:    "New project",
		promptRenameProject: "Rename project",
		promptTitle:         "Step title",
		promptColor:         "Card color",
		promptImagePath:     "Attach image from file",
	}[m.prompt]
	m.input.Width = width - 8
	hint := styleDim.Render("enter save · esc cancel")
	return stylePrompt.Width(width).Render(styleSectionHeader.Render(label) + "\n" + m.input.View() + "\n" + hint)
}

// statusLabel is the human label for a status.
func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusActive:
		return "Active"
	case domain.StatusDone:
		return "Done"
	default:
		return "Idea"
	}
}
