package ui

import (
	"io"
	"math"
	"strings"

	"nodeflow/internal/domain"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/cellbuf"
)

const (
	cardWidth  = 20
	cardHeight = 3
)

// Canvas is a lightweight helper around cellbuf.Screen that lets us compose
// lipgloss-rendered strings into a cell buffer before turning the frame back
// into a string for Bubble Tea.
type Canvas struct {
	screen *cellbuf.Screen
	writer *cellbuf.ScreenWriter
	width  int
	height int
}

func NewCanvas(width, height int) *Canvas {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	screen := cellbuf.NewScreen(io.Discard, width, height, &cellbuf.ScreenOptions{
		ShowCursor: false,
		AltScreen:  false,
	})
	return &Canvas{
		screen: screen,
		writer: cellbuf.NewScreenWriter(screen),
		width:  width,
		height: height,
	}
}

// DrawStringAt writes the provided block starting at x,y. Each line starts at
// column x.
func (c *Canvas) DrawStringAt(x, y int, content string) {
	if content == "" || c == nil || c.writer == nil {
		return
	}
	for i, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		row := y + i
		if row < 0 || row >= c.height || line == "" {
			continue
		}
		c.writer.PrintCropAt(max(x, 0), row, line, "")
	}
}

// Render returns the composed frame as a newline-delimited string suitable for
// Bubble Tea consumption.
func (c *Canvas) Render() string {
	if c == nil || c.screen == nil {
		return ""
	}
	raw := cellbuf.Render(c.screen)
	_ = c.screen.Close()
	return strings.ReplaceAll(raw, "\r\n", "\n")
}

// cardPlacement is where a node's card lands on the canvas.
type cardPlacement struct {
	X, Y int
}

// layoutCards maps board positions onto a width x height grid so that every
// card fits. A single node, or nodes sharing one coordinate, map to the
// origin on that axis.
func layoutCards(nodes []domain.Node, width, height int) map[string]cardPlacement {
	out := make(map[string]cardPlacement, len(nodes))
	if len(nodes) == 0 {
		return out
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, n := range nodes {
		minX = math.Min(minX, n.Position.X)
		maxX = math.Max(maxX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxY = math.Max(maxY, n.Position.Y)
	}
	spanX := float64(max(width-cardWidth, 0))
	spanY := float64(max(height-cardHeight, 0))
	scale := func(v, lo, hi, span float64) int {
		if hi-lo == 0 {
			return 0
		}
		return int(math.Round((v - lo) / (hi - lo) * span))
	}
	for _, n := range nodes {
		out[n.ID] = cardPlacement{
			X: scale(n.Position.X, minX, maxX, spanX),
			Y: scale(n.Position.Y, minY, maxY, spanY),
		}
	}
	return out
}

// renderMap draws every card at its scaled position. Edges are listed as
// arrows inside each source card's footer rather than drawn as lines.
func renderMap(nodes []domain.Node, edges []domain.Edge, selectedID, linkFrom string, width, height int) string {
	canvas := NewCanvas(width, height)
	if len(nodes) == 0 {
		canvas.DrawStringAt(1, 0, styleDim.Render("Empty board. Press a to add a step."))
		return canvas.Render()
	}
	outDegree := make(map[string]int, len(nodes))
	for _, e := range edges {
		outDegree[e.Source]++
	}
	placements := layoutCards(nodes, width, height)
	// Draw in reverse so the front of the node list (newest) ends up on top.
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		p := placements[n.ID]
		canvas.DrawStringAt(p.X, p.Y, renderCard(n, outDegree[n.ID], n.ID == selectedID, n.ID == linkFrom))
	}
	return canvas.Render()
}

func renderCard(n domain.Node, links int, selected, linkSource bool) string {
	icon, iconStyle := statusPresentation(n.Status)
	inner := cardWidth - 4
	title := ansi.Truncate(n.Title, inner-2, "…")
	line := iconStyle.Render(icon) + " " + title
	if links > 0 {
		arrow := styleDim.Render(" →" + itoa(links))
		if ansi.StringWidth(line)+ansi.StringWidth(arrow) <= inner {
			line += arrow
		}
	}
	style := styleCard
	if selected {
		style = styleCardSelected
	}
	if linkSource {
		style = style.BorderForeground(cGold)
	} else if !selected && n.Color != "" {
		style = style.BorderForeground(lipgloss.Color(n.Color))
	}
	return style.Width(cardWidth - 2).Render(line)
}
