package ui

import (
	"strings"

	"nodeflow/internal/domain"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	cPurple     = lipgloss.Color("99")
	cCyan       = lipgloss.Color("39")
	cNeonGreen  = lipgloss.Color("118")
	cRed        = lipgloss.Color("203")
	cOrange     = lipgloss.Color("208")
	cGold       = lipgloss.Color("220")
	cGray       = lipgloss.Color("240")
	cBrightGray = lipgloss.Color("246")
	cWhite      = lipgloss.Color("255")
	cHighlight  = lipgloss.Color("57")
	cField      = lipgloss.Color("63")

	styleAppHeader = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(cPurple).
			Bold(true).
			Padding(0, 1)

	stylePane = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(cGray)

	stylePaneFocused = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(cPurple)

	styleSelected = lipgloss.NewStyle().
			Background(cHighlight).
			Foreground(cWhite).
			Bold(true)

	styleLinkSource = lipgloss.NewStyle().
			Foreground(cGold).
			Bold(true)

	styleField = lipgloss.NewStyle().
			Foreground(cField).
			Bold(true).
			Width(10)

	styleVal = lipgloss.NewStyle().Foreground(cWhite)

	styleSectionHeader = lipgloss.NewStyle().
				Foreground(cGold).
				Bold(true)

	styleDim = lipgloss.NewStyle().Foreground(cBrightGray)

	styleKeyPill = lipgloss.NewStyle().
			Background(cPurple).
			Foreground(cWhite).
			Bold(true).
			Padding(0, 1)

	styleKeyDesc = lipgloss.NewStyle().
			Foreground(cBrightGray)

	styleChipSaved = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(lipgloss.Color("28")).
			Padding(0, 1)

	styleChipSaving = lipgloss.NewStyle().
			Foreground(cWhite).
			Background(cOrange).
			Padding(0, 1)

	styleChipUnsaved = lipgloss.NewStyle().
				Foreground(cWhite).
				Background(cRed).
				Bold(true).
				Padding(0, 1)

	styleErrorToast = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cRed).
			Foreground(cWhite).
			Padding(0, 1)

	styleInfoToast = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cNeonGreen).
			Foreground(cWhite).
			Padding(0, 1)

	stylePrompt = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cPurple).
			Padding(1, 2)

	styleDeletePrompt = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(cRed).
				Padding(1, 2)

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cGray).
			Padding(0, 1)

	styleCardSelected = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(cCyan).
				Padding(0, 1)
)

// statusPresentation returns the icon and style for a status.
func statusPresentation(status domain.Status) (string, lipgloss.Style) {
	switch status {
	case domain.StatusActive:
		return "◐", lipgloss.NewStyle().Foreground(cNeonGreen).Bold(true)
	case domain.StatusDone:
		return "✔", lipgloss.NewStyle().Foreground(cBrightGray)
	default:
		return "○", lipgloss.NewStyle().Foreground(cWhite)
	}
}

// colorStyle renders a user-chosen node color as a foreground. Invalid or
// empty colors fall back to the card's default border.
func colorStyle(color string) lipgloss.Style {
	color = strings.TrimSpace(color)
	if color == "" {
		return lipgloss.NewStyle().Foreground(cGray)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func buildMarkdownRenderer(format string, width int) func(string) string {
	if width < 10 {
		width = 10
	}
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	style := strings.ToLower(strings.TrimSpace(format))
	if style == "" || style == "rich" || style == "dark" {
		style = "dark"
	}
	if style == "plain" {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.TrimSpace(out)
	}
}
