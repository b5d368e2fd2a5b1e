package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	dimColor     = lipgloss.Color("#6272A4")
	textColor    = lipgloss.Color("#F8F8F2")
	warnColor    = lipgloss.Color("#FF5555")
)

// ExitSummary is printed once the TUI has left the alt screen.
type ExitSummary struct {
	Version   string
	Projects  int
	LastSave  string
	StartTime time.Time
	// FlushErr is the error from the final save, if any.
	FlushErr error
}

func printExitSummary(w io.Writer, summary ExitSummary) {
	appStyle := lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	versionStyle := lipgloss.NewStyle().Foreground(dimColor)
	statsStyle := lipgloss.NewStyle().Foreground(textColor)
	warnStyle := lipgloss.NewStyle().Foreground(warnColor).Bold(true)

	versionStr := ""
	if summary.Version != "" {
		versionStr = versionStyle.Render(fmt.Sprintf(" v%s", summary.Version))
	}
	sessionStr := versionStyle.Render(fmt.Sprintf(" • %s session", formatDuration(time.Since(summary.StartTime))))

	noun := "projects"
	if summary.Projects == 1 {
		noun = "project"
	}
	stats := fmt.Sprintf("%d %s", summary.Projects, noun)
	if summary.LastSave != "" {
		stats += " · last save: " + summary.LastSave
	}

	_, _ = fmt.Fprintln(w, appStyle.Render("Nodeflow")+versionStr+sessionStr)
	_, _ = fmt.Fprintln(w, statsStyle.Render(stats))
	if summary.FlushErr != nil {
		_, _ = fmt.Fprintln(w, warnStyle.Render("Final save failed: "+summary.FlushErr.Error()))
	}
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}
