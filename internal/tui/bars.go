package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	activeRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// renderStatusBar renders the daemon connection status bar.
func renderStatusBar(connected bool, snap snapshot, lastErr string, width int) string {
	var status string
	if connected {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{dot + " daemon connected", "profile:" + snap.status.Profile}
		if snap.state.Group != "" {
			parts = append(parts, "group:"+snap.state.Group)
		}
		if snap.state.Active && snap.state.Current != "" {
			parts = append(parts, "current:"+snap.state.Current)
		}
		parts = append(parts,
			fmt.Sprintf("windows:%d", snap.status.WindowCount),
			"thumbnails:"+onOff(snap.status.ThumbnailsEnabled),
		)
		status = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		status = dot + " daemon not running"
		if lastErr != "" {
			status += "  " + lastErr
		}
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(status)
}

// renderLayoutPanel lists every thumbnail top-most first.
func renderLayoutPanel(snap snapshot, width, height int) string {
	lines := []string{titleStyle.Render(" Thumbnails")}
	switch {
	case !snap.layout.Enabled:
		lines = append(lines, dimStyle.Render(" previews are off"))
	case len(snap.layout.Thumbnails) == 0:
		lines = append(lines, dimStyle.Render(" no client windows"))
	default:
		thumbs := snap.layout.Thumbnails
		for i := len(thumbs) - 1; i >= 0; i-- {
			t := thumbs[i]
			row := fmt.Sprintf(" z%-2d %-18s %4dx%-4d @ %d,%d", t.Z, t.Character, t.Width, t.Height, t.X, t.Y)
			switch {
			case t.Active:
				row = activeRowStyle.Render(row + "  focused")
			case !t.Visible:
				row = dimStyle.Render(row + "  hidden")
			}
			lines = append(lines, row)
		}
	}

	if len(snap.state.Groups) > 0 {
		lines = append(lines, "", titleStyle.Render(" Cycle groups"))
		for _, g := range snap.state.Groups {
			marker := "  "
			if g == snap.state.Group {
				marker = "> "
			}
			lines = append(lines, " "+marker+g)
		}
		if len(snap.state.Skipped) > 0 {
			lines = append(lines, dimStyle.Render(" skipped: "+strings.Join(snap.state.Skipped, ", ")))
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func renderActionStatus(text string, width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("42")).
		Padding(0, 1).
		Render(text)
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(width int) string {
	help := "enter: focus  n/p: cycle  t: thumbnails  P: next profile  r: reload  q/ctrl-c: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}

func separator(height int) string {
	if height < 1 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("│\n", height), "\n")
}
