package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Adaptive so the editor stays readable on both light and dark terminal
// backgrounds.
var (
	formText   = lipgloss.AdaptiveColor{Light: "#1f2933", Dark: "#f5f7fa"}
	formMuted  = lipgloss.AdaptiveColor{Light: "#7b8794", Dark: "#cbd2d9"}
	formBorder = lipgloss.AdaptiveColor{Light: "#7b8794", Dark: "#cbd2d9"}
	formAccent = lipgloss.AdaptiveColor{Light: "#2f54eb", Dark: "#85a5ff"}
	formDanger = lipgloss.AdaptiveColor{Light: "#a8071a", Dark: "#ff7875"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(formText).
			Padding(0, 0, 1, 0)

	mutedStyle  = lipgloss.NewStyle().Foreground(formMuted)
	noticeStyle = lipgloss.NewStyle().Foreground(formDanger)
	badgeStyle  = lipgloss.NewStyle().
			Foreground(formMuted).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(formBorder).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Foreground(formText).
			Padding(0, 0, 0, 2)

	focusedRowStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(formAccent).
			Foreground(formText).
			Bold(true).
			Padding(0, 0, 0, 1)

	orderStyle = lipgloss.NewStyle().Foreground(formMuted).Width(4)

	suggestionStyle = lipgloss.NewStyle().
			Foreground(formMuted).
			Padding(0, 0, 0, 6)

	pickedSuggestionStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(formAccent).
				Foreground(formText).
				Padding(0, 0, 0, 5)

	helpStyle = lipgloss.NewStyle().
			Padding(1, 0, 0, 0).
			Foreground(formMuted)
)

func faintIfDark(s lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return s.Faint(true)
	}
	return s
}
