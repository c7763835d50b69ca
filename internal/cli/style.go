package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorOK    = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorFail  = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted = lipgloss.AdaptiveColor{Light: "#8a9199", Dark: "#6c7680"}
	colorName  = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(colorOK)
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorFail)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorName)
	stageStyle = lipgloss.NewStyle().Foreground(colorName)
)
