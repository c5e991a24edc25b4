package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	videoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)
