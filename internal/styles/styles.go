// Package styles holds the shared lipgloss palette for terminal output.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Integer = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	Nil     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	Status  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Notice  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)
