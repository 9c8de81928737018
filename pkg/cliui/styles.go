package cliui

import "github.com/charmbracelet/lipgloss"

// Shared styles for command output. Commands render keys, values, and
// vendor names through these so the palette stays consistent across
// subcommands.
var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	WarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)
