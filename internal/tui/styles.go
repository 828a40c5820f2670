package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#7C9CFF")
	muted  = lipgloss.Color("#6B7280")
	alert  = lipgloss.Color("#FF8787")
	text   = lipgloss.Color("#F9FAFB")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			MarginBottom(1)

	tabStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(text).
			Background(accent).
			Bold(true).
			Padding(0, 1)

	cardNameStyle = lipgloss.NewStyle().
			Foreground(text).
			Bold(true)

	cardMetaStyle = lipgloss.NewStyle().
			Foreground(muted)

	errorStyle = lipgloss.NewStyle().
			Foreground(alert)

	statusStyle = lipgloss.NewStyle().
			Foreground(muted).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(muted).
			MarginTop(1)
)
