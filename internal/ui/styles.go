package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Icon constants
const (
	PuzzleIcon = "🧩"
	PlayerIcon = "👤"
	LockIcon   = "🔒"
	DoneIcon   = "🎉"
)

// Lipgloss Styles
var (
	docStyle      = lipgloss.NewStyle().Margin(1, 2)
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true).Render
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptStyle   = lipgloss.NewStyle().MarginTop(1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	placedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	lockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
)
