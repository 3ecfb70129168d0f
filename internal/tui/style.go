package tui

import (
	"github.com/charmbracelet/lipgloss"

	"live-transcriber/internal/domain"
)

var (
	colorInfo     = lipgloss.Color("#FFA500")
	colorProgress = lipgloss.Color("#3B82F6")
	colorSuccess  = lipgloss.Color("#22C55E")
	colorError    = lipgloss.Color("#EF4444")
	colorMuted    = lipgloss.Color("#666666")
	colorBorder   = lipgloss.Color("#444444")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorProgress).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	logStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	disabledStyle = lipgloss.NewStyle().Foreground(colorBorder).Strikethrough(true)
)

// severityStyle colours the status line.
func severityStyle(s domain.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case domain.SeverityProgress:
		return base.Foreground(colorProgress)
	case domain.SeveritySuccess:
		return base.Foreground(colorSuccess)
	case domain.SeverityError:
		return base.Foreground(colorError)
	case domain.SeverityMuted:
		return base.Foreground(colorMuted).Bold(false)
	default:
		return base.Foreground(colorInfo)
	}
}
