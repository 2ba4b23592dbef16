// Package themes holds the color palettes of the live monitor view.
package themes

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/callguard/internal/model"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Bold       lipgloss.Style
	Muted      lipgloss.Style
	Box        lipgloss.Style
	Help       lipgloss.Style
	Primary    lipgloss.Color
	Border     lipgloss.Color
	Low        lipgloss.Color
	Medium     lipgloss.Color
	High       lipgloss.Color
	MeterEmpty lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	Primary:    lipgloss.Color("#5B8DEF"),
	Border:     lipgloss.Color("#404040"),
	Low:        lipgloss.Color("#10b981"),
	Medium:     lipgloss.Color("#f59e0b"),
	High:       lipgloss.Color("#ef4444"),
	MeterEmpty: lipgloss.Color("#303030"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")).
		MarginBottom(1),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Bold: lipgloss.NewStyle().
		Bold(true),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(1, 2),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")).
		MarginTop(1),
}

// RiskColor returns the theme color for level.
func (t Theme) RiskColor(level model.RiskLevel) lipgloss.Color {
	switch level {
	case model.RiskHigh:
		return t.High
	case model.RiskMedium:
		return t.Medium
	default:
		return t.Low
	}
}

// Risk returns a bold style in the level's color.
func (t Theme) Risk(level model.RiskLevel) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.RiskColor(level))
}
