// Package ui provides consistent styling for the wayshm CLI
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorText    = lipgloss.Color("252") // Light gray
	ColorSubtle  = lipgloss.Color("241") // Medium gray
	ColorMuted   = lipgloss.Color("238") // Dark gray
)

var (
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorMuted).
			Padding(0, 1)

	BoundIndicator = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Render("●")

	IgnoredIndicator = lipgloss.NewStyle().
				Foreground(ColorSubtle).
				Render("○")
)

// FormatAppHeader renders a title bar followed by a dimmed status line.
func FormatAppHeader(title, status string) string {
	header := TitleStyle.Render(title)
	if status == "" {
		return header
	}
	return header + "\n" + SubtleStyle.Render(status)
}

// FormatStatus prefixes status with a filled dot when active.
func FormatStatus(active bool, status string) string {
	indicator := IgnoredIndicator
	if active {
		indicator = BoundIndicator
	}
	return indicator + " " + status
}

// FormatTable renders rows under headers. Rows for which highlight returns
// true are drawn in the success colour.
func FormatTable(headers []string, rows [][]string, highlight func(row int) bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return lipgloss.NewStyle().
					Foreground(ColorPrimary).
					Bold(true).
					Padding(0, 1)
			case highlight != nil && highlight(row):
				return lipgloss.NewStyle().
					Foreground(ColorSuccess).
					Padding(0, 1)
			default:
				return lipgloss.NewStyle().
					Foreground(ColorText).
					Padding(0, 1)
			}
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}
