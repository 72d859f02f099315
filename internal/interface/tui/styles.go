package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
)

// Global styles used across views
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(lipgloss.Color("170")).
				Bold(true)

	currentItemStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("120")) // Light green - contrasts better with purple selection

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")) // Lighter gray that works better in dark terminals

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("246"))

	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	pointStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("cyan"))

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	infoAlertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	successAlertStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("green")).
				Bold(true)

	errorAlertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func alertStyle(level dashboard.AlertLevel) lipgloss.Style {
	switch level {
	case dashboard.AlertSuccess:
		return successAlertStyle
	case dashboard.AlertError:
		return errorAlertStyle
	}
	return infoAlertStyle
}
