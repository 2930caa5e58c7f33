package ui

import (
	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/charmbracelet/lipgloss"
)

// Note: the terminal probe fix is in internal/termfix, imported first in main.go

var (
	ColorCyan     = lipgloss.Color("#00FFFF")
	ColorGreen    = lipgloss.Color("#00FF00")
	ColorYellow   = lipgloss.Color("#FFFF00")
	ColorRed      = lipgloss.Color("#FF0000")
	ColorMagenta  = lipgloss.Color("#FF00FF")
	ColorBlue     = lipgloss.Color("#5555FF")
	ColorOrange   = lipgloss.Color("#FFA500")
	ColorWhite    = lipgloss.Color("#FFFFFF")
	ColorDarkGray = lipgloss.Color("8")
)

// RoleColor is the colour a board list is drawn in
func RoleColor(role models.ListRole) lipgloss.Color {
	switch role {
	case models.ListOther:
		return ColorMagenta
	case models.ListTodo:
		return ColorCyan
	case models.ListFailed:
		return ColorRed
	case models.ListTesting:
		return ColorYellow
	case models.ListComplete:
		return ColorGreen
	default:
		return ColorWhite
	}
}

// KindColor is the colour a planned change is drawn in
func KindColor(kind models.MutationKind) lipgloss.Color {
	switch kind {
	case models.MutationCreate:
		return ColorGreen
	case models.MutationMove:
		return ColorCyan
	case models.MutationDelete:
		return ColorRed
	case models.MutationArchive:
		return ColorOrange
	default:
		return ColorBlue
	}
}

// LabelColor maps a board label colour name to a terminal colour
func LabelColor(name string) lipgloss.Color {
	switch name {
	case "red":
		return ColorRed
	case "green":
		return ColorGreen
	case "orange":
		return ColorOrange
	case "yellow":
		return ColorYellow
	case "blue":
		return ColorBlue
	case "purple", "pink":
		return ColorMagenta
	default:
		return ColorWhite
	}
}
