package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Banner is the ASCII art header
var Banner = []string{
	"   ____ ___ _____   _____ ____  _____    _    ____  _   _ ____  _____ ____  ",
	"  / ___|_ _|_   _| |_   _|  _ \\| ____|  / \\  / ___|| | | |  _ \\| ____/ ___| ",
	" | |  _ | |  | |     | | | |_) |  _|   / _ \\ \\___ \\| | | | |_) |  _| \\___ \\ ",
	" | |_| || |  | |     | | |  _ <| |___ / ___ \\ ___) | |_| |  _ <| |___ ___) |",
	"  \\____|___| |_|     |_| |_| \\_\\_____/_/   \\_\\____/ \\___/|_| \\_\\_____|____/ ",
}

// RenderBanner returns the styled banner with the run mode underneath
func RenderBanner(mode string, dryRun bool) string {
	bannerStyle := lipgloss.NewStyle().Foreground(ColorCyan)

	var lines []string
	for _, line := range Banner {
		lines = append(lines, bannerStyle.Render(line))
	}

	modeStyle := lipgloss.NewStyle().Foreground(ColorDarkGray)
	lines = append(lines, modeStyle.Render("  mode: "+mode))

	if dryRun {
		lines = append(lines, "")
		warningStyle := lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)
		lines = append(lines, warningStyle.Render("  ⚠ DRY RUN MODE"))
	}

	return strings.Join(lines, "\n")
}
