package app

import (
	"fmt"
	"strings"

	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/ui"

	"github.com/charmbracelet/lipgloss"
)

// contentWidth returns the usable content width, adapting to terminal size
func (m Model) contentWidth() int {
	return max(m.width-8, 40)
}

// View renders the application
func (m Model) View() string {
	if m.shouldQuit {
		return ""
	}

	var sections []string
	sections = append(sections, ui.RenderBanner(m.header.Mode, m.header.DryRun))
	sections = append(sections, "")

	outerBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorMagenta).
		Width(m.contentWidth()).
		Padding(1, 2)

	switch m.screen {
	case ScreenReview:
		sections = append(sections, outerBox.Render(m.renderReview()))
	case ScreenConfirmation:
		sections = append(sections, outerBox.Render(m.renderConfirmation()))
	}

	sections = append(sections, "")
	sections = append(sections, m.renderStatusBar())

	content := strings.Join(sections, "\n")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, content)
}

func (m Model) buildLines() []string {
	if m.plan == nil {
		return nil
	}
	lines := make([]string, 0, len(m.plan.Mutations))
	for _, mu := range m.plan.Mutations {
		lines = append(lines, ui.MutationLine(mu))
	}
	return lines
}

func (m Model) renderSummary() []string {
	var lines []string
	labelStyle := lipgloss.NewStyle().Foreground(ui.ColorDarkGray)
	valueStyle := lipgloss.NewStyle().Foreground(ui.ColorCyan).Bold(true)
	lines = append(lines, fmt.Sprintf("  %s %s", labelStyle.Render("Board:"), valueStyle.Render(m.header.BoardID)))

	var parts []string
	for _, c := range m.counts() {
		style := lipgloss.NewStyle().Foreground(ui.KindColor(c.kind)).Bold(true)
		parts = append(parts, fmt.Sprintf("%s %s", style.Render(fmt.Sprintf("%d", c.n)), c.kind))
	}
	if len(parts) == 0 {
		parts = append(parts, "no changes")
	}
	lines = append(lines, "  "+strings.Join(parts, "  "))

	if skipped := m.skipped(); skipped > 0 {
		warnStyle := lipgloss.NewStyle().Foreground(ui.ColorYellow)
		lines = append(lines, warnStyle.Render(fmt.Sprintf("  ⊘ %d items left out of the plan", skipped)))
	}
	return lines
}

func (m Model) skipped() int {
	if m.plan == nil {
		return 0
	}
	n := 0
	for _, o := range m.plan.Outcomes {
		if o.Skip != "" {
			n++
		}
	}
	return n
}

func (m Model) renderReview() string {
	var lines []string
	lines = append(lines, ui.SectionHeader("PLAN", ui.ColorCyan))
	lines = append(lines, "")
	lines = append(lines, m.renderSummary()...)
	lines = append(lines, "")
	lines = append(lines, ui.SectionHeader("CHANGES", ui.ColorYellow))
	lines = append(lines, "")

	if len(m.lines) == 0 {
		dimStyle := lipgloss.NewStyle().Foreground(ui.ColorDarkGray)
		lines = append(lines, dimStyle.Render("  (nothing to change)"))
		return strings.Join(lines, "\n")
	}
	lines = append(lines, scrollWindow(m.lines, m.scroll, m.visibleLines())...)
	return strings.Join(lines, "\n")
}

// scrollWindow returns the visible slice of lines with scroll indicators in place of
// the first and last line when there is more above or below
func scrollWindow(lines []string, offset, visible int) []string {
	if len(lines) <= visible {
		return lines
	}
	end := min(offset+visible, len(lines))
	out := make([]string, end-offset)
	copy(out, lines[offset:end])

	dimStyle := lipgloss.NewStyle().Foreground(ui.ColorDarkGray)
	if offset > 0 {
		out[0] = dimStyle.Render("  ▲ more above")
	}
	if end < len(lines) {
		out[len(out)-1] = dimStyle.Render("  ▼ more below")
	}
	return out
}

func (m Model) renderConfirmation() string {
	var lines []string
	lines = append(lines, "")
	lines = append(lines, m.renderSummary()...)
	lines = append(lines, "")

	lists := m.touchedLists()
	if len(lists) > 0 {
		var names []string
		for _, r := range lists {
			names = append(names, lipgloss.NewStyle().Foreground(ui.RoleColor(r)).Bold(true).Render(r.String()))
		}
		lines = append(lines, "  Lists touched: "+strings.Join(names, ", "))
		lines = append(lines, "")
	}

	lines = append(lines, ui.SectionHeader("CONFIRM", ui.ColorGreen))
	lines = append(lines, "")
	lines = append(lines, "  Apply these changes to the board?")
	lines = append(lines, "")
	lines = append(lines, ui.YesNoButtons(m.confirmSelection))

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ui.ColorCyan)
	return titleStyle.Render(" Apply plan ") + "\n" + strings.Join(lines, "\n")
}

func (m Model) touchedLists() []models.ListRole {
	if m.plan == nil {
		return nil
	}
	seen := make(map[models.ListRole]bool)
	for _, mu := range m.plan.Mutations {
		for _, r := range []models.ListRole{mu.From, mu.To} {
			if r != models.ListNone {
				seen[r] = true
			}
		}
	}
	var out []models.ListRole
	for _, r := range models.TrackedLists {
		if seen[r] {
			out = append(out, r)
		}
	}
	return out
}

func (m Model) renderStatusBar() string {
	var hints []string

	switch m.screen {
	case ScreenReview:
		hints = []string{
			ui.KeyBinding("↑↓", "Scroll", ui.ColorWhite),
			ui.KeyBinding("PgUp/PgDn", "Page", ui.ColorWhite),
			ui.KeyBinding("Enter", "Continue", ui.ColorGreen),
			ui.KeyBinding("q", "Decline", ui.ColorRed),
		}
	case ScreenConfirmation:
		hints = []string{
			ui.KeyBinding("←→", "Choose", ui.ColorWhite),
			ui.KeyBinding("y/n", "Answer", ui.ColorYellow),
			ui.KeyBinding("Enter", "Confirm", ui.ColorGreen),
			ui.KeyBinding("Esc", "Back", ui.ColorYellow),
		}
	}
	if len(hints) == 0 {
		return ""
	}

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorDarkGray).
		Padding(0, 1)
	return borderStyle.Render(strings.Join(hints, "  "))
}
