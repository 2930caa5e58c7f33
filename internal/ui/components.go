package ui

import (
	"fmt"
	"strings"

	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/charmbracelet/lipgloss"
)

// SectionHeader creates a styled section header with a title and color
// Example: "─── TITLE ───────────"
func SectionHeader(title string, color lipgloss.Color) string {
	dashes := strings.Repeat("─", max(25-len(title), 0))
	headerStyle := lipgloss.NewStyle().Foreground(color)
	titleStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	return fmt.Sprintf("%s%s%s",
		headerStyle.Render("  ─── "),
		titleStyle.Render(title),
		headerStyle.Render(" "+dashes),
	)
}

// ListFlow draws a card moving between two lists
// Example: Todo → Failed
func ListFlow(from, to models.ListRole) string {
	fromStyle := lipgloss.NewStyle().Foreground(RoleColor(from)).Bold(true)
	toStyle := lipgloss.NewStyle().Foreground(RoleColor(to)).Bold(true)
	arrowStyle := lipgloss.NewStyle().Foreground(ColorWhite)
	return fromStyle.Render(from.String()) + arrowStyle.Render(" → ") + toStyle.Render(to.String())
}

// MutationLine renders one planned change
func MutationLine(m models.Mutation) string {
	kindStyle := lipgloss.NewStyle().Foreground(KindColor(m.Kind)).Bold(true)
	keyStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(ColorDarkGray)

	kind := kindStyle.Render(fmt.Sprintf("%-7s", m.Kind.String()))
	var body string
	switch m.Kind {
	case models.MutationCreate:
		body = keyStyle.Render(m.Key) + " in " + lipgloss.NewStyle().Foreground(RoleColor(m.To)).Render(m.To.String()) +
			dimStyle.Render(" at "+m.Position.String())
	case models.MutationMove:
		body = keyStyle.Render(m.Key) + " " + ListFlow(m.From, m.To) + dimStyle.Render(" at "+m.Position.String())
	case models.MutationDelete:
		body = keyStyle.Render(m.Key) + dimStyle.Render(" duplicate in "+m.From.String())
	case models.MutationAddLabel:
		body = keyStyle.Render(m.Key) + " " + lipgloss.NewStyle().Foreground(LabelColor(m.Label.Color)).Render(m.Label.Name)
	case models.MutationAddMember:
		body = keyStyle.Render(m.Key) + dimStyle.Render(" member "+m.MemberID)
	default:
		body = m.String()
	}
	if m.Reason != "" {
		body += dimStyle.Render("  (" + m.Reason + ")")
	}
	return "  " + kind + " " + body
}

// YesNoButtons creates interactive Yes/No buttons
// selection: 0 for Yes, 1 for No
func YesNoButtons(selection int) string {
	yesBorder, yesText := ColorDarkGray, ColorWhite
	noBorder, noText := ColorDarkGray, ColorWhite
	iconYes, iconNo := " ", " "
	if selection == 0 {
		yesBorder, yesText, iconYes = ColorGreen, ColorGreen, ">"
	} else {
		noBorder, noText, iconNo = ColorRed, ColorRed, ">"
	}

	yesStyle := lipgloss.NewStyle().Foreground(yesBorder)
	yesTextStyle := lipgloss.NewStyle().Foreground(yesText).Bold(true)
	noStyle := lipgloss.NewStyle().Foreground(noBorder)
	noTextStyle := lipgloss.NewStyle().Foreground(noText).Bold(true)

	line1 := yesStyle.Render("  ┌────────┐") + " " + noStyle.Render("┌───────┐")
	line2 := fmt.Sprintf("%s%s%s %s%s%s",
		yesStyle.Render("  │"),
		yesTextStyle.Render(fmt.Sprintf(" %s  YES ", iconYes)),
		yesStyle.Render("│"),
		noStyle.Render("│"),
		noTextStyle.Render(fmt.Sprintf(" %s  NO ", iconNo)),
		noStyle.Render("│"),
	)
	line3 := yesStyle.Render("  └────────┘") + " " + noStyle.Render("└───────┘")

	return line1 + "\n" + line2 + "\n" + line3
}

// KeyBinding renders a key binding hint
func KeyBinding(key, description string, color lipgloss.Color) string {
	keyStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(ColorWhite)

	return fmt.Sprintf("%s %s",
		keyStyle.Render(key),
		descStyle.Render(description),
	)
}

// StatusIcon returns the icon and color for an item outcome
func StatusIcon(s models.ItemStatus) (string, lipgloss.Color) {
	switch {
	case models.IsStatusCreated(s):
		return "✓", ColorGreen
	case models.IsStatusMoved(s):
		return "↻", ColorBlue
	case models.IsStatusSkipped(s):
		return "⊘", ColorYellow
	case models.IsStatusFailed(s):
		return "✗", ColorRed
	default:
		return "·", ColorWhite
	}
}

// ItemLine renders the outcome of one work item
func ItemLine(r models.ItemResult) string {
	icon, color := StatusIcon(r.Status)
	line := lipgloss.NewStyle().Foreground(color).Render(icon) + " " + lipgloss.NewStyle().Bold(true).Render(r.Key)
	if reason := models.GetStatusReason(r.Status); reason != "" {
		line += lipgloss.NewStyle().Foreground(ColorDarkGray).Render("  " + reason)
	}
	return "  " + line
}
