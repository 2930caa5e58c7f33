package ui

import (
	"fmt"
	"strings"

	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/charmbracelet/glamour"
)

// CardMarkdown is the markdown shown by describe: the card as it would be created
func CardMarkdown(it models.WorkItem, card models.NewCard, role models.ListRole, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", card.Name)
	fmt.Fprintf(&b, "- **Status:** %s\n", it.Status)
	fmt.Fprintf(&b, "- **Tested by:** %s\n", it.TestedBy)
	switch {
	case role == models.ListNone:
		b.WriteString("- **List:** none\n")
	case card.Position.IsSentinel() || card.Position.Value != 0:
		fmt.Fprintf(&b, "- **List:** %s at %s\n", role, card.Position)
	default:
		fmt.Fprintf(&b, "- **List:** %s\n", role)
	}
	if reason != "" {
		fmt.Fprintf(&b, "- **Because:** %s\n", reason)
	}
	if len(card.Labels) > 0 {
		names := make([]string, 0, len(card.Labels))
		for _, l := range card.Labels {
			names = append(names, "`"+l.Name+"`")
		}
		fmt.Fprintf(&b, "- **Labels:** %s\n", strings.Join(names, " "))
	}
	b.WriteString("\n---\n\n")
	b.WriteString(card.Desc)
	b.WriteString("\n")
	if len(card.Checklist) > 0 {
		b.WriteString("\n## Subtasks\n\n")
		for _, c := range card.Checklist {
			fmt.Fprintf(&b, "- [ ] %s\n", c)
		}
	}
	if len(card.Attachments) > 0 {
		b.WriteString("\n## Attachments\n\n")
		for _, a := range card.Attachments {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	return b.String()
}

// RenderMarkdown renders md for the terminal, or returns it unchanged when plain is set
func RenderMarkdown(md string, width int, plain bool) (string, error) {
	if plain {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
