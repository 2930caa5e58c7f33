package reconcile

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bbeale/GitTreasures/internal/models"
)

// MaxDescription is the largest card description the board accepts
const MaxDescription = 16384

// TooMuchText replaces sections that do not fit in a card description
const TooMuchText = "Too much text -- see issue tracker"

const dateLayout = "2006-01-02 15:04"

// ComposeDescription renders the Markdown body of a new card. Comments and status
// history are dropped first when the text is too long, then the description; what is
// left is cut at MaxDescription bytes.
func ComposeDescription(item models.WorkItem, readyAt time.Time, testLink string) string {
	header := describeHeader(item, readyAt, testLink)
	desc := item.Description
	comments := describeComments(item.Comments)
	statuses := describeStatuses(item.TesterTransitions())

	text := assembleDescription(header, desc, comments, statuses)
	if len(text) <= MaxDescription {
		return text
	}
	text = assembleDescription(header, desc, TooMuchText, TooMuchText)
	if len(text) <= MaxDescription {
		return text
	}
	text = assembleDescription(header, TooMuchText, TooMuchText, TooMuchText)
	return truncateUTF8(text, MaxDescription)
}

func describeHeader(item models.WorkItem, readyAt time.Time, testLink string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", item.Summary)
	if readyAt.IsZero() {
		b.WriteString("**Ready for QA on:** not yet\n")
	} else {
		fmt.Fprintf(&b, "**Ready for QA on:** %s\n", readyAt.Format(dateLayout))
	}
	fmt.Fprintf(&b, "**Original Jira link:** %s\n", item.URL)
	if testLink != "" {
		fmt.Fprintf(&b, "**TestRail link:** %s\n", testLink)
	}
	if item.InStaging {
		fmt.Fprintf(&b, "**Staging commit:** %s %s\n", item.LastCommitAt.Format(dateLayout), firstLine(item.CommitMessage))
	}
	return b.String()
}

func describeComments(comments []models.Comment) string {
	var b strings.Builder
	for _, c := range comments {
		fmt.Fprintf(&b, "\n_**%s** at %s_:\n\n%s\n\n", c.Author, c.Updated.Format(dateLayout), c.Body)
	}
	return b.String()
}

func describeStatuses(transitions []models.Transition) string {
	var b strings.Builder
	for _, t := range transitions {
		fmt.Fprintf(&b, "\n_**%s** at %s_: %s -> %s\n", t.Author, t.At.Format(dateLayout), t.From, t.To)
	}
	return b.String()
}

func assembleDescription(header, desc, comments, statuses string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n---\n\n")
	b.WriteString(desc)
	b.WriteString("\n\n---\n\nJIRA COMMENTS\n\n")
	b.WriteString(comments)
	b.WriteString("\n\n---\n\nJIRA STATUS CHANGES\n\n")
	b.WriteString(statuses)
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
