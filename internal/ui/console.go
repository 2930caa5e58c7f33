package ui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Console prints the [+] / [*] / [!] progress lines of a command-line run
type Console struct {
	out *termenv.Output
}

// NewConsole writes to w. Colour is dropped when noColor is set or w is not a terminal.
func NewConsole(w io.Writer, noColor bool) *Console {
	opts := []termenv.OutputOption{}
	if noColor {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &Console{out: termenv.NewOutput(w, opts...)}
}

func (c *Console) line(prefix, color, format string, args ...any) {
	p := c.out.String(prefix).Foreground(c.out.Color(color)).Bold()
	fmt.Fprintf(c.out, "%s %s\n", p, fmt.Sprintf(format, args...))
}

// Done reports a finished step
func (c *Console) Done(format string, args ...any) { c.line("[+]", "#00FF00", format, args...) }

// Info reports progress
func (c *Console) Info(format string, args ...any) { c.line("[*]", "#00FFFF", format, args...) }

// Warn reports something that needs attention but did not stop the run
func (c *Console) Warn(format string, args ...any) { c.line("[!]", "#FFFF00", format, args...) }

// Print writes pre-rendered output as-is
func (c *Console) Print(s string) {
	fmt.Fprintln(c.out, s)
}

// Colorless reports whether output carries no escape sequences
func (c *Console) Colorless() bool {
	return c.out.Profile == termenv.Ascii
}
