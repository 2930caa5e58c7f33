// Package termfix sets environment variables that keep terminal colour probing from
// stalling. Import this package FIRST (before any lipgloss/termenv imports) using:
//
//	_ "github.com/bbeale/GitTreasures/internal/termfix"
package termfix

import "os"

func init() {
	Apply(os.Getenv, os.Setenv)
}

// Apply forces a dumb terminal under Warp and when running headless under cron or
// the trigger server, where background colour queries never get an answer.
func Apply(getenv func(string) string, setenv func(string, string) error) {
	switch {
	case getenv("TERM_PROGRAM") == "WarpTerminal":
		_ = setenv("TERM", "dumb")
		_ = setenv("COLORTERM", "truecolor")
	case getenv("GIT_TREASURES_HEADLESS") != "":
		_ = setenv("TERM", "dumb")
	}
}
