package models

import "strings"

// markupChars break Markdown rendering on cards and quoting in downstream tools.
const markupChars = "*`#'\"\t"

// SanitizeText removes markup characters from issue text.
func SanitizeText(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(markupChars, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeCommitMessage removes markup characters and carriage returns from a commit message.
// Line feeds are kept so multi-line messages stay readable.
func SanitizeCommitMessage(s string) string {
	return strings.ReplaceAll(SanitizeText(s), "\r", "")
}
