package models

import "strings"

// Unassigned is the tested-by value when no recognized tester touched an item
const Unassigned = "unassigned"

// Tester is an entry in the recognized tester roster
type Tester struct {
	JiraDisplayName string `toml:"jira_display_name"`
	TrelloID        string `toml:"trello_id"`
}

// Roster looks up recognized testers by their issue tracker display name
type Roster []Tester

// IsTester reports whether name belongs to a recognized tester.
func (r Roster) IsTester(name string) bool {
	_, ok := r.find(name)
	return ok
}

// BoardMemberID returns the board member id for a tester, or "" if unknown.
func (r Roster) BoardMemberID(name string) string {
	t, ok := r.find(name)
	if !ok {
		return ""
	}
	return t.TrelloID
}

func (r Roster) find(name string) (Tester, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == Unassigned {
		return Tester{}, false
	}
	for _, t := range r {
		if strings.EqualFold(t.JiraDisplayName, name) {
			return t, true
		}
	}
	return Tester{}, false
}
