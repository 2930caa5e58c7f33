package models

import "strings"

// Board is a kanban board
type Board struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// BoardList is a list (column) on a board
type BoardList struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	BoardID string `json:"idBoard" yaml:"board_id"`
	Closed  bool   `json:"closed" yaml:"closed"`
}

// Label is a board label
type Label struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Member is a board member
type Member struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	FullName string `json:"fullName" yaml:"full_name"`
}

// Checklist is a card checklist
type Checklist struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	CardID string `json:"idCard" yaml:"card_id"`
}

// Card is a board card. Its Name is the work item key.
type Card struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	ListID    string   `json:"idList" yaml:"list_id"`
	Pos       float64  `json:"pos" yaml:"pos"`
	Desc      string   `json:"desc" yaml:"desc"`
	Labels    []Label  `json:"labels" yaml:"labels"`
	MemberIDs []string `json:"idMembers" yaml:"member_ids"`
}

// HasLabel reports whether the card carries a label with the given name
func (c Card) HasLabel(name string) bool {
	for _, l := range c.Labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// NewCard describes a card to be created
type NewCard struct {
	Name        string   `json:"name" yaml:"name"`
	Desc        string   `json:"desc" yaml:"desc"`
	Position    Position `json:"pos" yaml:"pos"`
	Labels      []Label  `json:"labels" yaml:"labels"`
	MemberID    string   `json:"member_id,omitempty" yaml:"member_id,omitempty"`
	Attachments []string `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	Checklist   []string `json:"checklist,omitempty" yaml:"checklist,omitempty"`
}
