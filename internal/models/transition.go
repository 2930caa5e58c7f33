package models

import "time"

// Transition is a single status change from an issue's changelog
type Transition struct {
	At     time.Time `json:"at" yaml:"at"`
	Author string    `json:"author" yaml:"author"`
	From   string    `json:"from" yaml:"from"`
	To     string    `json:"to" yaml:"to"`
	// ByTester is true when Author is on the tester roster
	ByTester bool `json:"by_tester" yaml:"by_tester"`
}

// Is reports whether the transition went from one status to another.
func (t Transition) Is(from, to string) bool {
	return t.From == from && t.To == to
}

// Comment is an issue comment with sanitized body
type Comment struct {
	Author  string    `json:"author" yaml:"author"`
	Body    string    `json:"body" yaml:"body"`
	Updated time.Time `json:"updated" yaml:"updated"`
}
