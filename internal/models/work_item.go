package models

import "time"

// Issue tracker workflow statuses the reconciler understands
const (
	StatusInProgress   = "In Progress"
	StatusBacklog      = "Backlog"
	StatusReadyForQA   = "Ready for QA Release"
	StatusQATesting    = "QA Testing"
	StatusCategoryDone = "Done"
)

// WorkItem is a parsed issue with every predicate the reconciler needs already derived.
// It is fetched fresh on every run and never persisted.
type WorkItem struct {
	Key         string    `json:"key" yaml:"key"`
	URL         string    `json:"url" yaml:"url"`
	Summary     string    `json:"summary" yaml:"summary"`
	Description string    `json:"description" yaml:"description"`
	IssueType   string    `json:"issue_type" yaml:"issue_type"`
	Created     time.Time `json:"created" yaml:"created"`
	Updated     time.Time `json:"updated" yaml:"updated"`

	Status         string `json:"status" yaml:"status"`
	StatusCategory string `json:"status_category" yaml:"status_category"`

	// Transitions are ordered newest first
	Transitions []Transition `json:"transitions" yaml:"transitions"`
	// Comments are ordered newest first
	Comments    []Comment `json:"comments" yaml:"comments"`
	Labels      []string  `json:"labels" yaml:"labels"`
	Attachments []string  `json:"attachments" yaml:"attachments"`
	Subtasks    []string  `json:"subtasks" yaml:"subtasks"`

	TestedBy        string `json:"tested_by" yaml:"tested_by"`
	HasFailedQA     bool   `json:"has_failed_qa" yaml:"has_failed_qa"`
	TesterInHistory bool   `json:"tester_in_history" yaml:"tester_in_history"`
	ForQATeam       bool   `json:"for_qa_team" yaml:"for_qa_team"`
	IsHotfix        bool   `json:"is_hotfix" yaml:"is_hotfix"`
	IsDefect        bool   `json:"is_defect" yaml:"is_defect"`
	// QAReadyAt is zero when no "In Progress" -> "Ready for QA Release" transition exists
	QAReadyAt time.Time `json:"qa_ready_at" yaml:"qa_ready_at"`

	// Set while matching against the commit ledger
	InStaging     bool      `json:"in_staging" yaml:"in_staging"`
	LastCommitAt  time.Time `json:"last_commit_at" yaml:"last_commit_at"`
	CommitMessage string    `json:"commit_message" yaml:"commit_message"`
}

// HasQAReadyDate reports whether the QA-ready transition was found.
func (w WorkItem) HasQAReadyDate() bool {
	return !w.QAReadyAt.IsZero()
}

// PassedQA is true once the item is done and a tester touched it.
func (w WorkItem) PassedQA() bool {
	return w.StatusCategory == StatusCategoryDone && w.TesterInHistory
}

// IsCurrentlyFailed is true while the item sits in a development status.
func (w WorkItem) IsCurrentlyFailed() bool {
	return w.Status == StatusInProgress || w.Status == StatusBacklog
}

func (w WorkItem) IsInQATesting() bool {
	return w.Status == StatusQATesting
}

// IsFreshQAReady is true for an item awaiting QA that never failed it.
func (w WorkItem) IsFreshQAReady() bool {
	return w.Status == StatusReadyForQA && !w.HasFailedQA
}

// IsStaleQAReady is true for an item awaiting QA again after failing it.
func (w WorkItem) IsStaleQAReady() bool {
	return w.Status == StatusReadyForQA && w.HasFailedQA
}

// SortDate orders new cards: the QA-ready time when known, else the staging commit time.
func (w WorkItem) SortDate() time.Time {
	if w.HasQAReadyDate() {
		return w.QAReadyAt
	}
	return w.LastCommitAt
}

// TesterTransitions returns the transitions performed by recognized testers, newest first.
func (w WorkItem) TesterTransitions() []Transition {
	var out []Transition
	for _, t := range w.Transitions {
		if t.ByTester {
			out = append(out, t)
		}
	}
	return out
}
