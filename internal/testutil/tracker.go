package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/bbeale/GitTreasures/internal/jira"
	"github.com/bbeale/GitTreasures/internal/models"
)

// Tracker is an in-memory issue tracker serving canned work items per filter
type Tracker struct {
	mu sync.Mutex

	Filters map[string][]models.WorkItem
	Sprint  *jira.Sprint

	Defects     []models.NewDefect
	Transitions map[string][]string

	Fail  map[string]error
	Calls []string
}

func NewTracker() *Tracker {
	return &Tracker{
		Filters:     make(map[string][]models.WorkItem),
		Transitions: make(map[string][]string),
		Fail:        make(map[string]error),
	}
}

func (t *Tracker) call(method string) error {
	t.Calls = append(t.Calls, method)
	return t.Fail[method]
}

func (t *Tracker) Rules(roster models.Roster) jira.Rules {
	return jira.Rules{Roster: roster, HotfixLabel: "hotfix", BaseURL: "https://jira.example/"}
}

func (t *Tracker) WorkItems(_ context.Context, filterID string, _ jira.Rules, _ int) ([]models.WorkItem, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.call("WorkItems"); err != nil {
		return nil, err
	}
	return append([]models.WorkItem(nil), t.Filters[filterID]...), nil
}

func (t *Tracker) CurrentSprint(context.Context) (*jira.Sprint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.call("CurrentSprint"); err != nil {
		return nil, err
	}
	return t.Sprint, nil
}

func (t *Tracker) CreateDefect(_ context.Context, d models.NewDefect) (*jira.CreatedIssue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.call("CreateDefect"); err != nil {
		return nil, err
	}
	t.Defects = append(t.Defects, d)
	key := fmt.Sprintf("DEF-%d", len(t.Defects))
	return &jira.CreatedIssue{ID: key, Key: key}, nil
}

func (t *Tracker) TransitionIssue(_ context.Context, key, transitionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.call("TransitionIssue"); err != nil {
		return err
	}
	t.Transitions[key] = append(t.Transitions[key], transitionID)
	return nil
}
