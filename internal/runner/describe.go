package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/bbeale/GitTreasures/internal/models"
	"github.com/bbeale/GitTreasures/internal/reconcile"
)

// Preview is what the next run would do with one work item
type Preview struct {
	Item    models.WorkItem
	Outcome reconcile.Outcome
	// Card is the card as it would be created, or as it would be composed today for
	// an item that already has one
	Card    models.NewCard
	Planned []models.Mutation
}

// Describe plans the whole board without writing anything, then picks out one item.
// The ledger is read as it stands and the run lock is not taken.
func (r *Runner) Describe(ctx context.Context, key string, testMode bool) (*Preview, error) {
	cfg := r.deps.Config

	commits, err := r.deps.Ledger.All(ctx)
	if err != nil {
		return nil, err
	}
	items, err := r.deps.Tracker.WorkItems(ctx, cfg.Jira.QAStatusFilterID, r.deps.Tracker.Rules(cfg.Testers), cfg.Common.MaxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("fetch work items: %w", err)
	}

	board := cfg.Board(testMode)
	snap, err := reconcile.TakeSnapshot(ctx, r.deps.Board, board.BoardID, board.Lists.ByRole())
	if err != nil {
		return nil, err
	}
	plan := r.planner("", nil).Plan(items, commits, snap)

	idx := -1
	for i := range items {
		if strings.EqualFold(items[i].Key, key) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s is not in the QA status filter", key)
	}
	item := items[idx]

	p := &Preview{Item: item}
	for _, o := range plan.Outcomes {
		if strings.EqualFold(o.Key, key) {
			p.Outcome = o
			break
		}
	}
	for _, m := range plan.Mutations {
		if strings.EqualFold(m.Key, key) {
			p.Planned = append(p.Planned, m)
			if m.Kind == models.MutationCreate && m.Card != nil {
				p.Card = *m.Card
			}
			if m.Kind == models.MutationMove {
				p.Card.Position = m.Position
			}
		}
	}
	if p.Card.Name == "" {
		p.Card.Name = item.Key
		p.Card.Desc = reconcile.ComposeDescription(item, item.QAReadyAt, "")
		p.Card.Labels = reconcile.DesiredLabels(item)
		p.Card.MemberID = cfg.Testers.BoardMemberID(item.TestedBy)
		p.Card.Attachments = item.Attachments
		p.Card.Checklist = item.Subtasks
	}
	return p, nil
}
